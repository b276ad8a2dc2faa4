package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitdigest/internal/config"
	"gitdigest/internal/ingest"
	"gitdigest/internal/metrics"
	"gitdigest/internal/pipeline"
	"gitdigest/internal/summarize"
)

type runFlags struct {
	url        string
	token      string
	branch     string
	wordCount  int
	configFile string
	maxSize    int64
	excludes   []string
	focus      string
	noTriage   bool
	noLLM      bool
	verbose    bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Digest and summarize one repository",
	Long: `Digest one repository and print the result as JSON.

The repository is flattened with gitingest, trimmed to the configured
token budget, and summarized by the configured LLM provider unless
--no-llm is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(runOpts)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOpts.url, "url", "u", "", "GitHub repository URL (required)")
	runCmd.Flags().StringVarP(&runOpts.token, "token", "t", "", "GitHub token for private repositories")
	runCmd.Flags().StringVarP(&runOpts.branch, "branch", "b", "", "Branch to digest (default: repository default)")
	runCmd.Flags().IntVarP(&runOpts.wordCount, "word-count", "w", 0, "Target summary length in words")
	runCmd.Flags().StringVarP(&runOpts.configFile, "config", "c", "", "Path to YAML config file")
	runCmd.Flags().Int64VarP(&runOpts.maxSize, "max-size", "m", 0, "Max file size in bytes passed to gitingest")
	runCmd.Flags().StringArrayVarP(&runOpts.excludes, "exclude", "e", nil, "Extra exclude pattern (repeatable)")
	runCmd.Flags().StringVarP(&runOpts.focus, "focus", "f", "", "Extra instruction appended to the prompt")
	runCmd.Flags().BoolVar(&runOpts.noTriage, "no-triage", false, "Send the full digest without trimming")
	runCmd.Flags().BoolVar(&runOpts.noLLM, "no-llm", false, "Digest only, skip the LLM call")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "Log progress to stderr")

	runCmd.MarkFlagRequired("url")
}

func runOnce(opts runFlags) error {
	logLevel := slog.LevelWarn
	if opts.verbose {
		logLevel = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := config.Load()
	if opts.configFile != "" {
		var err error
		cfg, err = config.LoadFile(opts.configFile, cfg)
		if err != nil {
			return err
		}
	}
	if !opts.noLLM {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	runner, err := ingest.NewRunner(cfg.GitingestBinary, cfg.OutputDir, cfg.ExcludePatterns, log)
	if err != nil {
		return err
	}

	llm := summarize.NewClient(summarize.Options{
		BaseURL:          cfg.LLMBaseURL,
		APIKey:           cfg.LLMAPIKey,
		Model:            cfg.LLMModel,
		Timeout:          cfg.LLMTimeout,
		FrequencyPenalty: cfg.LLMFrequencyPenalty,
		ResponseFormat:   cfg.LLMResponseFormat,
		ReasoningEffort:  cfg.LLMReasoningEffort,
	})
	defer llm.Close()

	worker := pipeline.NewWorker(pipeline.WorkerOptions{
		Runner:          runner,
		LLM:             llm,
		Metrics:         metrics.New(),
		Log:             log,
		OutputDir:       cfg.OutputDir,
		MaxSummaries:    cfg.MaxSummaries,
		TriageEnabled:   cfg.TriageEnabled && !opts.noTriage,
		TriageConfig:    cfg.TriageConfig(),
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
	})

	wordCount := opts.wordCount
	if wordCount <= 0 {
		wordCount = cfg.DefaultWordCount
	}
	maxSize := opts.maxSize
	if maxSize <= 0 {
		maxSize = cfg.DefaultMaxSize
	}

	job := pipeline.NewJob(pipeline.Request{
		URL:             opts.url,
		Token:           opts.token,
		Branch:          opts.branch,
		MaxFileSize:     maxSize,
		WordCount:       wordCount,
		CallLLM:         !opts.noLLM,
		ExcludePatterns: opts.excludes,
		Focus:           opts.focus,
		Triage:          !opts.noTriage,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	worker.Process(ctx, job)

	snap := job.Snapshot()
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if snap.Status == pipeline.StatusFailed {
		return fmt.Errorf("digest failed: %v", snap.Errors)
	}
	return nil
}
