package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitdigest/internal/api"
	"gitdigest/internal/config"
	"gitdigest/internal/ingest"
	"gitdigest/internal/metrics"
	"gitdigest/internal/pipeline"
	"gitdigest/internal/summarize"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file overlaying the environment")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath, cfg)
		if err != nil {
			log.Error("load config file", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	runner, err := ingest.NewRunner(cfg.GitingestBinary, cfg.OutputDir, cfg.ExcludePatterns, log)
	if err != nil {
		log.Error("ingest setup", "error", err)
		os.Exit(1)
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

	m := metrics.New()

	worker := pipeline.NewWorker(pipeline.WorkerOptions{
		Runner:          runner,
		LLM:             llm,
		Metrics:         m,
		Log:             log,
		OutputDir:       cfg.OutputDir,
		MaxSummaries:    cfg.MaxSummaries,
		TriageEnabled:   cfg.TriageEnabled,
		TriageConfig:    cfg.TriageConfig(),
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
	})
	orch := pipeline.NewOrchestrator(worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
	orch.Start()

	srv := api.NewServer(orch, llm, m, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llm.Close()
	}()

	log.Info("starting gitdigest", "port", cfg.Port, "model", cfg.LLMModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
