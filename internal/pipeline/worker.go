package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gitdigest/internal/digest"
	"gitdigest/internal/ingest"
	"gitdigest/internal/metrics"
	"gitdigest/internal/summarize"
	"gitdigest/internal/triage"
)

// Worker executes digest jobs end to end.
type Worker struct {
	runner    *ingest.Runner
	llm       *summarize.Client
	metrics   *metrics.Metrics
	log       *slog.Logger
	outputDir string

	maxSummaries    int
	triageEnabled   bool
	triageConfig    triage.Config
	maxOutputTokens int
}

// WorkerOptions wire the worker's collaborators and policy knobs.
type WorkerOptions struct {
	Runner    *ingest.Runner
	LLM       *summarize.Client
	Metrics   *metrics.Metrics
	Log       *slog.Logger
	OutputDir string

	MaxSummaries    int
	TriageEnabled   bool
	TriageConfig    triage.Config
	MaxOutputTokens int
}

func NewWorker(opts WorkerOptions) *Worker {
	return &Worker{
		runner:          opts.Runner,
		llm:             opts.LLM,
		metrics:         opts.Metrics,
		log:             opts.Log,
		outputDir:       opts.OutputDir,
		maxSummaries:    opts.MaxSummaries,
		triageEnabled:   opts.TriageEnabled,
		triageConfig:    opts.TriageConfig,
		maxOutputTokens: opts.MaxOutputTokens,
	}
}

// Process runs a single job through ingest, triage and summarization. Failures
// mark the job failed; Process itself never panics the worker loop.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "url", job.Request.URL)
	log.Info("job started")

	result, err := w.run(ctx, job, log)
	if err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "failed")
		w.metrics.JobsTotal.WithLabelValues(string(StatusFailed)).Inc()
		log.Error("job failed", "error", err)
		return
	}

	job.SetResult(result)
	job.SetStatus(StatusCompleted, "done")
	w.metrics.JobsTotal.WithLabelValues(string(StatusCompleted)).Inc()
	log.Info("job completed", "output_file", result.OutputFile)
}

func (w *Worker) run(ctx context.Context, job *Job, log *slog.Logger) (*Result, error) {
	req := job.Request

	job.SetStatus(StatusIngesting, "cloning and flattening repository")
	start := time.Now()
	digestText, outputFile, err := w.runner.Run(ctx, ingest.Request{
		URL:             req.URL,
		Token:           req.Token,
		Branch:          req.Branch,
		MaxFileSize:     req.MaxFileSize,
		ExcludePatterns: req.ExcludePatterns,
	})
	w.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if w.maxSummaries > 0 {
		ingest.CleanupOutputs(w.outputDir, w.maxSummaries, log)
	}

	job.SetStatus(StatusAnalyzing, "computing digest statistics")
	result := &Result{
		OutputFile: outputFile,
		Branch:     req.Branch,
		Stats:      digest.ComputeStats(digestText),
	}

	llmInput := digestText
	if w.triageEnabled && req.Triage {
		job.SetStatus(StatusTriaging, "trimming digest to token budget")
		tr := triage.Run(digestText, w.triageConfig, log)
		result.TriageApplied = tr.Applied
		result.PreTriageTokens = tr.PreTokens
		result.PostTriageTokens = tr.PostTokens
		result.FilesDroppedCount = len(tr.FilesDropped)
		w.metrics.ObserveTriage(tr.Applied, tr.PreTokens, tr.PostTokens, len(tr.FilesDropped))
		llmInput = tr.Text
	}

	if req.CallLLM {
		job.SetStatus(StatusSummarizing, "calling llm api")
		raw, err := w.summarizeWithRetry(ctx, llmInput, req, log)
		if err != nil {
			return nil, err
		}
		result.SetSummary(summarize.ParseSummary(raw))

		if err := w.persistResult(outputFile, result); err != nil {
			// The summary still reaches the caller through job state.
			log.Warn("persist summary sidecar", "error", err)
		}
	}

	return result, nil
}

func (w *Worker) summarizeWithRetry(ctx context.Context, digestText string, req Request, log *slog.Logger) (string, error) {
	prompt := summarize.BuildPrompt(req.WordCount, req.Focus)
	maxTokens := w.maxOutputTokens
	if maxTokens <= 0 {
		maxTokens = summarize.MaxOutputTokens(req.WordCount)
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			log.Warn("retrying llm call", "attempt", attempt+1, "wait", wait, "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		start := time.Now()
		raw, err := w.llm.Complete(ctx, prompt, digestText, maxTokens)
		w.metrics.LLMDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return raw, nil
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", MaxRetries, lastErr)
}

// persistResult writes the summary sidecar next to the digest, replacing the
// .txt suffix with _llm.json.
func (w *Worker) persistResult(outputFile string, result *Result) error {
	sidecar := strings.TrimSuffix(outputFile, ".txt") + "_llm.json"
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(sidecar, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", sidecar, err)
	}
	return nil
}
