package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NotAccessibleError indicates the repository could not be cloned: private,
// missing, or rejected credentials. The API layer maps it to 401.
type NotAccessibleError struct {
	Owner string
	Repo  string
}

func (e *NotAccessibleError) Error() string {
	return fmt.Sprintf(
		"repository not accessible: %s/%s (if this is a private repo, provide a GitHub token)",
		e.Owner, e.Repo)
}

// Request describes one ingestion run.
type Request struct {
	URL             string
	Token           string
	Branch          string
	MaxFileSize     int64
	ExcludePatterns []string
}

// Runner shells out to the gitingest CLI, the black-box collaborator that
// clones and flattens a repository.
type Runner struct {
	binary          string
	outputDir       string
	defaultExcludes []string
	log             *slog.Logger
}

// NewRunner resolves the gitingest binary and prepares the output directory.
func NewRunner(binary, outputDir string, defaultExcludes []string, log *slog.Logger) (*Runner, error) {
	if binary == "" {
		binary = "gitingest"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("gitingest binary not found (%q): %w", binary, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Runner{
		binary:          path,
		outputDir:       outputDir,
		defaultExcludes: defaultExcludes,
		log:             log,
	}, nil
}

// Run ingests one repository and returns the digest text along with the
// output file it was written to.
func (r *Runner) Run(ctx context.Context, req Request) (string, string, error) {
	ref, err := ParseRepoURL(req.URL)
	if err != nil {
		return "", "", err
	}

	outputFile := filepath.Join(r.outputDir, ref.Slug()+".txt")

	// An explicit branch is embedded in the URL; gitingest resolves /tree/
	// URLs more reliably than its -b flag.
	repoURL := req.URL
	if req.Branch != "" {
		repoURL = ref.CloneURL(req.Branch)
	}

	args := []string{repoURL, "-o", outputFile}
	if req.Token != "" {
		args = append(args, "-t", req.Token)
	}
	if req.MaxFileSize > 0 {
		args = append(args, "-s", strconv.FormatInt(req.MaxFileSize, 10))
	}
	for _, pat := range r.defaultExcludes {
		args = append(args, "-e", pat)
	}
	for _, pat := range req.ExcludePatterns {
		args = append(args, "-e", pat)
	}

	r.log.Info("running gitingest", "owner", ref.Owner, "repo", ref.Repo, "branch", req.Branch)
	start := time.Now()
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	r.log.Info("gitingest finished", "elapsed", time.Since(start).Round(100*time.Millisecond), "ok", runErr == nil)

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		r.log.Error("gitingest failed", "error", runErr, "stderr", truncate(msg, 500))
		if isAccessError(msg) {
			return "", "", &NotAccessibleError{Owner: ref.Owner, Repo: ref.Repo}
		}
		return "", "", fmt.Errorf("gitingest failed: %s", msg)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return "", "", fmt.Errorf("read digest output: %w", err)
	}
	return string(data), outputFile, nil
}

func isAccessError(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"401", "403", "not found", "authentication", "private"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
