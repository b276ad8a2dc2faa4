package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"gitdigest/internal/ingest"
	"gitdigest/internal/pipeline"
	"gitdigest/internal/summarize"
)

// previewLimit caps how much of a digest the preview endpoint returns.
const previewLimit = 64 * 1024

// summarizeRequest is the POST /api/v1/summarize body. Interactive API
// explorers submit the literal placeholder "string" for fields the user left
// untouched, so those values are treated as absent.
type summarizeRequest struct {
	URL             string   `json:"github_url"`
	Token           string   `json:"github_token"`
	Branch          string   `json:"branch"`
	MaxFileSize     int64    `json:"max_size"`
	WordCount       int      `json:"word_count"`
	CallLLM         *bool    `json:"call_llm_api"`
	ExcludePatterns []string `json:"exclude_patterns"`
	Focus           string   `json:"focus"`
	Triage          *bool    `json:"triage"`
}

func cleanPlaceholder(v string) string {
	if strings.TrimSpace(v) == "string" {
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.URL = cleanPlaceholder(req.URL)
	req.Token = cleanPlaceholder(req.Token)
	req.Branch = cleanPlaceholder(req.Branch)
	req.Focus = cleanPlaceholder(req.Focus)

	if req.URL == "" {
		jsonError(w, "github_url is required", http.StatusBadRequest)
		return
	}
	if _, err := ingest.ParseRepoURL(req.URL); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.MaxFileSize <= 0 {
		req.MaxFileSize = s.cfg.DefaultMaxSize
	}
	if req.WordCount <= 0 {
		req.WordCount = s.cfg.DefaultWordCount
	}
	callLLM := true
	if req.CallLLM != nil {
		callLLM = *req.CallLLM
	}
	triage := true
	if req.Triage != nil {
		triage = *req.Triage
	}

	var excludes []string
	for _, p := range req.ExcludePatterns {
		if p = cleanPlaceholder(p); p != "" {
			excludes = append(excludes, p)
		}
	}

	job, err := s.orchestrator.Submit(pipeline.Request{
		URL:             req.URL,
		Token:           req.Token,
		Branch:          req.Branch,
		MaxFileSize:     req.MaxFileSize,
		WordCount:       req.WordCount,
		CallLLM:         callLLM,
		ExcludePatterns: excludes,
		Focus:           req.Focus,
		Triage:          triage,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/v1/summarize/%s", job.ID),
	})
}

func (s *Server) handleSummarizeStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()

	status := http.StatusOK
	if snap.Status == pipeline.StatusFailed && accessDenied(snap.Errors) {
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(snap)
}

// accessDenied reports whether a failed job died on repository access, so the
// poll response can carry 401 instead of a generic failure.
func accessDenied(errs []string) bool {
	for _, e := range errs {
		if strings.HasPrefix(e, "repository not accessible") {
			return true
		}
	}
	return false
}

func (s *Server) handleDownloadDigest(w http.ResponseWriter, r *http.Request) {
	path, ok := s.digestPath(w, chi.URLParam(r, "filename"))
	if !ok {
		return
	}

	if strings.HasSuffix(path, ".json") {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handlePreviewDigest(w http.ResponseWriter, r *http.Request) {
	path, ok := s.digestPath(w, chi.URLParam(r, "filename"))
	if !ok {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, "read digest: "+err.Error(), http.StatusInternalServerError)
		return
	}
	truncated := len(data) > previewLimit
	if truncated {
		data = data[:previewLimit]
	}

	if r.URL.Query().Get("format") == "html" {
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		source := []byte("```text\n" + string(data) + "\n```")
		var buf bytes.Buffer
		if err := md.Convert(source, &buf); err != nil {
			jsonError(w, "render preview: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		buf.WriteTo(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"filename":  filepath.Base(path),
		"content":   string(data),
		"truncated": truncated,
	})
}

// digestPath validates a digest filename and resolves it within the output
// directory. Only .txt digests and their _llm.json sidecars are reachable.
func (s *Server) digestPath(w http.ResponseWriter, filename string) (string, bool) {
	name := filepath.Base(filename)
	if name == "" || name == "." || strings.Contains(name, "..") {
		jsonError(w, "invalid filename", http.StatusBadRequest)
		return "", false
	}
	if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".json") {
		jsonError(w, "only .txt and .json digest files are served", http.StatusBadRequest)
		return "", false
	}

	path := filepath.Join(s.cfg.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jsonError(w, "digest not found", http.StatusNotFound)
		} else {
			jsonError(w, "stat digest: "+err.Error(), http.StatusInternalServerError)
		}
		return "", false
	}
	return path, true
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"prompt":             summarize.DefaultPrompt,
		"default_word_count": s.cfg.DefaultWordCount,
		"model":              s.llm.Model(),
	})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"model":   s.llm.Model(),
		"latency": s.llm.Stats.Snapshot(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
