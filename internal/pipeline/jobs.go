// Package pipeline runs digest jobs: ingest, triage, summarize, persist.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"gitdigest/internal/digest"
	"gitdigest/internal/summarize"
)

// JobStatus represents the state of a digest job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusIngesting   JobStatus = "ingesting"
	StatusAnalyzing   JobStatus = "analyzing"
	StatusTriaging    JobStatus = "triaging"
	StatusSummarizing JobStatus = "summarizing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Request carries the caller's parameters for one digest run.
type Request struct {
	URL             string   `json:"github_url"`
	Token           string   `json:"-"`
	Branch          string   `json:"branch,omitempty"`
	MaxFileSize     int64    `json:"max_size,omitempty"`
	WordCount       int      `json:"word_count,omitempty"`
	CallLLM         bool     `json:"call_llm_api"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	Focus           string   `json:"focus,omitempty"`
	Triage          bool     `json:"triage"`
}

// Result is the final output of a digest job, persisted as the _llm.json
// sidecar and returned from the status endpoint.
type Result struct {
	OutputFile string       `json:"output_file"`
	Branch     string       `json:"branch"`
	Stats      digest.Stats `json:"digest_stats"`

	TriageApplied     bool `json:"triage_applied"`
	PreTriageTokens   int  `json:"pre_triage_tokens"`
	PostTriageTokens  int  `json:"post_triage_tokens"`
	FilesDroppedCount int  `json:"files_dropped_count"`

	Summary      string   `json:"summary,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Structure    string   `json:"structure,omitempty"`
}

// SetSummary copies the parsed LLM response onto the result.
func (r *Result) SetSummary(s summarize.Summary) {
	r.Summary = s.Summary
	r.Technologies = s.Technologies
	r.Structure = s.Structure
}

// NewJob creates a queued job with a fresh ID for the given request.
func NewJob(req Request) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusQueued,
		Phase:     "waiting for worker",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PhaseChange records when a job entered a status.
type PhaseChange struct {
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`
	At     time.Time `json:"at"`
}

// Job tracks the state of a single digest run.
type Job struct {
	mu sync.Mutex

	ID      string
	Request Request

	Status JobStatus
	Phase  string
	Result *Result

	CreatedAt time.Time
	UpdatedAt time.Time

	history []PhaseChange
	errors  []string
}

// SetStatus updates job status atomically and appends to the phase history.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = now
	j.history = append(j.history, PhaseChange{Status: status, Phase: phase, At: now})
}

// AddError records an error message.
func (j *Job) AddError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, msg)
	j.UpdatedAt = time.Now()
}

// SetResult attaches the final result.
func (j *Job) SetResult(r *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = r
	j.UpdatedAt = time.Now()
}

// Snapshot is a read-only, JSON-safe copy of job state.
type Snapshot struct {
	ID        string        `json:"job_id"`
	URL       string        `json:"github_url"`
	Status    JobStatus     `json:"status"`
	Phase     string        `json:"phase"`
	History   []PhaseChange `json:"history"`
	Errors    []string      `json:"errors"`
	Result    *Result       `json:"result,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	hist := make([]PhaseChange, len(j.history))
	copy(hist, j.history)
	var result *Result
	if j.Result != nil {
		r := *j.Result
		result = &r
	}
	return Snapshot{
		ID:        j.ID,
		URL:       j.Request.URL,
		Status:    j.Status,
		Phase:     j.Phase,
		History:   hist,
		Errors:    errs,
		Result:    result,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
		}
	}
}
