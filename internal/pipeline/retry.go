package pipeline

import (
	"errors"
	"math/rand"
	"time"

	"gitdigest/internal/summarize"
)

// MaxRetries bounds the summarization retry loop per job.
const MaxRetries = 3

const maxBackoff = 30 * time.Second

// IsRetryable reports whether err is a transient provider failure worth
// retrying. Parse errors and 4xx responses other than 429 are permanent.
func IsRetryable(err error) bool {
	var re *summarize.RetryableError
	return errors.As(err, &re)
}

// Backoff returns the wait before the given attempt (0-based), exponential
// with jitter and capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}
