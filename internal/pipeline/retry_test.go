package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gitdigest/internal/summarize"
)

func TestIsRetryable(t *testing.T) {
	re := &summarize.RetryableError{StatusCode: 429, Message: "rate limited"}
	if !IsRetryable(re) {
		t.Error("RetryableError not recognized")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", re)) {
		t.Error("wrapped RetryableError not recognized")
	}
	if IsRetryable(errors.New("parse failure")) {
		t.Error("plain error treated as retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil error treated as retryable")
	}
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 20; i++ {
			d := Backoff(attempt)
			if d <= 0 {
				t.Fatalf("Backoff(%d) = %v, want positive", attempt, d)
			}
			if d > 30*time.Second {
				t.Fatalf("Backoff(%d) = %v, over 30s cap", attempt, d)
			}
		}
	}
}

func TestBackoffRanges(t *testing.T) {
	// Backoff(n) is base/2 plus jitter below base/2, so it stays in [base/2, base).
	tests := []struct {
		attempt  int
		min, max time.Duration
	}{
		{0, 500 * time.Millisecond, time.Second},
		{1, time.Second, 2 * time.Second},
		{3, 4 * time.Second, 8 * time.Second},
		{10, 15 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := Backoff(tt.attempt)
			if d < tt.min || d >= tt.max {
				t.Fatalf("Backoff(%d) = %v, want [%v, %v)", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestBackoffNegativeAttempt(t *testing.T) {
	if d := Backoff(-5); d <= 0 || d > 2*time.Second {
		t.Errorf("Backoff(-5) = %v", d)
	}
}
