package utils

import (
	"context"
	"errors"
	"testing"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, Logger: NewDiscardLogger()}
	calls := 0

	err := r.Do(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	sentinel := errors.New("boom")
	r := &RetryConfig{MaxAttempts: 2, Logger: NewDiscardLogger()}

	err := r.Do(context.Background(), "op", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("error should wrap sentinel, got %v", err)
	}
}
