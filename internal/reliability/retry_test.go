package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatalf("nil error should not be retryable")
	}
	if IsRetryableError(context.Canceled) {
		t.Fatalf("cancellation should be terminal")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if !IsRetryableError(fmt.Errorf("dial: %w", fakeNetError{})) {
		t.Fatalf("wrapped net.Error should be retryable")
	}
	if IsRetryableError(errors.New("schema violation")) {
		t.Fatalf("generic errors should not be retryable")
	}
}

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	cap := 800 * time.Millisecond
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, base},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, cap},
		{10, cap},
	}
	for _, tt := range tests {
		if got := ExponentialBackoff(tt.attempt, base, cap); got != tt.want {
			t.Fatalf("ExponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep on canceled ctx = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
}
