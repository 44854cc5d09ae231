package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("connection reset")}
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   bool
	}{
		{"success first try", nil, 1, false},
		{"recovers after transient", []error{transient, transient}, 3, false},
		{"gives up after attempts", []error{transient, transient, transient, transient}, 3, true},
		{"permanent stops immediately", []error{permanent}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), 3, time.Millisecond, func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Retry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("down")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), 2, time.Hour, func() error {
		calls++
		if calls == 1 {
			return &RetryableError{Err: errors.New("busy"), After: time.Millisecond}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("Retry() = %v after %d calls", err, calls)
	}
	if took := time.Since(start); took > time.Second {
		t.Errorf("Retry waited %v, want the Retry-After wait", took)
	}
}

func TestCheckStatusRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"soon", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		if tt.header != "" {
			rec.Header().Set("Retry-After", tt.header)
		}
		rec.WriteHeader(http.StatusServiceUnavailable)
		var re *RetryableError
		if err := CheckStatus(rec.Result()); !errors.As(err, &re) {
			t.Fatalf("CheckStatus(503) = %v, want RetryableError", err)
		}
		if re.After != tt.want {
			t.Errorf("Retry-After %q: After = %v, want %v", tt.header, re.After, tt.want)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   bool
		retryable bool
	}{
		{200, false, false},
		{204, false, false},
		{400, true, false},
		{404, true, false},
		{http.StatusTooManyRequests, true, true},
		{500, true, true},
		{503, true, true},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		rec.WriteHeader(tt.code)
		_, _ = rec.WriteString("detail\n")
		err := CheckStatus(rec.Result())
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckStatus(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			continue
		}
		if got := isRetryable(err); got != tt.retryable {
			t.Errorf("CheckStatus(%d) retryable = %v, want %v", tt.code, got, tt.retryable)
		}
		var se *StatusError
		if tt.wantErr && (!errors.As(err, &se) || se.Code != tt.code || se.Body != "detail") {
			t.Errorf("CheckStatus(%d) = %#v, want StatusError with body", tt.code, err)
		}
	}
}
