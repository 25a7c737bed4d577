package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig()
	if cfg.Namespace != "surveybridge" || cfg.TaskQueue != "surveybridge-ingest" {
		t.Fatalf("defaults: got=%+v", cfg)
	}
}

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{10, 2 * time.Second},
	}
	for _, c := range cases {
		if got := ClampBackoff(250*time.Millisecond, 2*time.Second, c.attempt); got != c.want {
			t.Fatalf("attempt %d: want=%v got=%v", c.attempt, c.want, got)
		}
	}
	if got := ClampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base: want=250ms got=%v", got)
	}
}

func TestWindowRetryStopsOnPermanentError(t *testing.T) {
	w := window{MaxWait: time.Minute, Backoff: time.Millisecond, BackoffMax: time.Millisecond}
	calls := 0
	permanent := errors.New("bad request")
	err := w.retry(context.Background(), nil, "test", func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return true, status.Error(codes.Unavailable, "down")
		}
		return false, permanent
	})
	if !errors.Is(err, permanent) || calls != 3 {
		t.Fatalf("retry: want permanent after 3 calls got err=%v calls=%d", err, calls)
	}
}

func TestWindowRetryZeroWaitIsSingleAttempt(t *testing.T) {
	calls := 0
	err := window{}.retry(context.Background(), nil, "test", func(context.Context) (bool, error) {
		calls++
		return true, errors.New("unreachable")
	})
	if err == nil || calls != 1 {
		t.Fatalf("retry: want one failed attempt got err=%v calls=%d", err, calls)
	}
}

func TestRetryableRPC(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{status.Error(codes.Unavailable, "x"), true},
		{status.Error(codes.ResourceExhausted, "x"), true},
		{status.Error(codes.PermissionDenied, "x"), false},
		{context.DeadlineExceeded, true},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := retryableRPC(tc.err); got != tc.want {
			t.Fatalf("retryableRPC(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}

func TestClientOptionsRequiresCertAndKeyTogether(t *testing.T) {
	cfg := Config{Address: "localhost:7233", Namespace: "surveybridge", ClientCertPath: "/tmp/cert.pem"}
	if _, err := cfg.clientOptions(nil); err == nil {
		t.Fatalf("clientOptions: want error for cert without key")
	}
	opts, err := Config{Address: "localhost:7233", Namespace: "ns"}.clientOptions(nil)
	if err != nil || opts.HostPort != "localhost:7233" || opts.Namespace != "ns" || opts.ConnectionOptions.TLS != nil {
		t.Fatalf("clientOptions plain: err=%v opts=%+v", err, opts)
	}
}

func TestDialWithoutAddressIsDisabled(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	c, err := Dial(context.Background(), nil)
	if err != nil || c != nil {
		t.Fatalf("Dial: want nil client and nil error got c=%v err=%v", c, err)
	}
}
