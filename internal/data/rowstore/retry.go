package rowstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/yungbote/surveybridge-backend/internal/observability"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/pkg/httpx"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter spreads each delay by ±20%. Off in tests.
	Jitter bool
	// Sleep defaults to ctxutil.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy waits 2,4,8,16,32s across five retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 2 * time.Second, MaxDelay: 32 * time.Second, Jitter: true}
}

// RetryPolicyFromEnv reads STORE_RETRY_MAX, STORE_RETRY_BASE_MS and STORE_RETRY_MAX_MS.
func RetryPolicyFromEnv() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = envutil.Int("STORE_RETRY_MAX", p.MaxRetries)
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	p.BaseDelay = envutil.Millis("STORE_RETRY_BASE_MS", int(p.BaseDelay/time.Millisecond))
	p.MaxDelay = envutil.Millis("STORE_RETRY_MAX_MS", int(p.MaxDelay/time.Millisecond))
	return p
}

// IsRateLimited reports whether err is a transient quota rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if httpx.StatusOf(err) == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "rate limit exceeded")
}

type retryingStore struct {
	inner  Store
	policy RetryPolicy
	log    *logger.Logger
}

// Retrying wraps s so that rate-limited calls are retried with exponential
// backoff. Every other error is returned on first sight.
func Retrying(s Store, policy RetryPolicy, baseLog *logger.Logger) Store {
	if policy.Sleep == nil {
		policy.Sleep = ctxutil.Sleep
	}
	return &retryingStore{inner: s, policy: policy, log: baseLog.With("store", "Retrying")}
}

func (r *retryingStore) EnsureTables(ctx context.Context, tables ...Table) error {
	initer, ok := r.inner.(Initializer)
	if !ok {
		return nil
	}
	return r.do(ctx, "ensure_tables", func() error { return initer.EnsureTables(ctx, tables...) })
}

func (r *retryingStore) FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error) {
	var out []Row
	err := r.do(ctx, "find_rows", func() error {
		rows, err := r.inner.FindRows(ctx, table, match)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, err
}

func (r *retryingStore) AppendRow(ctx context.Context, table Table, values []string) error {
	return r.do(ctx, "append_row", func() error { return r.inner.AppendRow(ctx, table, values) })
}

func (r *retryingStore) UpdateRow(ctx context.Context, table Table, ref int, values []string) error {
	return r.do(ctx, "update_row", func() error { return r.inner.UpdateRow(ctx, table, ref, values) })
}

func (r *retryingStore) DeleteRows(ctx context.Context, table Table, refs []int) error {
	return r.do(ctx, "delete_rows", func() error { return r.inner.DeleteRows(ctx, table, refs) })
}

func (r *retryingStore) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := httpx.Exponential(r.policy.BaseDelay, r.policy.MaxDelay, attempt-1)
			if r.policy.Jitter {
				delay = httpx.JitterSleep(delay)
			}
			r.log.Warn("row store rate limited, retrying", "op", op, "attempt", attempt, "delay", delay.String())
			observability.Current().IncStoreRetry(op)
			if err := r.policy.Sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%s: retry budget of %d exhausted: %w", op, r.policy.MaxRetries, lastErr)
}
