package rowstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type flakyStore struct {
	Store
	failures int
	failWith error
	calls    int
}

func (f *flakyStore) AppendRow(ctx context.Context, table Table, values []string) error {
	f.calls++
	if f.calls <= f.failures {
		return f.failWith
	}
	return f.Store.AppendRow(ctx, table, values)
}

type sleepRecorder struct{ delays []time.Duration }

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func testPolicy(rec *sleepRecorder) RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 2 * time.Second, MaxDelay: 32 * time.Second, Sleep: rec.sleep}
}

func TestRetryingBacksOffOnRateLimit(t *testing.T) {
	rec := &sleepRecorder{}
	inner := &flakyStore{Store: NewMemoryStore(), failures: 3, failWith: &googleapi.Error{Code: 429}}
	s := Retrying(inner, testPolicy(rec), logger.Nop())

	if err := s.AppendRow(context.Background(), testTable, []string{"1", "c", "v"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if inner.calls != 4 {
		t.Fatalf("calls: want=4 got=%d", inner.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if fmt.Sprint(rec.delays) != fmt.Sprint(want) {
		t.Fatalf("delays: want=%v got=%v", want, rec.delays)
	}
}

func TestRetryingExhaustsBudget(t *testing.T) {
	rec := &sleepRecorder{}
	cause := &RateLimitError{Op: "append_row"}
	inner := &flakyStore{Store: NewMemoryStore(), failures: 100, failWith: cause}
	s := Retrying(inner, testPolicy(rec), logger.Nop())

	err := s.AppendRow(context.Background(), testTable, []string{"1", "c", "v"})
	if !errors.Is(err, cause) {
		t.Fatalf("err: want wrapped RateLimitError got=%v", err)
	}
	if inner.calls != 6 {
		t.Fatalf("calls: want=6 got=%d", inner.calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second}
	if fmt.Sprint(rec.delays) != fmt.Sprint(want) {
		t.Fatalf("delays: want=%v got=%v", want, rec.delays)
	}
}

func TestRetryingDoesNotRetryOtherErrors(t *testing.T) {
	rec := &sleepRecorder{}
	boom := errors.New("permission denied")
	inner := &flakyStore{Store: NewMemoryStore(), failures: 1, failWith: boom}
	s := Retrying(inner, testPolicy(rec), logger.Nop())

	if err := s.AppendRow(context.Background(), testTable, []string{"1", "c", "v"}); !errors.Is(err, boom) {
		t.Fatalf("err: want=%v got=%v", boom, err)
	}
	if inner.calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("calls=%d sleeps=%d: want one call and no sleep", inner.calls, len(rec.delays))
	}
}

func TestRetryingSchemaErrorIsFatal(t *testing.T) {
	rec := &sleepRecorder{}
	s := Retrying(NewMemoryStore(), testPolicy(rec), logger.Nop())
	err := s.AppendRow(context.Background(), testTable, []string{"only-one"})
	var se *SchemaError
	if !errors.As(err, &se) || len(rec.delays) != 0 {
		t.Fatalf("want immediate SchemaError got=%v sleeps=%d", err, len(rec.delays))
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &sleepRecorder{}
	inner := &flakyStore{Store: NewMemoryStore(), failures: 100, failWith: &RateLimitError{Op: "x"}}
	s := Retrying(inner, testPolicy(rec), logger.Nop())
	if err := s.AppendRow(ctx, testTable, []string{"1", "c", "v"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err: want context.Canceled got=%v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls: want=1 got=%d", inner.calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&RateLimitError{Op: "x"}, true},
		{fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 429}), true},
		{&googleapi.Error{Code: 500}, false},
		{errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{errors.New("Quota exceeded for quota metric 'Write requests'"), true},
		{errors.New("not found"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Fatalf("IsRateLimited(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}

func TestRetryPolicyFromEnv(t *testing.T) {
	t.Setenv("STORE_RETRY_MAX", "2")
	t.Setenv("STORE_RETRY_BASE_MS", "10")
	t.Setenv("STORE_RETRY_MAX_MS", "")
	p := RetryPolicyFromEnv()
	if p.MaxRetries != 2 || p.BaseDelay != 10*time.Millisecond || p.MaxDelay != 32*time.Second {
		t.Fatalf("RetryPolicyFromEnv: got=%+v", p)
	}
}

func TestThrottledPassesThrough(t *testing.T) {
	inner := NewMemoryStore()
	if got := Throttled(inner, 0, 1); got != inner {
		t.Fatalf("Throttled(0): want inner store back")
	}
	s := Throttled(inner, rate.Inf, 1)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := s.AppendRow(ctx, testTable, []string{"1", "c", "v"}); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	rows, _ := s.FindRows(ctx, testTable, All)
	if len(rows) != 3 {
		t.Fatalf("rows: want=3 got=%d", len(rows))
	}
}

func TestThrottledHonoursCancel(t *testing.T) {
	s := Throttled(NewMemoryStore(), rate.Every(time.Hour), 1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.AppendRow(ctx, testTable, []string{"1", "c", "v"}); err != nil {
		t.Fatalf("first AppendRow: %v", err)
	}
	cancel()
	if err := s.AppendRow(ctx, testTable, []string{"2", "c", "v"}); err == nil {
		t.Fatalf("second AppendRow: want error after cancel")
	}
}
