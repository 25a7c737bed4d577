package rowstore

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
)

type throttledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// Throttled paces mutating calls to at most limit per second. Reads pass
// straight through. A non-positive limit disables pacing.
func Throttled(s Store, limit rate.Limit, burst int) Store {
	if limit <= 0 {
		return s
	}
	if burst < 1 {
		burst = 1
	}
	return &throttledStore{inner: s, limiter: rate.NewLimiter(limit, burst)}
}

// ThrottledFromEnv reads STORE_WRITES_PER_SECOND and STORE_WRITE_BURST.
func ThrottledFromEnv(s Store) Store {
	return Throttled(s, rate.Limit(envutil.Float("STORE_WRITES_PER_SECOND", 0)), envutil.Int("STORE_WRITE_BURST", 1))
}

func (t *throttledStore) EnsureTables(ctx context.Context, tables ...Table) error {
	if initer, ok := t.inner.(Initializer); ok {
		return initer.EnsureTables(ctx, tables...)
	}
	return nil
}

func (t *throttledStore) FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error) {
	return t.inner.FindRows(ctx, table, match)
}

func (t *throttledStore) AppendRow(ctx context.Context, table Table, values []string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.AppendRow(ctx, table, values)
}

func (t *throttledStore) UpdateRow(ctx context.Context, table Table, ref int, values []string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.UpdateRow(ctx, table, ref, values)
}

func (t *throttledStore) DeleteRows(ctx context.Context, table Table, refs []int) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.DeleteRows(ctx, table, refs)
}
