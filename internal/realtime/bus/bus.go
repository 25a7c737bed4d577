package bus

import (
	"context"

	"github.com/yungbote/surveybridge-backend/internal/realtime"
)

// Bus carries ingestion events between processes (HTTP server, worker, CLI).
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

type localBus struct {
	hub *realtime.Hub
}

// NewLocalBus delivers straight to an in-process hub. Used when no
// REDIS_ADDR is configured.
func NewLocalBus(hub *realtime.Hub) Bus {
	return &localBus{hub: hub}
}

func (b *localBus) Publish(ctx context.Context, ev realtime.Event) error {
	if b.hub != nil {
		b.hub.Broadcast(ev)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	return nil
}

func (b *localBus) Close() error { return nil }
