package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/usecase"
)

// LocalBroadcaster delivers an event to the clients connected to this process.
type LocalBroadcaster interface {
	Broadcast(event domain.ChangeEvent)
}

// RemotePublisher hands an event to a shared channel that every replica consumes.
type RemotePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// EventBridge routes task change events from use cases to live clients.
type EventBridge struct {
	local  LocalBroadcaster
	remote RemotePublisher
	logger *zap.Logger
}

// NewEventBridge builds a bridge. remote may be nil when the process runs alone.
func NewEventBridge(local LocalBroadcaster, remote RemotePublisher, logger *zap.Logger) *EventBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBridge{
		local:  local,
		remote: remote,
		logger: logger.With(zap.String("component", "event_bridge")),
	}
}

// Publish delivers event to local clients and then hands it to the relay, if
// one is configured, for the other replicas. A relay failure is logged and
// never reaches the caller.
func (b *EventBridge) Publish(ctx context.Context, event domain.ChangeEvent) error {
	if b == nil || b.local == nil || !event.Action.Valid() {
		return domain.ErrInvalidPayload
	}

	b.local.Broadcast(event)

	if b.remote != nil {
		if err := b.remote.Publish(ctx, event); err != nil {
			b.logger.Warn("relay publish failed, other replicas will miss the event",
				zap.String("action", string(event.Action)),
				zap.Int64("task_id", event.Task.ID),
				zap.Error(err))
		}
	}
	return nil
}

var _ usecase.EventPublisher = (*EventBridge)(nil)
