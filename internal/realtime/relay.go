package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

const resubscribeDelay = time.Second

// Relay shares change events between replicas through a Redis channel.
// Each replica broadcasts its own mutations locally, so the relay skips
// messages that carry its own origin.
type Relay struct {
	origin   string
	client   *redis.Client
	channel  string
	registry *Registry
	logger   *zap.Logger
}

// NewRelay wires a Redis client to the local registry.
func NewRelay(client *redis.Client, channel string, registry *Registry, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := uuid.NewString()
	return &Relay{
		origin:   origin,
		client:   client,
		channel:  channel,
		registry: registry,
		logger:   logger.With(zap.String("component", "realtime_relay"), zap.String("channel", channel), zap.String("origin", origin)),
	}
}

// relayMessage is the payload published on the channel.
type relayMessage struct {
	Origin string             `json:"origin"`
	Event  domain.ChangeEvent `json:"event"`
}

// Publish sends event to every other subscribed replica.
func (r *Relay) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Event: event})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run subscribes to the channel and feeds the registry until ctx ends,
// resubscribing whenever the subscription drops.
func (r *Relay) Run(ctx context.Context) error {
	for {
		sub := r.client.Subscribe(ctx, r.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Warn("subscribe failed", zap.Error(err))
		} else {
			r.logger.Info("subscribed to change events")
			r.consume(ctx, sub.Channel())
			_ = sub.Close()
		}

		if ctx.Err() != nil {
			return nil
		}
		r.logger.Warn("subscription closed, resubscribing")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(resubscribeDelay):
		}
	}
}

func (r *Relay) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				r.logger.Error("unable to parse change event", zap.Error(err))
				continue
			}
			if relayed.Origin == r.origin {
				continue
			}
			event := relayed.Event
			if !event.Action.Valid() {
				r.logger.Warn("ignoring change event with unknown action", zap.String("action", string(event.Action)))
				continue
			}
			r.registry.Broadcast(event)
		}
	}
}
