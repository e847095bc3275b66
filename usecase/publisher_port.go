package usecase

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// EventPublisher fans task change events out to live clients so use cases stay transport-agnostic.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}
