package transfer

import (
	"context"

	"amafaranga/internal/models"
)

// RecipientResolver maps a card number to its account.
type RecipientResolver interface {
	Resolve(ctx context.Context, cardNumber string) (*models.Account, error)
}

// EventPublisher delivers domain events. Failures never undo a transfer.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}
