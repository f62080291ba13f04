// Package notification publishes wallet events for downstream consumers
// (push notifications, analytics).
package notification

import (
	"context"
	"fmt"

	"amafaranga/internal/messaging/rabbitmq"
)

// Exchange is the topic exchange wallet events are published on.
const Exchange = "wallet.events"

// Service publishes events on Exchange.
type Service struct {
	publisher rabbitmq.Publisher
	exchange  string
}

// NewService creates a new notification service.
func NewService(publisher rabbitmq.Publisher) *Service {
	return &Service{publisher: publisher, exchange: Exchange}
}

// Publish sends payload under routingKey.
func (s *Service) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

func (s *Service) Close() {
	s.publisher.Close()
}
