// Package events publishes domain events and passenger notifications to Kafka.
package events

import (
	"context"

	"github.com/Domenick1991/airreservation/internal/kafka"
	"go.uber.org/zap"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Publisher never fails the caller: delivery errors are logged and dropped,
// since the state change they describe is already committed.
type Publisher struct {
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	logger             *zap.Logger
}

type Option func(*Publisher)

func WithNotificationsTopic(topic string) Option {
	return func(p *Publisher) {
		p.notificationsTopic = topic
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(producer Producer, eventsTopic string, opts ...Option) *Publisher {
	p := &Publisher{
		producer:    producer,
		eventsTopic: eventsTopic,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Booking(ctx context.Context, e kafka.BookingEvent) {
	if p != nil {
		p.publish(ctx, p.eventsTopic, e.Reference, e.Type, e)
	}
}

func (p *Publisher) Payment(ctx context.Context, e kafka.PaymentEvent) {
	if p != nil {
		p.publish(ctx, p.eventsTopic, e.BookingReference, e.Type, e)
	}
}

func (p *Publisher) Flight(ctx context.Context, e kafka.FlightEvent) {
	if p != nil {
		p.publish(ctx, p.eventsTopic, e.FlightNumber, e.Type, e)
	}
}

// Notify skips notifications without a recipient.
func (p *Publisher) Notify(ctx context.Context, n kafka.Notification) {
	if p != nil && n.Email != "" {
		p.publish(ctx, p.notificationsTopic, n.Reference, n.Type, n)
	}
}

func (p *Publisher) publish(ctx context.Context, topic, key string, typ kafka.EventType, payload any) {
	if p.producer == nil || topic == "" {
		return
	}
	if err := p.producer.Publish(ctx, topic, key, payload); err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", string(typ)),
			zap.String("key", key),
			zap.Error(err))
	}
}
