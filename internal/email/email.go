package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/airreservation/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Sender delivers passenger notifications. Delivery is a structured log line
// until a mail provider is configured.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(_ context.Context, n kafka.Notification) error {
	if n.Email == "" {
		return ErrNoRecipient
	}
	s.logger.Info("send email",
		zap.String("to", n.Email),
		zap.String("type", string(n.Type)),
		zap.String("reference", n.Reference),
		zap.String("subject", n.Subject))
	return nil
}

// Handle decodes a notification from the notifications topic and sends it.
func (s *Sender) Handle(ctx context.Context, msg kafkago.Message) error {
	var n kafka.Notification
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return fmt.Errorf("decode notification at offset %d: %w", msg.Offset, err)
	}
	return s.Send(ctx, n)
}
