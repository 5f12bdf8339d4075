// Package events publishes committed vesting events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vesting-backend/internal/dto"
	"vesting-backend/internal/metrics"

	"github.com/sirupsen/logrus"
)

// MessagePublisher is satisfied by *clients.NATSClient and *nats.Conn.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards events to "<prefix>.<token>.<EventName>" subjects.
type Publisher struct {
	pub    MessagePublisher
	prefix string
	logger *logrus.Entry
}

func NewPublisher(pub MessagePublisher, prefix string, logger *logrus.Logger) *Publisher {
	if prefix == "" {
		prefix = "vesting.events"
	}
	return &Publisher{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger.WithField("component", "nats_publisher"),
	}
}

// Subject returns the subject an event is published on. Events without a
// token (authority rotation) use "contract" as the token segment.
func (p *Publisher) Subject(msg *dto.EventMessage) string {
	token := strings.ToLower(msg.Token)
	if token == "" {
		token = "contract"
	}
	return fmt.Sprintf("%s.%s.%s", p.prefix, token, msg.Name)
}

func (p *Publisher) Name() string { return "nats" }

func (p *Publisher) HandleEventMessage(_ context.Context, msg *dto.EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.Subject(msg)
	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	metrics.NATSMessagesPublished.WithLabelValues(msg.Name).Inc()
	p.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"event_id": msg.EventID,
	}).Debug("Event published")
	return nil
}
