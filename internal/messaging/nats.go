package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"estatehub/server/internal/models"
)

const (
	DefaultSubject = "listings.events"

	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

var ErrNotConnected = errors.New("nats connection is not initialized")

// Connect opens a NATS connection that logs disconnects and reconnects.
func Connect(url string, logger *logrus.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("EstateHub listing events"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends listing events to a NATS subject as JSON.
type Publisher struct {
	conn    Conn
	subject string
}

func NewPublisher(conn Conn, subject string) (*Publisher, error) {
	if conn == nil {
		return nil, ErrNotConnected
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}, nil
}

// Subject is the subject events are published on, with the event type appended.
func (p *Publisher) Subject(eventType models.EventType) string {
	return p.subject + "." + string(eventType)
}

func (p *Publisher) Publish(ctx context.Context, event models.ListingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}

	subject := p.Subject(event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to NATS subject %s: %w", subject, err)
	}
	return nil
}
