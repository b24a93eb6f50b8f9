package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher forwards events to NATS subjects such as
// "tablebook.booking.created" and "tablebook.notify.send".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zerolog.Logger
}

func NewNATSPublisher(url, prefix string, logger *zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("tablebook"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject maps an event type onto its NATS subject.
func Subject(prefix, eventType string) string {
	subject := strings.ReplaceAll(eventType, "_", ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}

func (p *NATSPublisher) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	subject := Subject(p.prefix, eventType)
	p.logger.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("Publishing event")
	return p.conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Publisher is satisfied by EventBus and NATSPublisher.
type Publisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// MultiPublisher fans an event out to every publisher and reports all failures.
type MultiPublisher []Publisher

func (m MultiPublisher) PublishJSON(eventType string, payload interface{}) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishJSON(eventType, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
