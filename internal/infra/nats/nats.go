// Package nats wraps the NATS connection used to forward domain events to
// external consumers. Subjects are confess.events.<kind>.
package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/events"
)

const subjectPrefix = "confess.events."

type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

type Client struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info("nats connected", zap.String("url", nc.ConnectedUrl()))

	return &Client{conn: nc, logger: log}, nil
}

// Deliver implements events.Sink: the event is marshalled to JSON and
// published to confess.events.<kind>. Publish errors are logged, not
// propagated; event forwarding is best-effort and never fails a command.
func (c *Client) Deliver(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Warn("marshal event for nats", zap.Error(err))
		return
	}

	subject := subjectPrefix + string(event.EventKind())
	if err := c.conn.Publish(subject, data); err != nil {
		c.logger.Warn("publish event to nats", zap.String("subject", subject), zap.Error(err))
	}
}

// Close drains the connection so queued events are flushed before shutdown.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain", zap.Error(err))
	}
}
