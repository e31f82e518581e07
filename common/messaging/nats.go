// Package messaging publishes frontier lifecycle events over NATS so that
// downstream consumers (dashboards, exporters) can follow a crawl without
// polling the frontier API.
package messaging

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/LexiconIndonesia/frontier-http-service/common/config"
)

// NatsBroker wraps a NATS connection for publishing.
type NatsBroker struct {
	conn *nats.Conn
}

// SetupNatsBroker connects to the configured NATS server.
func SetupNatsBroker(cfg config.Config) (*NatsBroker, error) {
	opts := []nats.Option{
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("server", nc.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}
	if cfg.Nats.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Nats.Username, cfg.Nats.Password))
	}

	conn, err := nats.Connect(cfg.Nats.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NatsBroker{conn: conn}, nil
}

// Publish sends a message on the given subject.
func (b *NatsBroker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Close drains and closes the connection.
func (b *NatsBroker) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection")
	}
}
