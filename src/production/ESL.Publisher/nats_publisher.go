package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
)

// natsConn is the part of *nats.Conn the publisher uses
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	IsConnected() bool
	Drain() error
}

// NATSPublisher publishes label bitmaps as core NATS messages. Topic
// separators become subject tokens: velarc/store_01/AA becomes
// velarc.store_01.AA.
type NATSPublisher struct {
	conn    natsConn
	prefix  string
	timeout time.Duration
	logger  *logger.Logger
}

// NewNATSPublisher connects to cfg.NATS.URL
func NewNATSPublisher(cfg *config.Config, log *logger.Logger) (*NATSPublisher, error) {
	log = log.WithComponent("nats-publisher")

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.NATS.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS connected")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Logger.Error().Err(err).Msg("NATS error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newNATSPublisher(nc, cfg.Publisher.TopicPrefix, cfg.NATS.PublishTimeout, log), nil
}

func newNATSPublisher(conn natsConn, prefix string, timeout time.Duration, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		prefix:  prefix,
		timeout: timeout,
		logger:  log,
	}
}

// Topic returns the slash-separated device topic for address
func (p *NATSPublisher) Topic(address string) string {
	return TopicFor(p.prefix, address)
}

// Subject returns the NATS subject the payload for address is sent on
func (p *NATSPublisher) Subject(address string) string {
	return SubjectFor(p.Topic(address))
}

// Publish sends payload and flushes so that a nil error means the server
// has received it
func (p *NATSPublisher) Publish(ctx context.Context, address string, payload []byte) error {
	subject := p.Subject(address)
	if !p.conn.IsConnected() {
		return fmt.Errorf("publish %s: %w", subject, ErrNotConnected)
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	p.logger.Logger.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("Published label image")
	return nil
}

// IsConnected reports whether the server connection is up
func (p *NATSPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Logger.Warn().Err(err).Msg("NATS drain failed")
	}
}
