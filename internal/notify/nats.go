package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/nats-io/nats.go"
)

// Conn is the subset of *nats.Conn used by the bridge.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSBridge forwards notifications to NATS subjects named "<prefix>.<topic>".
type NATSBridge struct {
	conn   Conn
	closer func()
	prefix string
	topics []events.Topic
	log    *logger.Logger

	unsubscribe func()
}

// ConnectNATS dials the configured server and returns a bridge over the connection.
func ConnectNATS(cfg *config.NATSConfig, log *logger.Logger) (*NATSBridge, error) {
	opts := []nats.Option{
		nats.Name("chainreplay"),
		nats.ReconnectWait(2 * time.Second), //nolint:mnd
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	topics := make([]events.Topic, 0, len(cfg.Topics))
	for _, t := range cfg.Topics {
		topics = append(topics, events.Topic(t))
	}

	b := NewNATSBridge(nc, cfg.SubjectPrefix, topics, log)
	b.closer = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}

	return b, nil
}

// NewNATSBridge creates a bridge over an existing connection.
func NewNATSBridge(conn Conn, prefix string, topics []events.Topic, log *logger.Logger) *NATSBridge {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &NATSBridge{
		conn:   conn,
		prefix: prefix,
		topics: topics,
		log:    log,
	}
}

// Attach subscribes the bridge to the notifier.
func (b *NATSBridge) Attach(n *Notifier) {
	b.unsubscribe = n.Subscribe(b.forward, b.topics...)
}

// Subject returns the subject a topic is published on.
func (b *NATSBridge) Subject(topic events.Topic) string {
	if b.prefix == "" {
		return string(topic)
	}
	return b.prefix + "." + string(topic)
}

func (b *NATSBridge) forward(msg events.Notification) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Errorw("failed to encode notification", "topic", msg.Topic, "error", err)
		return
	}

	if err := b.conn.Publish(b.Subject(msg.Topic), data); err != nil {
		b.log.Warnw("failed to publish notification", "topic", msg.Topic, "error", err)
		natsPublishErrorsInc()
		return
	}
}

// Close detaches the bridge and drains the connection it owns.
func (b *NATSBridge) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	if b.closer != nil {
		b.closer()
	}
}
