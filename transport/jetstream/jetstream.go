// Package jetstream provides a NATS JetStream substrate with durable
// pull consumers and explicit acks.
package jetstream

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/sachinkum0009/upgo/internal/runtime/ids"
	"github.com/sachinkum0009/upgo/transport"
)

// SubstrateName is the name used to register this substrate.
const SubstrateName = "jetstream"

const (
	// DefaultStreamName is the stream used when the config names none.
	DefaultStreamName = "UPGO"

	// DefaultMaxDeliver is the default max delivery attempts.
	DefaultMaxDeliver = 3

	// DefaultAckWait is the default ack wait timeout.
	DefaultAckWait = 30 * time.Second
)

// Register registers the JetStream substrate with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the substrate.
func Register() {
	transport.RegisterWithCapabilities(SubstrateName, Build, transport.JetStreamCapabilities)
}

// Build creates a new JetStream substrate.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Substrate, error) {
	pubSub, err := New(Config{
		URL:        cfg.GetNATSURL(),
		StreamName: cfg.GetJetStreamStream(),
	}, logger)
	if err != nil {
		return transport.Substrate{}, err
	}

	return transport.Substrate{
		Publisher:    pubSub,
		Subscriber:   pubSub,
		Session:      pubSub.session,
		Capabilities: transport.JetStreamCapabilities,
	}, nil
}

// Capabilities returns the capabilities of this substrate.
func Capabilities() transport.Capabilities {
	return transport.JetStreamCapabilities
}

// Config holds JetStream-specific configuration.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the name of the stream to use. Defaults to "UPGO".
	StreamName string

	// MaxDeliver is the maximum number of delivery attempts.
	MaxDeliver int

	// AckWait is the duration to wait for acknowledgment.
	AckWait time.Duration

	// Replicas is the number of stream replicas (for clustering).
	Replicas int
}

func (c Config) withDefaults() Config {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}
	if c.MaxDeliver <= 0 {
		c.MaxDeliver = DefaultMaxDeliver
	}
	if c.AckWait <= 0 {
		c.AckWait = DefaultAckWait
	}
	if c.Replicas <= 0 {
		c.Replicas = 1
	}
	return c
}

// PubSub implements message.Publisher and message.Subscriber over one
// JetStream connection.
type PubSub struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	config  Config
	logger  watermill.LoggerAdapter
	session *transport.Session

	subscriptions map[string]*nats.Subscription
	subMu         sync.Mutex

	closed     bool
	closedMu   sync.RWMutex
	closedChan chan struct{}
}

// New creates a new JetStream pub/sub pair and ensures the stream exists.
func New(cfg Config, logger watermill.LoggerAdapter) (*PubSub, error) {
	cfg = cfg.withDefaults()
	session := transport.NewSession()

	nc, err := nats.Connect(cfg.URL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, _ error) { session.MarkDisconnected() }),
		nats.ReconnectHandler(func(_ *nats.Conn) { session.MarkConnected() }),
		nats.ClosedHandler(func(_ *nats.Conn) { session.MarkDisconnected() }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &PubSub{
		nc:            nc,
		js:            js,
		config:        cfg,
		logger:        logger,
		session:       session,
		subscriptions: make(map[string]*nats.Subscription),
		closedChan:    make(chan struct{}),
	}

	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return p, nil
}

func (p *PubSub) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:      p.config.StreamName,
		Subjects:  []string{p.config.StreamName + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Replicas:  p.config.Replicas,
	}

	if _, err := p.js.AddStream(streamCfg); err != nil {
		if _, err = p.js.UpdateStream(streamCfg); err != nil && p.logger != nil {
			p.logger.Info("JetStream stream exists", watermill.LogFields{
				"stream": p.config.StreamName,
			})
		}
	}
	return nil
}

// Publish publishes messages to the stream.
func (p *PubSub) Publish(topic string, messages ...*message.Message) error {
	p.closedMu.RLock()
	if p.closed {
		p.closedMu.RUnlock()
		return fmt.Errorf("jetstream: substrate is closed")
	}
	p.closedMu.RUnlock()

	subject := p.topicToSubject(topic)

	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set("upgo_uuid", msg.UUID)

		if _, err := p.js.PublishMsg(&nats.Msg{
			Subject: subject,
			Data:    msg.Payload,
			Header:  headers,
		}); err != nil {
			return fmt.Errorf("failed to publish to JetStream: %w", err)
		}
	}
	return nil
}

// Subscribe creates a durable pull consumer for the topic and returns its
// message channel. Wildcard topics become wildcard filter subjects.
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	p.closedMu.RLock()
	if p.closed {
		p.closedMu.RUnlock()
		return nil, fmt.Errorf("jetstream: substrate is closed")
	}
	p.closedMu.RUnlock()

	subject := p.topicToSubject(topic)
	consumerName := p.topicToConsumer(topic)
	output := make(chan *message.Message)

	consumerCfg := &nats.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     nats.AckExplicitPolicy,
		MaxDeliver:    p.config.MaxDeliver,
		AckWait:       p.config.AckWait,
		DeliverPolicy: nats.DeliverAllPolicy,
	}

	if _, err := p.js.AddConsumer(p.config.StreamName, consumerCfg); err != nil {
		if _, err = p.js.UpdateConsumer(p.config.StreamName, consumerCfg); err != nil {
			return nil, fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := p.js.PullSubscribe(subject, consumerName)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	p.subMu.Lock()
	p.subscriptions[topic] = sub
	p.subMu.Unlock()

	go p.fetchMessages(ctx, sub, output, topic)

	return output, nil
}

func (p *PubSub) fetchMessages(ctx context.Context, sub *nats.Subscription, output chan<- *message.Message, topic string) {
	defer close(output)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closedChan:
			return
		default:
		}

		msgs, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			if p.logger != nil {
				p.logger.Error("Failed to fetch messages", err, watermill.LogFields{
					"topic": topic,
				})
			}
			continue
		}

		for _, natsMsg := range msgs {
			wmMsg := p.natsToWatermill(natsMsg)

			select {
			case output <- wmMsg:
				select {
				case <-wmMsg.Acked():
					if err := natsMsg.Ack(); err != nil && p.logger != nil {
						p.logger.Error("Failed to ack", err, nil)
					}
				case <-wmMsg.Nacked():
					if err := natsMsg.Nak(); err != nil && p.logger != nil {
						p.logger.Error("Failed to nak", err, nil)
					}
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *PubSub) natsToWatermill(natsMsg *nats.Msg) *message.Message {
	msgID := natsMsg.Header.Get("upgo_uuid")
	if msgID == "" {
		msgID = ids.New()
	}

	wmMsg := message.NewMessage(msgID, natsMsg.Data)
	for k, v := range natsMsg.Header {
		if len(v) > 0 {
			wmMsg.Metadata.Set(k, v[0])
		}
	}
	return wmMsg
}

func (p *PubSub) topicToSubject(topic string) string {
	return p.config.StreamName + "." + topic
}

// topicToConsumer derives a durable consumer name. Durable names must not
// contain ".", "*", or ">", all of which can appear in topics.
func (p *PubSub) topicToConsumer(topic string) string {
	r := strings.NewReplacer(".", "_", "*", "any", ">", "all")
	return "consumer_" + r.Replace(topic)
}

// Close closes the JetStream substrate.
func (p *PubSub) Close() error {
	p.closedMu.Lock()
	if p.closed {
		p.closedMu.Unlock()
		return nil
	}
	p.closed = true
	close(p.closedChan)
	p.closedMu.Unlock()

	p.subMu.Lock()
	for _, sub := range p.subscriptions {
		sub.Unsubscribe()
	}
	p.subscriptions = make(map[string]*nats.Subscription)
	p.subMu.Unlock()

	p.nc.Close()
	return nil
}
