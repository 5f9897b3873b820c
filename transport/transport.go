// Package transport defines the uniform messaging contract shared by the
// in-process and network transports, plus the substrate registry the network
// transport builds on. Each substrate implementation (nats, kafka, rabbitmq,
// etc.) lives in its own sub-package and registers itself here.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sachinkum0009/upgo/internal/runtime/registry"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
)

// Listener receives messages matched by a registered filter.
type Listener = registry.Listener

// ListenerFunc adapts a plain function to the Listener capability.
type ListenerFunc = registry.ListenerFunc

// Handle identifies one registration. Unregistration requires the handle
// issued at registration time; the listener value itself carries no identity.
type Handle = registry.Handle

// Transport is the uniform contract both the in-process and the network
// transport satisfy. Callers write against this interface and swap the
// backing at wiring time.
type Transport interface {
	// Send delivers a message addressed by its URIs. Publish messages fan
	// out to matching listeners; notifications additionally carry a sink.
	Send(ctx context.Context, msg umessage.Message) error

	// RegisterListener attaches a listener under a filter pattern and
	// returns the handle needed to detach it. Wildcard fields in the
	// filter match any value.
	RegisterListener(ctx context.Context, filter uri.UUri, l Listener) (Handle, error)

	// UnregisterListener detaches the (filter, handle) registration.
	UnregisterListener(ctx context.Context, filter uri.UUri, h Handle) error

	// Close releases the transport. Subsequent Sends fail.
	Close() error
}

// Substrate is the publisher/subscriber pair plus session state produced by
// a Builder. The network transport treats it as an opaque pub/sub fabric.
type Substrate struct {
	Publisher    message.Publisher
	Subscriber   message.Subscriber
	Session      *Session
	Capabilities Capabilities
}

// Builder creates a substrate from config. Each substrate package provides
// one and registers it under its PubSubSystem name.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Substrate, error)

// Config provides the configuration values substrates need. The interface
// keeps substrate packages decoupled from the full config package.
type Config interface {
	// GetPubSubSystem returns the substrate name.
	GetPubSubSystem() string

	// NATS / JetStream
	GetNATSURL() string
	GetJetStreamStream() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaConsumerGroup() string

	// RabbitMQ
	GetRabbitMQURL() string
}
