// Package nats provides a NATS Core substrate. Core NATS matches wildcard
// subjects broker-side and reports connection loss through client handlers,
// so the session events feed the disconnect notices.
package nats

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/sachinkum0009/upgo/transport"
)

// SubstrateName is the name used to register this substrate.
const SubstrateName = "nats"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

// Register registers the NATS substrate with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the substrate.
func Register() {
	transport.RegisterWithCapabilities(SubstrateName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS Core substrate.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Substrate, error) {
	url := cfg.GetNATSURL()
	marshaler := &nats.NATSMarshaler{}
	session := transport.NewSession()

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:         url,
			Marshaler:   marshaler,
			NatsOptions: sessionOptions(session),
		},
		logger,
	)
	if err != nil {
		return transport.Substrate{}, err
	}

	subscriber, err := SubscriberFactory(
		nats.SubscriberConfig{
			URL:         url,
			Unmarshaler: marshaler,
			NatsOptions: sessionOptions(session),
		},
		logger,
	)
	if err != nil {
		return transport.Substrate{}, err
	}

	return transport.Substrate{
		Publisher:    publisher,
		Subscriber:   subscriber,
		Session:      session,
		Capabilities: transport.NATSCapabilities,
	}, nil
}

// sessionOptions bridges the client's connection handlers onto the session.
// The subscriber's connection drives the disconnect notices; the publisher
// shares the same session so either link going down marks it.
func sessionOptions(session *transport.Session) []natsgo.Option {
	return []natsgo.Option{
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, _ error) {
			session.MarkDisconnected()
		}),
		natsgo.ReconnectHandler(func(_ *natsgo.Conn) {
			session.MarkConnected()
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			session.MarkDisconnected()
		}),
	}
}

// Capabilities returns the capabilities of this substrate.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}
