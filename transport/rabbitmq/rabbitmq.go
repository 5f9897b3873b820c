// Package rabbitmq provides a RabbitMQ/AMQP substrate.
package rabbitmq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sachinkum0009/upgo/transport"
)

// SubstrateName is the name used to register this substrate.
const SubstrateName = "rabbitmq"

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

// Register registers the RabbitMQ substrate with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the substrate.
func Register() {
	transport.RegisterWithCapabilities(SubstrateName, Build, transport.RabbitMQCapabilities)
}

// Build creates a new RabbitMQ substrate. The publisher and subscriber share
// one connection; the AMQP client reconnects on its own, so the session
// stays connected for its lifetime.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Substrate, error) {
	url := cfg.GetRabbitMQURL()

	amqpConfig := amqp.NewDurablePubSubConfig(
		url,
		amqp.GenerateQueueNameTopicName,
	)

	conn, err := ConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   url,
		TLSConfig: nil,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return transport.Substrate{}, err
	}

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Substrate{}, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Substrate{}, err
	}

	return transport.Substrate{
		Publisher:    publisher,
		Subscriber:   subscriber,
		Session:      transport.NewSession(),
		Capabilities: transport.RabbitMQCapabilities,
	}, nil
}

// Capabilities returns the capabilities of this substrate.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}
