// Package kafka provides an Apache Kafka substrate. Kafka has no subject
// wildcards, so the network transport rejects wildcard filters on it at
// registration time.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/sachinkum0009/upgo/transport"
)

// SubstrateName is the name used to register this substrate.
const SubstrateName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	transport.RegisterWithCapabilities(SubstrateName, Build, transport.KafkaCapabilities)
}

// Build creates a new Kafka substrate.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Substrate, error) {
	brokers := cfg.GetKafkaBrokers()
	consumerGroup := cfg.GetKafkaConsumerGroup()

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		logger,
	)
	if err != nil {
		return transport.Substrate{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:       brokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: consumerGroup,
		},
		logger,
	)
	if err != nil {
		return transport.Substrate{}, err
	}

	return transport.Substrate{
		Publisher:    publisher,
		Subscriber:   subscriber,
		Session:      transport.NewSession(),
		Capabilities: transport.KafkaCapabilities,
	}, nil
}

// Capabilities returns the capabilities of this substrate.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
