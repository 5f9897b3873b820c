package transport

// Capabilities describes the features of a substrate backend. The network
// transport uses it to decide whether wildcard filters can be pushed down to
// the broker and whether session-loss notices will ever fire.
type Capabilities struct {
	// Name is the human-readable name of the substrate.
	Name string

	// Version is the substrate/driver version.
	Version string

	// SupportsOrdering indicates the substrate preserves publish order
	// within one topic.
	SupportsOrdering bool

	// SupportsWildcards indicates the substrate matches wildcard topic
	// subscriptions broker-side. When false, the network transport rejects
	// wildcard filters at registration time.
	SupportsWildcards bool

	// SupportsSessionEvents indicates the substrate reports connection
	// loss and recovery through its Session.
	SupportsSessionEvents bool

	// SupportsAck indicates the substrate supports explicit message
	// acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the substrate supports negative
	// acknowledgment (redelivery).
	SupportsNack bool

	// MaxMessageSize is the maximum message size in bytes (0 = unlimited/unknown).
	MaxMessageSize int64
}

// RequiresLocalFiltering reports whether the broker cannot match wildcard
// subscriptions itself. Such substrates only take non-wildcard filters.
func (c Capabilities) RequiresLocalFiltering() bool {
	return !c.SupportsWildcards
}

// SupportsReliableDelivery reports at-least-once semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the bundled substrates.
var (
	// ChannelCapabilities for the in-memory Go channel substrate.
	ChannelCapabilities = Capabilities{
		Name:                  "channel",
		SupportsOrdering:      true,
		SupportsWildcards:     false,
		SupportsSessionEvents: false,
		SupportsAck:           true,
		SupportsNack:          true,
	}

	// NATSCapabilities for the core NATS substrate.
	NATSCapabilities = Capabilities{
		Name:                  "nats",
		SupportsOrdering:      true,
		SupportsWildcards:     true,
		SupportsSessionEvents: true,
		SupportsAck:           false,
		SupportsNack:          false,
		MaxMessageSize:        1048576, // Default 1MB
	}

	// JetStreamCapabilities for the NATS JetStream substrate.
	JetStreamCapabilities = Capabilities{
		Name:                  "jetstream",
		SupportsOrdering:      true,
		SupportsWildcards:     true,
		SupportsSessionEvents: true,
		SupportsAck:           true,
		SupportsNack:          true,
		MaxMessageSize:        1048576, // Default 1MB
	}

	// KafkaCapabilities for the Apache Kafka substrate.
	KafkaCapabilities = Capabilities{
		Name:                  "kafka",
		SupportsOrdering:      true,
		SupportsWildcards:     false,
		SupportsSessionEvents: false,
		SupportsAck:           true,
		SupportsNack:          false,
		MaxMessageSize:        1048576, // Default 1MB
	}

	// RabbitMQCapabilities for the RabbitMQ/AMQP substrate.
	RabbitMQCapabilities = Capabilities{
		Name:                  "rabbitmq",
		SupportsOrdering:      true,
		SupportsWildcards:     false,
		SupportsSessionEvents: false,
		SupportsAck:           true,
		SupportsNack:          true,
	}
)

// GetCapabilities returns the capabilities registered for a substrate name.
// Returns a zero Capabilities struct carrying only the name when unknown.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
