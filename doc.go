// Package upgo is a pluggable publish/subscribe layer with URI-based
// addressing. Every message names its origin as an (authority, entity,
// version, resource) tuple; listeners subscribe with filter patterns over
// the same tuples, where any field can be a wildcard. Both transports
// expose one contract — Send, RegisterListener, UnregisterListener — so
// application code written against Transport runs unchanged in-process and
// across a broker.
//
// # Transports
//
// LocalTransport keeps everything inside the process: Send synchronously
// fans a message out to every matching listener and returns when they all
// ran. NetworkTransport publishes wire envelopes over an opaque pub/sub
// substrate and turns listener filters into broker subscriptions. Five
// substrates ship out of the box:
//   - channel: In-memory Go channels for testing
//   - nats: NATS Core with broker-side wildcard matching
//   - jetstream: NATS JetStream with durable consumers and explicit acks
//   - kafka: High-throughput streaming with consumer groups
//   - rabbitmq: AMQP-based durable queues
//
// Substrates register themselves in the substrate registry; importing one
// (blank import for channel, kafka; Register() for nats, jetstream,
// rabbitmq) makes it buildable from Config.PubSubSystem.
//
// # Registrations
//
// RegisterListener returns an opaque handle and unregistration takes that
// handle, so attaching the same callback twice yields two independent
// registrations that can be removed one at a time.
//
// # Façades
//
// SimplePublisher binds a transport to one StaticUriProvider and publishes
// payloads by resource ID. SimpleNotifier sends point-to-point notices and
// manages listeners for notices from other endpoints. Dispatch middleware
// (recovery, logging, Prometheus metrics, OpenTelemetry tracing) can be
// attached to either transport at construction time.
package upgo
