package network

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alphadose/haxmap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/logging"
	"github.com/sachinkum0009/upgo/internal/runtime/registry"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
	"github.com/sachinkum0009/upgo/transport"
)

// Metadata keys stamped on outgoing substrate messages. The envelope itself
// carries the same information; the metadata makes it visible to broker-side
// tooling without decoding payloads.
const (
	MetadataSource = "upgo_source"
	MetadataSink   = "upgo_sink"
	MetadataKind   = "upgo_kind"
	MetadataFormat = "upgo_format"
)

// Transport is the substrate-backed implementation of transport.Transport.
type Transport struct {
	authority string
	substrate transport.Substrate
	logger    logging.ServiceLogger
	tracer    trace.Tracer

	// listeners keeps the registrations for handle identity and for the
	// session-loss broadcast. Per-message delivery goes through the
	// subscription that received it, never through Dispatch, so two
	// overlapping filters each see only their own substrate copy.
	listeners *registry.Registry
	wrap      registry.Middleware
	subs      *haxmap.Map[string, *subscription]

	rootCtx    context.Context
	rootCancel context.CancelFunc
	closed     atomic.Bool
}

var _ transport.Transport = (*Transport)(nil)

type subscription struct {
	filter uri.UUri
	cancel context.CancelFunc
}

func newTransport(authority string, sub transport.Substrate, logger logging.ServiceLogger, middleware []registry.Middleware) *Transport {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	t := &Transport{
		authority: authority,
		substrate: sub,
		logger:    logger,
		tracer:    otel.Tracer("github.com/sachinkum0009/upgo"),
		listeners: registry.New(
			registry.WithLogger(logger),
			registry.WithMiddleware(middleware...),
		),
		wrap:       registry.Chain(middleware...),
		subs:       haxmap.New[string, *subscription](),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}

	sub.Session.Watch(func(state transport.SessionState) {
		if state == transport.SessionDisconnected {
			t.logger.Error("substrate session lost", errspkg.ErrNotConnected, logging.LogFields{
				"authority": authority,
			})
			t.listeners.Broadcast(t.rootCtx, umessage.NewDisconnect(authority))
			return
		}
		t.logger.Info("substrate session restored", logging.LogFields{
			"authority": authority,
		})
	})

	return t
}

// Authority returns the authority this transport was built for.
func (t *Transport) Authority() string {
	return t.authority
}

// Capabilities returns the backing substrate's capabilities.
func (t *Transport) Capabilities() transport.Capabilities {
	return t.substrate.Capabilities
}

// Send encodes the message as a wire envelope and publishes it on the topic
// derived from its source URI. Sends fail fast while the substrate session
// is down.
func (t *Transport) Send(ctx context.Context, msg umessage.Message) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: transport is closed", errspkg.ErrSend)
	}
	if !t.substrate.Session.Connected() {
		return fmt.Errorf("%w: substrate session is down", errspkg.ErrNotConnected)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errspkg.ErrSend, err)
	}

	key, err := msg.RoutingKey().TopicKey()
	if err != nil {
		return fmt.Errorf("%w: %w", errspkg.ErrSend, err)
	}

	ctx, span := t.tracer.Start(ctx, "upgo.send",
		trace.WithAttributes(
			attribute.String("upgo.message_id", msg.ID),
			attribute.String("upgo.topic", key),
			attribute.String("upgo.kind", msg.Kind.String()),
		),
	)
	defer span.End()

	wm, err := toWatermill(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errspkg.ErrSend, err)
	}

	if err := t.substrate.Publisher.Publish(substrateTopic(key), wm); err != nil {
		return fmt.Errorf("%w: %w", errspkg.ErrSend, errspkg.NewSubstrateError("publish", err))
	}

	t.logger.Trace("message published", logging.LogFields{
		"message_id": msg.ID,
		"topic":      key,
	})
	return nil
}

// RegisterListener subscribes to the substrate topic derived from the filter
// and attaches the listener under a fresh handle. Like Send it fails fast
// while the substrate session is down. Wildcard filters require a substrate
// that matches wildcards broker-side.
func (t *Transport) RegisterListener(ctx context.Context, filter uri.UUri, l transport.Listener) (transport.Handle, error) {
	if t.closed.Load() {
		return "", fmt.Errorf("%w: transport is closed", errspkg.ErrRegistration)
	}
	if !t.substrate.Session.Connected() {
		return "", fmt.Errorf("%w: substrate session is down", errspkg.ErrNotConnected)
	}
	if filter.HasWildcard() && t.substrate.Capabilities.RequiresLocalFiltering() {
		return "", fmt.Errorf("%w: substrate %q cannot match wildcard filters", errspkg.ErrRegistration, t.substrate.Capabilities.Name)
	}

	h, err := t.listeners.Register(filter, l)
	if err != nil {
		return "", err
	}

	subCtx, cancel := context.WithCancel(t.rootCtx)
	messages, err := t.substrate.Subscriber.Subscribe(subCtx, substrateTopic(filter.FilterKey()))
	if err != nil {
		cancel()
		_ = t.listeners.Unregister(filter, h)
		return "", fmt.Errorf("%w: %w", errspkg.ErrRegistration, errspkg.NewSubstrateError("subscribe", err))
	}

	t.subs.Set(string(h), &subscription{filter: filter, cancel: cancel})
	go t.consume(subCtx, messages, filter, l)

	return h, nil
}

// UnregisterListener detaches the registration and cancels its substrate
// subscription.
func (t *Transport) UnregisterListener(ctx context.Context, filter uri.UUri, h transport.Handle) error {
	if err := t.listeners.Unregister(filter, h); err != nil {
		return err
	}
	if sub, ok := t.subs.Get(string(h)); ok {
		sub.cancel()
		t.subs.Del(string(h))
	}
	return nil
}

// Len returns the number of live registrations.
func (t *Transport) Len() int {
	return t.listeners.Len()
}

// Close cancels every subscription and releases the substrate. Safe to call
// more than once.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.rootCancel()

	t.subs.ForEach(func(key string, sub *subscription) bool {
		sub.cancel()
		t.subs.Del(key)
		return true
	})

	err := stderrors.Join(
		t.substrate.Publisher.Close(),
		t.substrate.Subscriber.Close(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errspkg.ErrTransport, err)
	}
	return nil
}

// consume decodes substrate messages for one subscription and delivers them
// to its listener. Undecodable messages are acked and dropped; redelivery
// cannot fix them.
func (t *Transport) consume(ctx context.Context, messages <-chan *message.Message, filter uri.UUri, l transport.Listener) {
	for wm := range messages {
		msg, err := umessage.UnmarshalWire(wm.Payload)
		if err != nil {
			t.logger.Error("dropping undecodable message", err, logging.LogFields{
				"message_uuid": wm.UUID,
			})
			wm.Ack()
			continue
		}

		// The broker already matched the subscription topic; this guards
		// against substrates with coarser matching than the filter.
		if !msg.RoutingKey().Matches(filter) {
			wm.Ack()
			continue
		}

		t.deliver(ctx, l, msg)
		wm.Ack()
	}
}

// deliver runs one delivery through the middleware chain, isolating
// listener panics.
func (t *Transport) deliver(ctx context.Context, l transport.Listener, msg umessage.Message) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Error("listener panicked", fmt.Errorf("panic: %v", p), logging.LogFields{
				"message_id": msg.ID,
			})
		}
	}()

	if t.wrap != nil {
		t.wrap(l).OnReceive(ctx, msg)
		return
	}
	l.OnReceive(ctx, msg)
}

// substrateTopic converts an addressing key into a broker-legal topic.
// Slashes become dots so NATS-style substrates can match wildcard segments
// per token.
func substrateTopic(key string) string {
	return strings.ReplaceAll(key, uri.KeySeparator, ".")
}

func toWatermill(msg umessage.Message) (*message.Message, error) {
	payload, err := umessage.MarshalWire(msg)
	if err != nil {
		return nil, err
	}

	wm := message.NewMessage(msg.ID, payload)
	wm.Metadata.Set(MetadataSource, msg.Source.FilterKey())
	if msg.Sink != nil {
		wm.Metadata.Set(MetadataSink, msg.Sink.FilterKey())
	}
	wm.Metadata.Set(MetadataKind, msg.Kind.String())
	wm.Metadata.Set(MetadataFormat, msg.Payload.Format().String())
	return wm, nil
}
