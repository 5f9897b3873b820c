// Package comm provides thin communication façades over a transport: a
// publisher bound to one provider and a notifier for point-to-point
// notices. Both work identically over the in-process and network
// transports.
package comm

import (
	"context"
	"fmt"
	"sync"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
	"github.com/sachinkum0009/upgo/transport"
)

// SimplePublisher publishes payloads from one provider's resources.
type SimplePublisher struct {
	transport transport.Transport
	provider  *uri.StaticUriProvider
}

// NewSimplePublisher binds a publisher to a transport and a provider.
func NewSimplePublisher(t transport.Transport, provider *uri.StaticUriProvider) (*SimplePublisher, error) {
	if t == nil {
		return nil, errspkg.ErrTransportRequired
	}
	if provider == nil {
		return nil, errspkg.ErrProviderRequired
	}
	return &SimplePublisher{transport: t, provider: provider}, nil
}

// Publish sends a publish message from the given resource.
func (p *SimplePublisher) Publish(ctx context.Context, resourceID uint16, payload umessage.Payload) error {
	msg := umessage.NewPublish(p.provider.ResourceURI(resourceID), payload)
	return p.transport.Send(ctx, msg)
}

// PublishString is a convenience for text payloads.
func (p *SimplePublisher) PublishString(ctx context.Context, resourceID uint16, text string) error {
	return p.Publish(ctx, resourceID, umessage.FromString(text))
}

// SimpleNotifier sends notifications to explicit destinations and manages
// listeners for notices from other endpoints.
type SimpleNotifier struct {
	transport transport.Transport
	provider  *uri.StaticUriProvider

	mu      sync.Mutex
	handles map[string]transport.Handle
}

// NewSimpleNotifier binds a notifier to a transport and a provider.
func NewSimpleNotifier(t transport.Transport, provider *uri.StaticUriProvider) (*SimpleNotifier, error) {
	if t == nil {
		return nil, errspkg.ErrTransportRequired
	}
	if provider == nil {
		return nil, errspkg.ErrProviderRequired
	}
	return &SimpleNotifier{
		transport: t,
		provider:  provider,
		handles:   make(map[string]transport.Handle),
	}, nil
}

// Notify sends a notification from the given resource to the destination.
func (n *SimpleNotifier) Notify(ctx context.Context, resourceID uint16, destination uri.UUri, payload umessage.Payload) error {
	msg := umessage.NewNotification(n.provider.ResourceURI(resourceID), destination, payload)
	return n.transport.Send(ctx, msg)
}

// StartListening attaches a listener for messages from the given origin.
// One listener per origin; starting twice for the same origin fails.
func (n *SimpleNotifier) StartListening(ctx context.Context, origin uri.UUri, l transport.Listener) error {
	key := origin.FilterKey()

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.handles[key]; ok {
		return fmt.Errorf("%w: already listening on %s", errspkg.ErrRegistration, key)
	}

	h, err := n.transport.RegisterListener(ctx, origin, l)
	if err != nil {
		return err
	}
	n.handles[key] = h
	return nil
}

// StopListening detaches the listener for the given origin.
func (n *SimpleNotifier) StopListening(ctx context.Context, origin uri.UUri) error {
	key := origin.FilterKey()

	n.mu.Lock()
	defer n.mu.Unlock()
	h, ok := n.handles[key]
	if !ok {
		return errspkg.ErrNotFound
	}
	if err := n.transport.UnregisterListener(ctx, origin, h); err != nil {
		return err
	}
	delete(n.handles, key)
	return nil
}
