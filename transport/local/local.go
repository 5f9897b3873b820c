// Package local provides the in-process transport: publishers and
// subscribers share one listener registry and messages never leave the
// process. Delivery is synchronous; Send returns after every matching
// listener ran.
package local

import (
	"context"
	"fmt"
	"sync/atomic"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/logging"
	"github.com/sachinkum0009/upgo/internal/runtime/registry"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
	"github.com/sachinkum0009/upgo/transport"
)

// Transport is the in-process implementation of transport.Transport. Each
// instance owns its registry; two instances share nothing.
type Transport struct {
	listeners *registry.Registry
	logger    logging.ServiceLogger
	closed    atomic.Bool
}

var _ transport.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*options)

type options struct {
	logger     logging.ServiceLogger
	middleware []registry.Middleware
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger logging.ServiceLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDispatchMiddleware wraps every delivery with the given middleware
// chain, the first middleware outermost.
func WithDispatchMiddleware(mw ...registry.Middleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, mw...)
	}
}

// New creates an in-process transport with an empty registry.
func New(opts ...Option) *Transport {
	o := &options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return &Transport{
		listeners: registry.New(
			registry.WithLogger(o.logger),
			registry.WithMiddleware(o.middleware...),
		),
		logger: o.logger,
	}
}

// Send validates the message and synchronously fans it out to every
// matching listener. A message that matches nothing is dropped without
// error.
func (t *Transport) Send(ctx context.Context, msg umessage.Message) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: transport is closed", errspkg.ErrSend)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errspkg.ErrSend, err)
	}

	delivered := t.listeners.Dispatch(ctx, msg)
	t.logger.Trace("message dispatched", logging.LogFields{
		"message_id": msg.ID,
		"source":     msg.Source.FilterKey(),
		"delivered":  delivered,
	})
	return nil
}

// RegisterListener attaches a listener under a filter pattern and returns
// the handle needed to detach it.
func (t *Transport) RegisterListener(ctx context.Context, filter uri.UUri, l transport.Listener) (transport.Handle, error) {
	if t.closed.Load() {
		return "", fmt.Errorf("%w: transport is closed", errspkg.ErrRegistration)
	}
	return t.listeners.Register(filter, l)
}

// UnregisterListener detaches the (filter, handle) registration.
func (t *Transport) UnregisterListener(ctx context.Context, filter uri.UUri, h transport.Handle) error {
	return t.listeners.Unregister(filter, h)
}

// RegisterResourceListener attaches a listener to one resource published by
// the given provider.
func (t *Transport) RegisterResourceListener(ctx context.Context, provider *uri.StaticUriProvider, resourceID uint16, l transport.Listener) (transport.Handle, error) {
	if provider == nil {
		return "", errspkg.ErrProviderRequired
	}
	return t.RegisterListener(ctx, provider.ResourceURI(resourceID), l)
}

// UnregisterResourceListener detaches a registration made through
// RegisterResourceListener.
func (t *Transport) UnregisterResourceListener(ctx context.Context, provider *uri.StaticUriProvider, resourceID uint16, h transport.Handle) error {
	if provider == nil {
		return errspkg.ErrProviderRequired
	}
	return t.UnregisterListener(ctx, provider.ResourceURI(resourceID), h)
}

// Len returns the number of live registrations.
func (t *Transport) Len() int {
	return t.listeners.Len()
}

// Close marks the transport closed. Registrations stay in place but Sends
// fail; there is no underlying connection to release.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}
