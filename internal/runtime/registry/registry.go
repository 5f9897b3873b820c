// Package registry implements the concurrent listener store and dispatch
// engine shared by every transport: a filterable map from addressing
// patterns to ordered sets of callback handles.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/alphadose/haxmap"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	idspkg "github.com/sachinkum0009/upgo/internal/runtime/ids"
	"github.com/sachinkum0009/upgo/internal/runtime/logging"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
)

// Handle is the opaque identity token issued at registration time.
// Unregistration requires the token, never the callback value, so two
// behaviourally identical callbacks can never be confused.
type Handle string

// Listener is the single-method capability the registry depends on. The
// registry never owns the callback's lifetime; it only holds the
// registration.
type Listener interface {
	OnReceive(ctx context.Context, msg umessage.Message)
}

// ListenerFunc adapts a plain function to the Listener capability.
type ListenerFunc func(ctx context.Context, msg umessage.Message)

func (f ListenerFunc) OnReceive(ctx context.Context, msg umessage.Message) { f(ctx, msg) }

// Registry maps addressing patterns to ordered listener sets. The bucket
// map is lock-free so unrelated patterns never serialize; each bucket's
// mutex only guards its own ordered entry slice.
type Registry struct {
	buckets *haxmap.Map[string, *bucket]
	wrap    Middleware
	logger  logging.ServiceLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger logging.ServiceLogger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware wraps every delivery with the given middleware chain, the
// first middleware outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Registry) {
		r.wrap = Chain(mw...)
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		buckets: haxmap.New[string, *bucket](),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type bucket struct {
	pattern uri.UUri

	mu      sync.RWMutex
	entries []entry
}

type entry struct {
	handle   Handle
	listener Listener
}

func (b *bucket) snapshot() []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Register issues a fresh handle and stores (pattern, handle, listener).
// Registering the same listener twice yields two handles and two
// deliveries; at-most-once semantics are per handle, not per callback.
func (r *Registry) Register(pattern uri.UUri, l Listener) (Handle, error) {
	h := Handle(idspkg.New())
	if err := r.Attach(pattern, h, l); err != nil {
		return "", err
	}
	return h, nil
}

// Attach inserts an exact (pattern, handle) pair, keeping registration
// order. It is idempotent: re-attaching an existing pair changes nothing,
// so a pair can never be delivered twice per dispatch.
func (r *Registry) Attach(pattern uri.UUri, h Handle, l Listener) error {
	if l == nil {
		return errspkg.ErrListenerRequired
	}
	if h == "" {
		return fmt.Errorf("%w: empty handle", errspkg.ErrRegistration)
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errspkg.ErrRegistration, err)
	}

	b, _ := r.buckets.GetOrCompute(pattern.FilterKey(), func() *bucket {
		return &bucket{pattern: pattern}
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.handle == h {
			return nil
		}
	}
	b.entries = append(b.entries, entry{handle: h, listener: l})
	return nil
}

// Unregister removes the (pattern, handle) pair. A dispatch already in
// flight may still complete its call to the removed listener, but no new
// call starts after Unregister returns. Empty buckets are retained: the
// pattern cardinality is bounded and pruning would race concurrent Attach.
func (r *Registry) Unregister(pattern uri.UUri, h Handle) error {
	b, ok := r.buckets.Get(pattern.FilterKey())
	if !ok {
		return errspkg.ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.handle == h {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return nil
		}
	}
	return errspkg.ErrNotFound
}

// Dispatch fans a message out to every listener whose pattern matches the
// routing key and returns how many deliveries were made. The entry sets
// are snapshotted under a read lock and invoked outside every lock, so
// listeners may re-enter Register/Unregister freely. Listeners registered
// under the same pattern run in registration order; no order is defined
// across patterns.
func (r *Registry) Dispatch(ctx context.Context, msg umessage.Message) int {
	key := msg.RoutingKey()
	delivered := 0

	r.buckets.ForEach(func(_ string, b *bucket) bool {
		if !key.Matches(b.pattern) {
			return true
		}
		for _, e := range b.snapshot() {
			r.invoke(ctx, e.listener, msg)
			delivered++
		}
		return true
	})
	return delivered
}

// Broadcast delivers a message to every registration regardless of
// pattern. Transports use it for the session-loss notice; a listener
// registered under several patterns is notified once per registration.
func (r *Registry) Broadcast(ctx context.Context, msg umessage.Message) int {
	delivered := 0
	r.buckets.ForEach(func(_ string, b *bucket) bool {
		for _, e := range b.snapshot() {
			r.invoke(ctx, e.listener, msg)
			delivered++
		}
		return true
	})
	return delivered
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	total := 0
	r.buckets.ForEach(func(_ string, b *bucket) bool {
		b.mu.RLock()
		total += len(b.entries)
		b.mu.RUnlock()
		return true
	})
	return total
}

// invoke runs one delivery through the middleware chain. The last-resort
// recover keeps a panicking listener from breaking fan-out to the rest.
func (r *Registry) invoke(ctx context.Context, l Listener, msg umessage.Message) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("listener panicked during dispatch", fmt.Errorf("panic: %v", p), logging.LogFields{
				"message_id": msg.ID,
				"source":     msg.Source.FilterKey(),
			})
		}
	}()

	if r.wrap != nil {
		r.wrap(l).OnReceive(ctx, msg)
		return
	}
	l.OnReceive(ctx, msg)
}
