// Package network provides the transport backed by an opaque pub/sub
// substrate. Messages cross process boundaries as wire envelopes published
// on topics derived from their source URI; listener filters become
// substrate subscriptions.
package network

import (
	"context"
	"fmt"

	"github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/logging"
	"github.com/sachinkum0009/upgo/internal/runtime/registry"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
	"github.com/sachinkum0009/upgo/transport"
)

// Builder assembles a network transport step by step. Construction can fail
// (substrate connect, bad authority), so the fallible work happens in Build
// rather than in a constructor.
type Builder struct {
	authority  string
	cfg        transport.Config
	logger     logging.ServiceLogger
	substrate  *transport.Substrate
	registry   *transport.Registry
	middleware []registry.Middleware
}

// NewBuilder starts a builder for a transport owned by the given authority.
// The authority names the local endpoint and stamps the session-loss
// notices.
func NewBuilder(authority string) *Builder {
	return &Builder{
		authority: authority,
		logger:    logging.Nop(),
		registry:  transport.DefaultRegistry,
	}
}

// WithConfig sets the substrate configuration. Required unless a substrate
// is injected directly.
func (b *Builder) WithConfig(cfg transport.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLogger sets the logger for transport and dispatch diagnostics.
func (b *Builder) WithLogger(logger logging.ServiceLogger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithSubstrate injects an already-built substrate, bypassing the registry.
// Useful for tests and for substrates constructed out of band.
func (b *Builder) WithSubstrate(sub transport.Substrate) *Builder {
	b.substrate = &sub
	return b
}

// WithSubstrateRegistry overrides the registry used to resolve the config's
// PubSubSystem name.
func (b *Builder) WithSubstrateRegistry(r *transport.Registry) *Builder {
	if r != nil {
		b.registry = r
	}
	return b
}

// WithDispatchMiddleware wraps every delivery with the given middleware
// chain, the first middleware outermost.
func (b *Builder) WithDispatchMiddleware(mw ...registry.Middleware) *Builder {
	b.middleware = append(b.middleware, mw...)
	return b
}

// Build validates the builder, resolves the substrate and returns a running
// transport. All failures wrap ErrBuild.
func (b *Builder) Build(ctx context.Context) (*Transport, error) {
	if err := uri.ValidateAuthority(b.authority); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrBuild, err)
	}

	sub := b.substrate
	if sub == nil {
		if b.cfg == nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrBuild, errors.ErrConfigRequired)
		}
		built, err := b.registry.Build(ctx, b.cfg, logging.ToWatermill(b.logger))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrBuild, err)
		}
		sub = &built
	}
	if sub.Publisher == nil || sub.Subscriber == nil {
		return nil, fmt.Errorf("%w: substrate must provide a publisher and a subscriber", errors.ErrBuild)
	}
	if sub.Session == nil {
		sub.Session = transport.NewSession()
	}

	return newTransport(b.authority, *sub, b.logger, b.middleware), nil
}
