// Package channel provides an in-memory Go channel substrate. It is useful
// for testing and for single-process deployments that still want the network
// transport's wire semantics.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/sachinkum0009/upgo/transport"
)

// SubstrateName is the name used to register this substrate.
const SubstrateName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	transport.RegisterWithCapabilities(SubstrateName, Build, transport.ChannelCapabilities)
}

// Build creates a new Go channel substrate. The session is permanently
// connected; there is no link to lose.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Substrate, error) {
	pub, sub := Factory(gochannel.Config{}, logger)
	return transport.Substrate{
		Publisher:    pub,
		Subscriber:   sub,
		Session:      transport.NewSession(),
		Capabilities: transport.ChannelCapabilities,
	}, nil
}

// Capabilities returns the capabilities of this substrate.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}
