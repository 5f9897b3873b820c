package upgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/sachinkum0009/upgo/transport/channel"
)

func TestLocalPublishThroughFacade(t *testing.T) {
	provider, err := NewStaticUriProvider("veh-1", 0xa34b, 0x01)
	require.NoError(t, err)

	tr := NewLocalTransport()
	ctx := context.Background()

	var got []Message
	handle, err := tr.RegisterResourceListener(ctx, provider, 0xb4c1, ListenerFunc(func(_ context.Context, msg Message) {
		got = append(got, msg)
	}))
	require.NoError(t, err)

	pub, err := NewSimplePublisher(tr, provider)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, 0xb4c1, PayloadFromString("hello")))

	require.Len(t, got, 1)
	text, ok := got[0].Payload.ExtractString()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Equal(t, KindPublish, got[0].Kind)

	require.NoError(t, tr.UnregisterResourceListener(ctx, provider, 0xb4c1, handle))
	require.NoError(t, pub.Publish(ctx, 0xb4c1, EmptyPayload()))
	assert.Len(t, got, 1)
}

func TestNetworkBuilderThroughFacade(t *testing.T) {
	cfg := &Config{
		Authority:    "veh-1",
		EntityID:     0xa34b,
		Version:      0x01,
		PubSubSystem: "channel",
	}
	require.NoError(t, cfg.Validate())

	tr, err := NewNetworkBuilder(cfg.Authority).WithConfig(cfg).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "channel", tr.Capabilities().Name)
	require.NoError(t, tr.Close())
}

func TestWildcardConstantsMatch(t *testing.T) {
	pattern := UUri{
		Authority:  "veh-1",
		EntityID:   WildcardEntityID,
		Version:    WildcardVersion,
		ResourceID: WildcardResourceID,
	}
	key := UUri{Authority: "veh-1", EntityID: 0xa34b, Version: 0x01, ResourceID: 0xb4c1}
	assert.True(t, key.Matches(pattern))
	assert.True(t, pattern.HasWildcard())
	assert.False(t, key.HasWildcard())
}

func TestCreateULID(t *testing.T) {
	a := CreateULID()
	b := CreateULID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
