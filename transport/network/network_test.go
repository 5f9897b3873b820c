package network

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/umessage"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
	"github.com/sachinkum0009/upgo/transport"
	"github.com/sachinkum0009/upgo/transport/channel"
)

func testProvider(t *testing.T) *uri.StaticUriProvider {
	t.Helper()
	p, err := uri.NewStaticUriProvider("veh-1", 0xa34b, 0x01)
	require.NoError(t, err)
	return p
}

type collector struct {
	mu   sync.Mutex
	msgs []umessage.Message
}

func (c *collector) OnReceive(_ context.Context, msg umessage.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) last() umessage.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[len(c.msgs)-1]
}

type nopConfig struct{}

func (nopConfig) GetPubSubSystem() string       { return "channel" }
func (nopConfig) GetNATSURL() string            { return "" }
func (nopConfig) GetJetStreamStream() string    { return "" }
func (nopConfig) GetKafkaBrokers() []string     { return nil }
func (nopConfig) GetKafkaConsumerGroup() string { return "" }
func (nopConfig) GetRabbitMQURL() string        { return "" }

func channelTransport(t *testing.T) *Transport {
	t.Helper()
	sub, err := channel.Build(context.Background(), nopConfig{}, watermill.NopLogger{})
	require.NoError(t, err)

	tr, err := NewBuilder("veh-1").WithSubstrate(sub).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestSendReachesSubscribedListener(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)
	c := &collector{}
	ctx := context.Background()

	_, err := tr.RegisterListener(ctx, p.ResourceURI(0xb4c1), c)
	require.NoError(t, err)

	msg := umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.FromString("hello"))
	require.NoError(t, tr.Send(ctx, msg))

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)

	got := c.last()
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, p.ResourceURI(0xb4c1), got.Source)
	text, ok := got.Payload.ExtractString()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestSendToOtherResourceNotDelivered(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)
	c := &collector{}
	ctx := context.Background()

	_, err := tr.RegisterListener(ctx, p.ResourceURI(0xb4c1), c)
	require.NoError(t, err)

	require.NoError(t, tr.Send(ctx, umessage.NewPublish(p.ResourceURI(0xd100), umessage.Empty())))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, c.count())
}

func TestUnregisterStopsDelivery(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)
	c := &collector{}
	ctx := context.Background()

	h, err := tr.RegisterListener(ctx, p.ResourceURI(0xb4c1), c)
	require.NoError(t, err)
	require.NoError(t, tr.UnregisterListener(ctx, p.ResourceURI(0xb4c1), h))
	assert.Zero(t, tr.Len())

	require.NoError(t, tr.Send(ctx, umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.Empty())))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, c.count())
}

func TestUnregisterUnknownHandle(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)

	err := tr.UnregisterListener(context.Background(), p.ResourceURI(0xb4c1), "nope")
	assert.ErrorIs(t, err, errspkg.ErrNotFound)
}

func TestWildcardRejectedWithoutSubstrateSupport(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)

	filter := p.SourceURI()
	filter.ResourceID = uri.WildcardResourceID
	_, err := tr.RegisterListener(context.Background(), filter, &collector{})
	assert.ErrorIs(t, err, errspkg.ErrRegistration)
}

func TestSessionLossBroadcastsDisconnectAndFailsSends(t *testing.T) {
	session := transport.NewSession()
	fake := newFakeSubstrate(session, transport.NATSCapabilities)

	tr, err := NewBuilder("veh-1").WithSubstrate(fake.substrate()).Build(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	p := testProvider(t)
	c := &collector{}
	_, err = tr.RegisterListener(context.Background(), p.ResourceURI(0xb4c1), c)
	require.NoError(t, err)

	session.MarkDisconnected()

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
	notice := c.last()
	assert.Equal(t, umessage.KindDisconnect, notice.Kind)
	assert.Equal(t, "veh-1", notice.Source.Authority)

	err = tr.Send(context.Background(), umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.Empty()))
	assert.ErrorIs(t, err, errspkg.ErrNotConnected)

	session.MarkConnected()
	assert.NoError(t, tr.Send(context.Background(), umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.Empty())))
}

func TestRegisterFailsWhileDisconnected(t *testing.T) {
	session := transport.NewSession()
	fake := newFakeSubstrate(session, transport.NATSCapabilities)

	tr, err := NewBuilder("veh-1").WithSubstrate(fake.substrate()).Build(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	p := testProvider(t)
	session.MarkDisconnected()

	_, err = tr.RegisterListener(context.Background(), p.ResourceURI(0xb4c1), &collector{})
	assert.ErrorIs(t, err, errspkg.ErrNotConnected)
	assert.Zero(t, tr.Len())

	session.MarkConnected()
	h, err := tr.RegisterListener(context.Background(), p.ResourceURI(0xb4c1), &collector{})
	require.NoError(t, err)
	assert.NotEmpty(t, h)
}

func TestSendRejectsInvalidMessage(t *testing.T) {
	tr := channelTransport(t)

	err := tr.Send(context.Background(), umessage.Message{ID: "x", Kind: umessage.KindPublish})
	assert.ErrorIs(t, err, errspkg.ErrSend)
	assert.ErrorIs(t, err, errspkg.ErrTransport)
}

func TestWildcardFilterDropsNonMatching(t *testing.T) {
	session := transport.NewSession()
	fake := newFakeSubstrate(session, transport.NATSCapabilities)

	tr, err := NewBuilder("veh-1").WithSubstrate(fake.substrate()).Build(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	p := testProvider(t)
	c := &collector{}
	filter := p.SourceURI()
	filter.ResourceID = uri.WildcardResourceID
	_, err = tr.RegisterListener(context.Background(), filter, c)
	require.NoError(t, err)

	// A broker with coarser matching may deliver foreign sources; the
	// transport filters them out before the listener runs.
	other := uri.UUri{Authority: "veh-2", EntityID: 0xa34b, Version: 0x01, ResourceID: 0xb4c1}
	fake.inject(t, umessage.NewPublish(other, umessage.Empty()))
	fake.inject(t, umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.Empty()))

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, p.ResourceURI(0xb4c1), c.last().Source)
}

func TestUndecodableMessagesDropped(t *testing.T) {
	session := transport.NewSession()
	fake := newFakeSubstrate(session, transport.NATSCapabilities)

	tr, err := NewBuilder("veh-1").WithSubstrate(fake.substrate()).Build(context.Background())
	require.NoError(t, err)
	defer tr.Close()

	p := testProvider(t)
	c := &collector{}
	_, err = tr.RegisterListener(context.Background(), p.ResourceURI(0xb4c1), c)
	require.NoError(t, err)

	fake.injectRaw(message.NewMessage("bad", []byte("not-a-wire-envelope")))
	fake.inject(t, umessage.NewPublish(p.ResourceURI(0xb4c1), umessage.Empty()))

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBuilderFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("bad authority", func(t *testing.T) {
		_, err := NewBuilder("*").WithConfig(nopConfig{}).Build(ctx)
		assert.ErrorIs(t, err, errspkg.ErrBuild)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := NewBuilder("veh-1").Build(ctx)
		assert.ErrorIs(t, err, errspkg.ErrBuild)
	})

	t.Run("unknown substrate", func(t *testing.T) {
		_, err := NewBuilder("veh-1").
			WithConfig(nopConfig{}).
			WithSubstrateRegistry(transport.NewRegistry()).
			Build(ctx)
		assert.ErrorIs(t, err, errspkg.ErrBuild)
	})

	t.Run("substrate from registry", func(t *testing.T) {
		reg := transport.NewRegistry()
		reg.RegisterWithCapabilities("channel", channel.Build, transport.ChannelCapabilities)

		tr, err := NewBuilder("veh-1").
			WithConfig(nopConfig{}).
			WithSubstrateRegistry(reg).
			Build(ctx)
		require.NoError(t, err)
		assert.Equal(t, "veh-1", tr.Authority())
		assert.Equal(t, "channel", tr.Capabilities().Name)
		require.NoError(t, tr.Close())
	})
}

func TestCloseIsIdempotentAndStopsSends(t *testing.T) {
	tr := channelTransport(t)
	p := testProvider(t)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), umessage.NewPublish(p.ResourceURI(1), umessage.Empty()))
	assert.ErrorIs(t, err, errspkg.ErrSend)

	_, err = tr.RegisterListener(context.Background(), p.ResourceURI(1), &collector{})
	assert.ErrorIs(t, err, errspkg.ErrRegistration)
}

// fakeSubstrate hands every subscriber one shared channel so tests can
// inject raw broker traffic.
type fakeSubstrate struct {
	session  *transport.Session
	caps     transport.Capabilities
	mu       sync.Mutex
	channels []chan *message.Message
}

func newFakeSubstrate(session *transport.Session, caps transport.Capabilities) *fakeSubstrate {
	return &fakeSubstrate{session: session, caps: caps}
}

func (f *fakeSubstrate) substrate() transport.Substrate {
	return transport.Substrate{
		Publisher:    f,
		Subscriber:   f,
		Session:      f.session,
		Capabilities: f.caps,
	}
}

func (f *fakeSubstrate) Publish(topic string, messages ...*message.Message) error {
	for _, m := range messages {
		f.injectRaw(m)
	}
	return nil
}

func (f *fakeSubstrate) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message, 16)
	f.mu.Lock()
	f.channels = append(f.channels, ch)
	f.mu.Unlock()
	return ch, nil
}

func (f *fakeSubstrate) Close() error { return nil }

func (f *fakeSubstrate) inject(t *testing.T, msg umessage.Message) {
	t.Helper()
	wm, err := toWatermill(msg)
	require.NoError(t, err)
	f.injectRaw(wm)
}

func (f *fakeSubstrate) injectRaw(wm *message.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.channels {
		select {
		case ch <- wm:
		default:
		}
	}
}
