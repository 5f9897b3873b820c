package transport

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
)

type stubConfig struct {
	system string
}

func (c *stubConfig) GetPubSubSystem() string       { return c.system }
func (c *stubConfig) GetNATSURL() string            { return "" }
func (c *stubConfig) GetJetStreamStream() string    { return "" }
func (c *stubConfig) GetKafkaBrokers() []string     { return nil }
func (c *stubConfig) GetKafkaConsumerGroup() string { return "" }
func (c *stubConfig) GetRabbitMQURL() string        { return "" }

func TestRegistryBuildDispatchesByName(t *testing.T) {
	r := NewRegistry()
	built := false
	r.Register("stub", func(context.Context, Config, watermill.LoggerAdapter) (Substrate, error) {
		built = true
		return Substrate{Session: NewSession()}, nil
	})

	sub, err := r.Build(context.Background(), &stubConfig{system: "stub"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.True(t, built)
	assert.True(t, sub.Session.Connected())
}

func TestRegistryBuildUnknownSubstrate(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(context.Background(), &stubConfig{system: "nope"}, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown substrate")
}

func TestRegistryBuildNilConfig(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(context.Background(), nil, watermill.NopLogger{})
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
}

func TestRegistryCapabilities(t *testing.T) {
	r := NewRegistry()
	r.RegisterWithCapabilities("stub", func(context.Context, Config, watermill.LoggerAdapter) (Substrate, error) {
		return Substrate{}, nil
	}, Capabilities{Name: "stub", SupportsWildcards: true})

	caps := r.GetCapabilities("stub")
	assert.True(t, caps.SupportsWildcards)

	unknown := r.GetCapabilities("other")
	assert.Equal(t, "other", unknown.Name)
	assert.True(t, unknown.RequiresLocalFiltering())
}

func TestRegistryNamesAndHas(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())
	assert.False(t, r.Has("stub"))

	r.Register("stub", func(context.Context, Config, watermill.LoggerAdapter) (Substrate, error) {
		return Substrate{}, nil
	})
	assert.True(t, r.Has("stub"))
	assert.Equal(t, []string{"stub"}, r.Names())
}
