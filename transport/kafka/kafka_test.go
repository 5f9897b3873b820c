package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sachinkum0009/upgo/transport"
)

func TestInitRegistersKafka(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(SubstrateName))

	caps := transport.GetCapabilities(SubstrateName)
	assert.Equal(t, "kafka", caps.Name)
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.RequiresLocalFiltering())
}

func TestBuild(t *testing.T) {
	t.Run("creates substrate with mocked factories", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}

		var subCfg kafka.SubscriberConfig
		PublisherFactory = func(config kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return mockPub, nil
		}
		SubscriberFactory = func(config kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			subCfg = config
			return mockSub, nil
		}

		cfg := &mockConfig{brokers: []string{"localhost:9092"}, group: "upgo"}
		sub, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, mockPub, sub.Publisher)
		assert.Equal(t, mockSub, sub.Subscriber)
		assert.True(t, sub.Session.Connected())
		assert.Equal(t, []string{"localhost:9092"}, subCfg.Brokers)
		assert.Equal(t, "upgo", subCfg.ConsumerGroup)
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		defer func() { PublisherFactory = originalPubFactory }()

		PublisherFactory = func(config kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := Build(context.Background(), &mockConfig{brokers: []string{"localhost:9092"}}, watermill.NopLogger{})
		assert.Error(t, err)
	})

	t.Run("returns error when subscriber factory fails", func(t *testing.T) {
		originalPubFactory := PublisherFactory
		originalSubFactory := SubscriberFactory
		defer func() {
			PublisherFactory = originalPubFactory
			SubscriberFactory = originalSubFactory
		}()

		PublisherFactory = func(config kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return &mockPublisher{}, nil
		}
		SubscriberFactory = func(config kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("subscriber error")
		}

		_, err := Build(context.Background(), &mockConfig{brokers: []string{"localhost:9092"}}, watermill.NopLogger{})
		assert.Error(t, err)
	})
}

type mockConfig struct {
	brokers []string
	group   string
}

func (m *mockConfig) GetPubSubSystem() string       { return "kafka" }
func (m *mockConfig) GetNATSURL() string            { return "" }
func (m *mockConfig) GetJetStreamStream() string    { return "" }
func (m *mockConfig) GetKafkaBrokers() []string     { return m.brokers }
func (m *mockConfig) GetKafkaConsumerGroup() string { return m.group }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
