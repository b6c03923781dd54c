package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_PublishJSON(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var payload map[string]interface{}
		if err := json.Unmarshal(val, &payload); err != nil {
			return err
		}
		if payload["check"] != "database" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub := NewPublisherWithProducer(producer, "monitor.alerts", nil)
	err := pub.PublishJSON(context.Background(), "database", map[string]string{"check": "database"})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestPublisher_SendFailureIsLogged(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	log := logger.NewTestCtxLogger()
	pub := NewPublisherWithProducer(producer, "monitor.alerts", log)

	err := pub.PublishJSON(context.Background(), "k", map[string]int{"a": 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.True(t, log.HasLogWithField("ERROR", "send message failed", "topic", "monitor.alerts"))
	require.NoError(t, pub.Close())
}

func TestPublisher_ClosedRejects(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewPublisherWithProducer(producer, "t", nil)

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())
	assert.ErrorIs(t, pub.PublishJSON(context.Background(), "k", "v"), ErrProducerClosed)
}

func TestConfig_Validate(t *testing.T) {
	disabled := DefaultConfig()
	assert.NoError(t, disabled.Validate())

	cfg := DefaultConfig()
	cfg.Enabled = true
	assert.Error(t, cfg.Validate(), "brokers required when enabled")

	cfg.Brokers = []string{"localhost:9092"}
	assert.NoError(t, cfg.Validate())

	cfg.Compression = "brotli"
	assert.Error(t, cfg.Validate())
}

func TestConfig_SaramaConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredAcks = -1
	cfg.Compression = "gzip"
	cfg.SASL = &SASLConfig{Enabled: true, Username: "u", Password: "p"}

	sc, err := cfg.SaramaConfig()
	require.NoError(t, err)

	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionGZIP, sc.Producer.Compression)
	assert.True(t, sc.Net.SASL.Enable)
	assert.Equal(t, "yogan-monitor", sc.ClientID)
}

func TestConfig_SaramaConfigBadVersion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = "not-a-version"

	_, err := cfg.SaramaConfig()
	assert.Error(t, err)
}
