// Package kafka publishes monitor events (alerts) to a Kafka topic.
package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config alert publishing settings
type Config struct {
	// Enabled publish alerts to Kafka
	Enabled bool `mapstructure:"enabled"`

	// Brokers list of Kafka addresses
	Brokers []string `mapstructure:"brokers"`

	// Topic alerts are written to
	Topic string `mapstructure:"topic"`

	// Version Kafka protocol version (e.g. "3.8.0")
	Version string `mapstructure:"version"`

	// ClientID client identifier
	ClientID string `mapstructure:"client_id"`

	// RequiredAcks 0=NoResponse, 1=WaitForLocal, -1=WaitForAll
	RequiredAcks int `mapstructure:"required_acks"`

	// Timeout produce timeout
	Timeout time.Duration `mapstructure:"timeout"`

	// RetryMax producer retries
	RetryMax int `mapstructure:"retry_max"`

	// RetryBackoff interval between producer retries
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// Compression none, gzip, snappy, lz4, zstd
	Compression string `mapstructure:"compression"`

	// SASL PLAIN authentication (optional)
	SASL *SASLConfig `mapstructure:"sasl"`
}

// SASLConfig SASL PLAIN credentials
type SASLConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DefaultConfig disabled publisher with sane producer settings
func DefaultConfig() Config {
	return Config{
		Topic:        "monitor.alerts",
		Version:      "3.6.0",
		ClientID:     "yogan-monitor",
		RequiredAcks: 1,
		Timeout:      10 * time.Second,
		RetryMax:     3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Validate configuration; a disabled config is always valid
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Brokers, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Topic, validation.Required),
		validation.Field(&c.RequiredAcks, validation.In(-1, 0, 1)),
		validation.Field(&c.Compression, validation.In("", "none", "gzip", "snappy", "lz4", "zstd")),
	)
}

// SaramaConfig builds the sarama producer configuration
func (c Config) SaramaConfig() (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()

	if c.Version != "" {
		version, err := sarama.ParseKafkaVersion(c.Version)
		if err != nil {
			return nil, fmt.Errorf("parse kafka version failed: %w", err)
		}
		saramaCfg.Version = version
	}
	if c.ClientID != "" {
		saramaCfg.ClientID = c.ClientID
	}

	// SyncProducer requires both
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true

	switch c.RequiredAcks {
	case 0:
		saramaCfg.Producer.RequiredAcks = sarama.NoResponse
	case -1:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	default:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	}

	if c.Timeout > 0 {
		saramaCfg.Producer.Timeout = c.Timeout
	}
	if c.RetryMax > 0 {
		saramaCfg.Producer.Retry.Max = c.RetryMax
	}
	if c.RetryBackoff > 0 {
		saramaCfg.Producer.Retry.Backoff = c.RetryBackoff
	}

	switch c.Compression {
	case "gzip":
		saramaCfg.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		saramaCfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		saramaCfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		saramaCfg.Producer.Compression = sarama.CompressionZSTD
	default:
		saramaCfg.Producer.Compression = sarama.CompressionNone
	}

	if c.SASL != nil && c.SASL.Enabled {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		saramaCfg.Net.SASL.User = c.SASL.Username
		saramaCfg.Net.SASL.Password = c.SASL.Password
	}

	return saramaCfg, nil
}
