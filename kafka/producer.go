package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/KOMKZ/go-yogan-monitor/logger"
	"go.uber.org/zap"
)

// ErrProducerClosed returned after Close
var ErrProducerClosed = errors.New("producer is closed")

// Publisher JSON publisher bound to one topic
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
	mu       sync.RWMutex
	closed   bool
}

// NewPublisher connects a sync producer to the configured brokers
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	saramaCfg, err := cfg.SaramaConfig()
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create sync producer failed: %w", err)
	}
	return NewPublisherWithProducer(producer, cfg.Topic, log), nil
}

// NewPublisherWithProducer wraps an existing producer (sarama/mocks in tests)
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// PublishJSON encodes value and sends it keyed by key
func (p *Publisher) PublishJSON(ctx context.Context, key string, value interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal json failed: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.ErrorCtx(ctx, "send message failed",
			zap.String("topic", p.topic),
			zap.Error(err))
		return fmt.Errorf("send message failed: %w", err)
	}

	p.log.DebugCtx(ctx, "message sent",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close shuts the producer down; safe to call twice
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close producer failed: %w", err)
	}
	return nil
}
