package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/infra/config"
)

// ErrProducerClosed is returned by Send after Close.
var ErrProducerClosed = errors.New("kafka producer closed")

// sender hands a message to the broker. Synchronous senders report delivery failures,
// asynchronous ones only report a full input queue or a cancelled context.
type sender interface {
	send(ctx context.Context, msg *sarama.ProducerMessage) error
	close() error
}

// Producer publishes the guard's security events. In sync mode a sign-out is only reported
// as published once the broker acknowledged it.
type Producer struct {
	sender sender
	logger *zap.Logger
	prefix string
	done   chan struct{}
}

// NewProducer connects to the configured brokers, choosing a sync or async sarama producer.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("create kafka producer: no brokers configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := newSaramaConfig(cfg.Async)

	var (
		s   sender
		err error
	)
	if cfg.Async {
		var async sarama.AsyncProducer
		async, err = sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
		if err == nil {
			s = &asyncSender{producer: async}
		}
	} else {
		var sync sarama.SyncProducer
		sync, err = sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
		if err == nil {
			s = &syncSender{producer: sync}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
		zap.Bool("async", cfg.Async),
	)
	return newProducer(s, cfg.TopicPrefix, logger), nil
}

func newProducer(s sender, prefix string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{sender: s, logger: logger, prefix: prefix, done: make(chan struct{})}
	if async, ok := s.(*asyncSender); ok {
		go p.drainErrors(async.producer.Errors())
	}
	return p
}

func newSaramaConfig(async bool) *sarama.Config {
	c := sarama.NewConfig()
	c.Version = sarama.V3_5_0_0
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Retry.Max = 3
	c.Producer.Return.Errors = true
	c.Metadata.Retry.Max = 3
	c.Metadata.Retry.Backoff = 250 * time.Millisecond

	if async {
		c.Producer.RequiredAcks = sarama.WaitForLocal
		c.Producer.Flush.Frequency = 100 * time.Millisecond
		c.Producer.Flush.Messages = 100
		c.Producer.Return.Successes = false
	} else {
		c.Producer.RequiredAcks = sarama.WaitForAll
		c.Producer.Return.Successes = true
		c.Producer.Idempotent = true
		c.Net.MaxOpenRequests = 1
	}
	return c
}

// Send publishes msg, honouring ctx while waiting on the producer.
func (p *Producer) Send(ctx context.Context, msg *sarama.ProducerMessage) error {
	select {
	case <-p.done:
		return ErrProducerClosed
	default:
	}
	return p.sender.send(ctx, msg)
}

func (p *Producer) drainErrors(errs <-chan *sarama.ProducerError) {
	for {
		select {
		case perr, ok := <-errs:
			if !ok {
				return
			}
			if perr != nil {
				p.logger.Error("kafka delivery failed",
					zap.String("topic", perr.Msg.Topic),
					zap.Error(perr.Err),
				)
			}
		case <-p.done:
			return
		}
	}
}

// Close flushes pending messages and releases the producer.
func (p *Producer) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.logger.Info("closing kafka producer")
	close(p.done)
	if err := p.sender.close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// TopicName prefixes eventType with the configured topic prefix once.
func (p *Producer) TopicName(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	prefix := p.prefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}

type asyncSender struct {
	producer sarama.AsyncProducer
}

func (s *asyncSender) send(ctx context.Context, msg *sarama.ProducerMessage) error {
	select {
	case s.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *asyncSender) close() error {
	return s.producer.Close()
}

type syncSender struct {
	producer sarama.SyncProducer
}

func (s *syncSender) send(ctx context.Context, msg *sarama.ProducerMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("deliver to %s: %w", msg.Topic, err)
	}
	return nil
}

func (s *syncSender) close() error {
	return s.producer.Close()
}
