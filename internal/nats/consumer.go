package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/event-tracker/pkg/logger"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

// Handler processes one delivered payload. A nil error acknowledges the
// message; any other error asks for redelivery.
type Handler func(ctx context.Context, subject, key string, data []byte) error

// ConsumerConfig configures the durable pull consumer.
type ConsumerConfig struct {
	Durable    string
	Workers    int
	MaxDeliver int
	AckWait    time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.Durable == "" {
		c.Durable = "event-tracker"
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = 10
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	return c
}

// delivery is the part of jetstream.Msg the consumer relies on.
type delivery interface {
	Subject() string
	Headers() nats.Header
	Data() []byte
	Ack() error
	Nak() error
}

// Consumer pulls from the stream and fans messages out to a fixed worker pool.
// Each message is acknowledged only after its handler returns.
type Consumer struct {
	stream  *StreamManager
	cfg     ConsumerConfig
	handler Handler
	logger  *logger.Logger
}

// NewConsumer creates a new consumer.
func NewConsumer(stream *StreamManager, cfg ConsumerConfig, handler Handler, log *logger.Logger) *Consumer {
	return &Consumer{
		stream:  stream,
		cfg:     cfg.withDefaults(),
		handler: handler,
		logger:  log,
	}
}

// Run consumes until ctx is cancelled or the iterator fails.
func (c *Consumer) Run(ctx context.Context) error {
	js := c.stream.client.JetStream()

	cons, err := js.CreateOrUpdateConsumer(ctx, c.stream.Name(), jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		FilterSubject: WildcardSubject(c.stream.SubjectPrefix()),
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver,
		MaxAckPending: c.cfg.Workers * 4,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	iter, err := cons.Messages(jetstream.PullMaxMessages(c.cfg.Workers * 2))
	if err != nil {
		return fmt.Errorf("failed to start message iterator: %w", err)
	}

	c.logger.Info("consumer started",
		zap.String("stream", c.stream.Name()),
		zap.String("durable", c.cfg.Durable),
		zap.Int("workers", c.cfg.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	msgs := make(chan jetstream.Msg)

	g.Go(func() error {
		<-gctx.Done()
		iter.Stop()
		return nil
	})

	g.Go(func() error {
		defer close(msgs)
		for {
			msg, err := iter.Next()
			if err != nil {
				if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return nil
				}
				return fmt.Errorf("failed to fetch message: %w", err)
			}
			select {
			case msgs <- msg:
			case <-gctx.Done():
				_ = msg.Nak()
				return nil
			}
		}
	})

	for i := 0; i < c.cfg.Workers; i++ {
		g.Go(func() error {
			for msg := range msgs {
				c.process(ctx, msg)
			}
			return nil
		})
	}

	err = g.Wait()
	c.logger.Info("consumer stopped")
	return err
}

// process runs the handler outside ctx's cancellation so a shutdown never
// interrupts a half-written message.
func (c *Consumer) process(ctx context.Context, msg delivery) {
	metrics.IncrementInFlight()
	defer metrics.DecrementInFlight()

	key := msg.Headers().Get(nats.MsgIdHdr)
	if err := c.handler(context.WithoutCancel(ctx), msg.Subject(), key, msg.Data()); err != nil {
		c.logger.Error("failed to process message, requesting redelivery",
			zap.String("subject", msg.Subject()),
			zap.String("key", key),
			zap.Error(err),
		)
		if nakErr := msg.Nak(); nakErr != nil {
			c.logger.Warn("failed to nak message", zap.Error(nakErr))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		c.logger.Warn("failed to ack message",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
	}
}
