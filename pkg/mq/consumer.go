package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"brokenweave/pkg/metrics"
	"brokenweave/pkg/otel"
	"brokenweave/pkg/trace"
	"brokenweave/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// Outcome is what the consumer does with a delivery after the handler ran.
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeRequeue
	OutcomeDeadLetter
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRequeue:
		return "requeue"
	case OutcomeDeadLetter:
		return "dead_letter"
	}
	return "unknown"
}

// Decide maps a handler result and the attempt number to an outcome.
// Retryable errors are requeued until attempts exceeds maxRetries.
func Decide(err error, attempts, maxRetries int64) (Outcome, string) {
	if err == nil {
		return OutcomeAck, ""
	}
	retryable, label := util.IsRetryableError(err)
	if util.ShouldRetry(attempts, maxRetries, retryable) {
		return OutcomeRequeue, label
	}
	return OutcomeDeadLetter, label
}

type Consumer struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	tag        string
	handler    MessageHandler
	logger     *zap.Logger

	retries    *util.RetryCounter
	maxRetries int64

	stopOnce sync.Once
	done     chan struct{}
}

type queueOpts struct {
	name      string
	durable   bool
	exclusive bool
}

// NewConsumer declares <routingKey>.q bound to the events exchange plus its
// dead letter queue. Instances sharing the queue split its messages.
func NewConsumer(url, routingKey string, logger *zap.Logger) (*Consumer, error) {
	return newConsumer(url, routingKey, queueOpts{name: QueueName(routingKey), durable: true}, logger)
}

// NewBroadcastConsumer declares an exclusive auto-delete queue for this
// instance only, so every instance sees every message bound to routingKey.
// The queue goes away with the connection.
func NewBroadcastConsumer(url, routingKey, instance string, logger *zap.Logger) (*Consumer, error) {
	return newConsumer(url, routingKey, queueOpts{name: BroadcastQueueName(routingKey, instance), exclusive: true}, logger)
}

func newConsumer(url, routingKey string, qo queueOpts, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	cleanup := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, routingKey); err != nil {
		cleanup()
		return nil, err
	}

	q, err := ch.QueueDeclare(qo.name, qo.durable, !qo.durable, qo.exclusive, false, nil)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", q.Name),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		tag:        "brokenweave-" + routingKey,
		logger:     logger,
		done:       make(chan struct{}),
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// WithRetry enables bounded redelivery of retryable failures, counted in Redis.
func (c *Consumer) WithRetry(counter *util.RetryCounter, maxRetries int64) *Consumer {
	c.retries = counter
	c.maxRetries = maxRetries
	return c
}

// StartConsuming blocks until ctx is done, Stop is called or the channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(c.queue.Name, c.tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		case <-c.done:
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

// Stop cancels the subscription. In-flight deliveries are requeued by the broker.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		if err := c.channel.Cancel(c.tag, false); err != nil {
			c.logger.Warn("Failed to cancel consumer", zap.String("queue", c.queue.Name), zap.Error(err))
		}
	})
}

func (c *Consumer) Close() {
	c.Stop()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) handle(parent context.Context, msg amqp091.Delivery) {
	start := time.Now()
	ctx := otel.Extract(parent, msg.Headers)
	if traceID, ok := msg.Headers[traceHeader].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	ctx, span := otel.MQConsumeSpan(ctx, c.routingKey, c.queue.Name)
	defer span.End()
	defer func() { metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start)) }()

	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("message_id", msg.MessageId),
	)
	if traceID := trace.FromContext(ctx); traceID != "" {
		log = log.With(zap.String(trace.TraceIDKey, traceID))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			c.deadLetter(ctx, msg, fmt.Sprintf("panic: %v", r), log)
		}
	}()

	err := c.handler(ctx, msg.Body)

	attempts := int64(1)
	retryKey := util.FormatRetryKey(c.queue.Name, msg.MessageId)
	if err != nil && c.retries != nil && msg.MessageId != "" {
		if n, rerr := c.retries.IncrementAndGet(ctx, retryKey); rerr == nil {
			attempts = n
		} else {
			log.Warn("Retry counter unavailable", zap.Error(rerr))
		}
	}

	maxRetries := c.maxRetries
	if c.retries == nil {
		maxRetries = 0
	}
	outcome, label := Decide(err, attempts, maxRetries)

	switch outcome {
	case OutcomeAck:
		if c.retries != nil && msg.MessageId != "" {
			_ = c.retries.Reset(ctx, retryKey)
		}
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
		}
	case OutcomeRequeue:
		log.Warn("Handler failed, requeueing",
			zap.String("error_type", label),
			zap.Int64("attempt", attempts),
			zap.Error(err),
		)
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
	case OutcomeDeadLetter:
		log.Error("Handler failed, dead-lettering",
			zap.String("error_type", label),
			zap.Int64("attempt", attempts),
			zap.Error(err),
		)
		span.RecordError(err)
		if c.retries != nil && msg.MessageId != "" {
			_ = c.retries.Reset(ctx, retryKey)
		}
		c.deadLetter(ctx, msg, err.Error(), log)
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg amqp091.Delivery, reason string, log *zap.Logger) {
	if err := publishToDLQ(ctx, c.channel, msg, reason, c.tag); err != nil {
		log.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
		_ = msg.Nack(false, true)
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
}
