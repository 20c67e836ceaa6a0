package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error requeues the
// message once; a second failure sends it to DeadLetterQueue.
type Handler func(ctx context.Context, ev ReservationConfirmedEvent) error

// Consumer reads reservation.confirmed messages and hands them to a
// Handler, reconnecting with exponential backoff when the broker goes away.
type Consumer struct {
	url      string
	handler  Handler
	logger   *zap.Logger
	prefetch int
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url string, h Handler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{url: url, handler: h, logger: logger, prefetch: 10}
}

// Run consumes until ctx is cancelled, then returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry forever

	for {
		var conn *amqp.Connection
		dial := func() error {
			var err error
			conn, err = amqp.Dial(c.url)
			return err
		}
		notify := func(err error, wait time.Duration) {
			c.logger.Warn("broker dial failed", zap.Error(err), zap.Duration("retry_in", wait))
		}
		if err := backoff.RetryNotify(dial, backoff.WithContext(policy, ctx), notify); err != nil {
			return ctx.Err()
		}
		policy.Reset()
		c.logger.Info("reservation consumer connected", zap.String("queue", ReservationConfirmedQueue))

		err := c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warn("set QoS failed", zap.Error(err))
	}
	if err := DeclareTopology(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ReservationConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(ctx, d.Body, d.Redelivered, d)
		}
	}
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// errMalformed marks events that can never succeed, so they skip the retry.
var errMalformed = errors.New("malformed event")

func (c *Consumer) settle(ctx context.Context, body []byte, redelivered bool, ack acknowledger) {
	err := c.handle(ctx, body)
	if err == nil {
		_ = ack.Ack(false)
		return
	}
	requeue := !redelivered && !errors.Is(err, errMalformed)
	c.logger.Error("reservation event failed",
		zap.Error(err), zap.Bool("redelivered", redelivered), zap.Bool("requeue", requeue))
	// rejected without requeue goes to DeadLetterQueue
	_ = ack.Nack(false, requeue)
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev ReservationConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", errMalformed, err)
	}
	if ev.Locator == "" {
		return fmt.Errorf("%w: event without localizador", errMalformed)
	}
	return c.handler(ctx, ev)
}
