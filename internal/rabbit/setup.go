// setup.go
package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	OrderUpdatesQueue = "shopify_order_updates"
	handleTimeout     = 30 * time.Second
)

// Dial reintenta con backoff exponencial mientras el broker arranca.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, backoff.WithContext(expo, ctx), func(err error, wait time.Duration) {
		logger.Warn("rabbit no disponible, reintentando", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("conectando a rabbit: %w", err)
	}
	return conn, nil
}

// Setup declara la topología, registra el consumidor y devuelve el publicador de eventos.
// El consumo termina cuando ctx se cancela o el canal se cierra.
func Setup(ctx context.Context, ch *amqp.Channel, consumer *OrderUpdateConsumer, logger *zap.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(StatusEventsExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declarando exchange %s: %w", StatusEventsExchange, err)
	}

	q, err := ch.QueueDeclare(OrderUpdatesQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declarando queue %s: %w", OrderUpdatesQueue, err)
	}

	// una orden a la vez: el sync es secuencial
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("configurando qos: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "order-tracking-service", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consumiendo %s: %w", q.Name, err)
	}

	go consume(ctx, msgs, consumer, logger)

	logger.Info("rabbit listo", zap.String("queue", q.Name), zap.String("exchange", StatusEventsExchange))
	return NewPublisher(ch), nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func consume(ctx context.Context, msgs <-chan amqp.Delivery, consumer *OrderUpdateConsumer, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				logger.Warn("canal de rabbit cerrado")
				return
			}
			deliver(ctx, &m, m.Body, m.Redelivered, consumer, logger)
		}
	}
}

func deliver(ctx context.Context, ack acknowledger, body []byte, redelivered bool, consumer *OrderUpdateConsumer, logger *zap.Logger) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := consumer.Handle(hctx, body)
	if err == nil {
		if aerr := ack.Ack(false); aerr != nil {
			logger.Error("ack falló", zap.Error(aerr))
		}
		return
	}
	rq := requeue(err, redelivered)
	if nerr := ack.Nack(false, rq); nerr != nil {
		logger.Error("nack falló", zap.Error(nerr))
	}
	logger.Warn("mensaje rechazado", zap.Bool("requeue", rq), zap.Error(err))
}
