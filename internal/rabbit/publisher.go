package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"order-tracking-service/internal/service"
)

// StatusEventsExchange es el fanout donde se anuncian las transiciones.
const StatusEventsExchange = "order_status_events"

type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type statusEventMessage struct {
	EventID    string    `json:"eventId"`
	OrderID    string    `json:"orderId"`
	ProductID  string    `json:"productId,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher struct {
	ch       channelPublisher
	exchange string
	newID    func() string
}

func NewPublisher(ch channelPublisher) *Publisher {
	return &Publisher{ch: ch, exchange: StatusEventsExchange, newID: uuid.NewString}
}

// PublishStatusChange implementa service.EventPublisher.
func (p *Publisher) PublishStatusChange(ctx context.Context, ev service.StatusEvent) error {
	msg := statusEventMessage{
		EventID:    p.newID(),
		OrderID:    ev.OrderID,
		ProductID:  ev.ProductID,
		Status:     ev.Status,
		OccurredAt: ev.OccurredAt.UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EventID,
		Timestamp:    msg.OccurredAt,
		Type:         "order.status_changed",
		Body:         body,
	})
}
