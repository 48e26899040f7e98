package rabbit

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/reconcile"
	"order-tracking-service/internal/shopify"
)

type OrderSyncer interface {
	SyncOrder(ctx context.Context, ext shopify.Order) (reconcile.Decision, error)
}

// OrderUpdateConsumer procesa webhooks de Shopify (orders/create, orders/updated)
// reenviados a la cola. Cada mensaje es una orden.
type OrderUpdateConsumer struct {
	sync   OrderSyncer
	logger *zap.Logger
}

func NewOrderUpdateConsumer(s OrderSyncer, logger *zap.Logger) *OrderUpdateConsumer {
	return &OrderUpdateConsumer{sync: s, logger: logger}
}

// Handle devuelve nil si la orden quedó persistida o ya estaba al día.
func (c *OrderUpdateConsumer) Handle(ctx context.Context, body []byte) error {
	var ext shopify.Order
	if err := json.Unmarshal(body, &ext); err != nil {
		return apperr.NewValidation("body", "JSON inválido: "+err.Error())
	}
	if ext.ID == 0 {
		return apperr.NewValidation("id", "orden sin id")
	}

	log := c.logger.With(zap.Int64("order_id", ext.ID))
	d, err := c.sync.SyncOrder(ctx, ext)
	switch {
	case errors.Is(err, apperr.ErrAlreadySynchronized):
		log.Debug("orden ya sincronizada")
		return nil
	case err != nil:
		log.Error("webhook de orden falló", zap.Error(err))
		return err
	}
	log.Info("webhook de orden procesado", zap.String("decision", d.String()))
	return nil
}

// requeue decide si un mensaje fallido vuelve a la cola. Los errores de forma
// nunca se reintentan y cada mensaje se reintenta una sola vez.
func requeue(err error, redelivered bool) bool {
	if redelivered {
		return false
	}
	return !apperr.IsValidation(err) && !apperr.IsConfiguration(err)
}
