package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/status"
)

// Cada transición agrega entradas al historial. Llamarla dos veces agrega dos entradas:
// los llamadores no deben reintentar a ciegas.

// Consolidate mueve todos los productos a "Consolidado" y crea el registro de tracking,
// en una única transacción.
func (s *OrderStatusService) Consolidate(ctx context.Context, orderID, carrier, trackingNumber string) (o *model.Order, tn *model.TrackingNumber, err error) {
	defer func() { s.metrics.Transition("consolidate", err) }()

	reg, err := s.registry()
	if err != nil {
		return nil, nil, err
	}
	if err := reg.Validate(status.KindProduct, status.ProductConsolidated); err != nil {
		return nil, nil, err
	}
	number, err := resolveTrackingNumber(carrier, trackingNumber)
	if err != nil {
		return nil, nil, err
	}

	o, err = s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkConsolidationGate(o); err != nil {
		s.logger.Info("consolidación rechazada", zap.String("order_id", orderID), zap.Error(err))
		return nil, nil, err
	}

	now := s.now()
	entry := reg.Entry(status.KindProduct, status.ProductConsolidated, now)
	expected := o.Revision()

	tn = &model.TrackingNumber{
		TrackingNumber:   number,
		Carrier:          carrier,
		Products:         make([]model.TrackedProduct, 0, len(o.OrderDetails.Products)),
		Orders:           []string{o.ShopifyOrderID},
		IsConsolidated:   len(o.OrderDetails.Products) > 1,
		ConsolidatedFrom: supersededNumbers(o.TrackingInfo.ProductTrackings),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range o.OrderDetails.Products {
		p := &o.OrderDetails.Products[i]
		p.AppendStatus(entry)
		tn.Products = append(tn.Products, model.TrackedProduct{
			ProductID: p.ProductID,
			OrderID:   o.ShopifyOrderID,
			Status:    status.ProductConsolidated,
		})
	}
	for i := range o.TrackingInfo.ProductTrackings {
		o.TrackingInfo.ProductTrackings[i].ConsolidatedTrackingNumber = number
	}
	o.AppendStatus(entry)
	o.UpdatedAt = now

	if err := s.validator.ValidateOrder(o, reg); err != nil {
		return nil, nil, err
	}
	if err := s.repo.CommitTransition(ctx, o, expected, tn); err != nil {
		s.logger.Error("fallo al confirmar la consolidación", zap.String("order_id", orderID), zap.Error(err))
		return nil, nil, fmt.Errorf("consolidando orden %s: %w", orderID, err)
	}

	s.logger.Info("orden consolidada",
		zap.String("order_id", orderID),
		zap.String("carrier", carrier),
		zap.String("tracking_number", number),
		zap.Int("products", len(tn.Products)),
	)
	s.publish(ctx, StatusEvent{OrderID: orderID, Status: status.ProductConsolidated, OccurredAt: now})
	return o, tn, nil
}

func (s *OrderStatusService) checkConsolidationGate(o *model.Order) error {
	if len(o.OrderDetails.Products) == 0 {
		return apperr.NewPrecondition("la orden %s no tiene productos", o.ShopifyOrderID)
	}
	var missing []string
	for _, p := range o.OrderDetails.Products {
		ok := p.HasReached(status.ProductReceived)
		if s.gate == GateCurrent {
			ok = p.CurrentStatus() == status.ProductReceived
		}
		if !ok {
			missing = append(missing, p.ProductID)
		}
	}
	if len(missing) > 0 {
		return apperr.NewPrecondition("no todos los productos están en %q (faltan: %s)",
			status.ProductReceived, strings.Join(missing, ", "))
	}
	return nil
}

func supersededNumbers(trackings []model.ProductTracking) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range trackings {
		if t.TrackingNumber == "" || seen[t.TrackingNumber] {
			continue
		}
		seen[t.TrackingNumber] = true
		out = append(out, t.TrackingNumber)
	}
	return out
}

// Prepare marca la orden como preparada para el transportista local.
func (s *OrderStatusService) Prepare(ctx context.Context, orderID, trackingNumber string) (o *model.Order, err error) {
	defer func() { s.metrics.Transition("prepare", err) }()

	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, apperr.NewValidation("trackingNumber", "requerido")
	}
	reg, err := s.registry()
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(status.KindOrder, status.OrderPrepared); err != nil {
		return nil, err
	}

	o, err = s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	consolidated := false
	for _, p := range o.OrderDetails.Products {
		if p.HasReached(status.ProductConsolidated) {
			consolidated = true
			break
		}
	}
	if !consolidated {
		err := apperr.NewPrecondition("la orden %s no está en estado %q", orderID, status.ProductConsolidated)
		s.logger.Info("preparación rechazada", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	expected := o.Revision()
	o.FulfillmentStatus = model.FulfillmentStatus{
		Status:         model.FulfillmentFulfilled,
		Carrier:        PreparedCarrier,
		TrackingNumber: trackingNumber,
	}
	// un solo envío activo: se pisa el tracking anterior de la orden
	o.TrackingInfo.OrderTracking = model.OrderTracking{Carrier: PreparedCarrier, TrackingNumber: trackingNumber}
	o.AppendStatus(reg.Entry(status.KindOrder, status.OrderPrepared, now))
	o.UpdatedAt = now

	if err := s.validator.ValidateOrder(o, reg); err != nil {
		return nil, err
	}
	if err := s.repo.CommitTransition(ctx, o, expected, nil); err != nil {
		s.logger.Error("fallo al confirmar la preparación", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("preparando orden %s: %w", orderID, err)
	}

	s.logger.Info("orden preparada", zap.String("order_id", orderID), zap.String("tracking_number", trackingNumber))
	s.publish(ctx, StatusEvent{OrderID: orderID, Status: status.OrderPrepared, OccurredAt: now})
	return o, nil
}

// AdvanceProduct mueve un producto hacia adelante en el vocabulario de producto.
// "Consolidado" queda reservado a Consolidate.
func (s *OrderStatusService) AdvanceProduct(ctx context.Context, orderID, productID, code string) (o *model.Order, err error) {
	defer func() { s.metrics.Transition("advance_product", err) }()

	reg, err := s.registry()
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(status.KindProduct, code); err != nil {
		return nil, err
	}
	if code == status.ProductConsolidated {
		return nil, apperr.NewPrecondition("%q solo se asigna consolidando la orden", code)
	}

	o, err = s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var p *model.Product
	for i := range o.OrderDetails.Products {
		if o.OrderDetails.Products[i].ProductID == productID {
			p = &o.OrderDetails.Products[i]
			break
		}
	}
	if p == nil {
		return nil, &apperr.NotFoundError{Resource: "producto", ID: productID}
	}
	if err := forwardOnly(reg, status.KindProduct, p.CurrentStatus(), code); err != nil {
		return nil, err
	}

	now := s.now()
	expected := o.Revision()
	p.AppendStatus(reg.Entry(status.KindProduct, code, now))
	o.UpdatedAt = now

	if err := s.validator.ValidateOrder(o, reg); err != nil {
		return nil, err
	}
	if err := s.repo.CommitTransition(ctx, o, expected, nil); err != nil {
		return nil, fmt.Errorf("actualizando producto %s de la orden %s: %w", productID, orderID, err)
	}

	s.logger.Info("estado de producto actualizado",
		zap.String("order_id", orderID),
		zap.String("product_id", productID),
		zap.String("status", code),
	)
	s.publish(ctx, StatusEvent{OrderID: orderID, ProductID: productID, Status: code, OccurredAt: now})
	return o, nil
}

// AdvanceOrder mueve la orden en el vocabulario de orden después de "Preparado".
func (s *OrderStatusService) AdvanceOrder(ctx context.Context, orderID, code string) (o *model.Order, err error) {
	defer func() { s.metrics.Transition("advance_order", err) }()

	reg, err := s.registry()
	if err != nil {
		return nil, err
	}
	if err := reg.Validate(status.KindOrder, code); err != nil {
		return nil, err
	}
	if code == status.OrderPrepared {
		return nil, apperr.NewPrecondition("%q solo se asigna preparando la orden", code)
	}

	o, err = s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.HasReached(status.OrderPrepared) {
		return nil, apperr.NewPrecondition("la orden %s no está %q", orderID, status.OrderPrepared)
	}
	if err := forwardOnly(reg, status.KindOrder, latestOfKind(reg, status.KindOrder, o.StatusHistory), code); err != nil {
		return nil, err
	}

	now := s.now()
	expected := o.Revision()
	o.AppendStatus(reg.Entry(status.KindOrder, code, now))
	o.UpdatedAt = now

	if err := s.validator.ValidateOrder(o, reg); err != nil {
		return nil, err
	}
	if err := s.repo.CommitTransition(ctx, o, expected, nil); err != nil {
		return nil, fmt.Errorf("actualizando orden %s: %w", orderID, err)
	}

	s.logger.Info("estado de orden actualizado", zap.String("order_id", orderID), zap.String("status", code))
	s.publish(ctx, StatusEvent{OrderID: orderID, Status: code, OccurredAt: now})
	return o, nil
}

// forwardOnly exige que target esté después de current en el registro.
// Un current desconocido (o vacío) se trata como anterior a todo.
func forwardOnly(reg *status.Registry, kind status.Kind, current, target string) error {
	to, _ := reg.Position(kind, target)
	from, ok := reg.Position(kind, current)
	if !ok {
		return nil
	}
	if to <= from {
		return apperr.NewPrecondition("no se puede pasar de %q a %q", current, target)
	}
	return nil
}

func latestOfKind(reg *status.Registry, kind status.Kind, history []model.StatusEntry) string {
	for i := len(history) - 1; i >= 0; i-- {
		if reg.IsValid(kind, history[i].Status) {
			return history[i].Status
		}
	}
	return ""
}
