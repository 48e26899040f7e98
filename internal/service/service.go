package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/metrics"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/status"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error)
	InsertOrder(ctx context.Context, o *model.Order) error
	ReplaceOrder(ctx context.Context, o *model.Order, expected model.Revision) error
	UpsertProductMirror(ctx context.Context, p model.Product, orderID string) error
	FindTrackingNumbers(ctx context.Context, number string) ([]model.TrackingNumber, error)
	CommitTransition(ctx context.Context, o *model.Order, expected model.Revision, tn *model.TrackingNumber) error
}

// OrderValidator valida el documento completo antes de escribirlo (lo implementa mapper.Mapper).
type OrderValidator interface {
	ValidateOrder(o *model.Order, reg *status.Registry) error
}

// StatusEvent se publica después de cada transición confirmada.
type StatusEvent struct {
	OrderID    string
	ProductID  string
	Status     string
	OccurredAt time.Time
}

// EventPublisher lo implementa rabbit.Publisher.
type EventPublisher interface {
	PublishStatusChange(ctx context.Context, ev StatusEvent) error
}

// Compuerta de consolidación
type ConsolidationGate string

const (
	// GateEver: alcanza con que el producto haya pasado alguna vez por "Recibido por Sharkletas".
	GateEver ConsolidationGate = "ever"
	// GateCurrent: el estado actual del producto debe ser "Recibido por Sharkletas".
	GateCurrent ConsolidationGate = "current"
)

// DefaultPageSize es el tamaño de página del listado de órdenes.
const DefaultPageSize = 20

type OrderStatusService struct {
	repo      OrderRepository
	statuses  status.Provider
	validator OrderValidator
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	gate      ConsolidationGate
	now       func() time.Time
}

type Option func(*OrderStatusService)

func WithPublisher(p EventPublisher) Option {
	return func(s *OrderStatusService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OrderStatusService) { s.metrics = m }
}

func WithConsolidationGate(g ConsolidationGate) Option {
	return func(s *OrderStatusService) {
		if g == GateCurrent {
			s.gate = GateCurrent
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderStatusService) { s.now = now }
}

func NewOrderStatusService(r OrderRepository, statuses status.Provider, v OrderValidator, logger *zap.Logger, opts ...Option) *OrderStatusService {
	s := &OrderStatusService{
		repo:      r,
		statuses:  statuses,
		validator: v,
		logger:    logger.Named("transitions"),
		gate:      GateEver,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gate expone la compuerta configurada.
func (s *OrderStatusService) Gate() ConsolidationGate { return s.gate }

// registry toma el snapshot del registro para toda la operación.
func (s *OrderStatusService) registry() (*status.Registry, error) {
	return snapshot(s.statuses)
}

func snapshot(p status.Provider) (*status.Registry, error) {
	if p == nil {
		return nil, &apperr.ConfigurationError{Reason: "registro de estados no cargado"}
	}
	reg := p.Current()
	if reg == nil {
		return nil, &apperr.ConfigurationError{Reason: "registro de estados no cargado"}
	}
	return reg, nil
}

// Getters
func (s *OrderStatusService) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

// OrderPage es una página del listado.
type OrderPage struct {
	Orders      []model.Order
	CurrentPage int
	TotalPages  int
	HasNextPage bool
}

func (s *OrderStatusService) ListOrders(ctx context.Context, page int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	orders, total, err := s.repo.ListOrders(ctx, page, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + DefaultPageSize - 1) / DefaultPageSize)
	return &OrderPage{
		Orders:      orders,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
	}, nil
}

func (s *OrderStatusService) GetTrackingNumbers(ctx context.Context, number string) ([]model.TrackingNumber, error) {
	if number == "" {
		return nil, apperr.NewValidation("trackingNumber", "requerido")
	}
	return s.repo.FindTrackingNumbers(ctx, number)
}

// publish nunca falla la transición: el cambio ya está confirmado.
func (s *OrderStatusService) publish(ctx context.Context, ev StatusEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatusChange(ctx, ev); err != nil {
		s.logger.Warn("no se pudo publicar el evento de estado",
			zap.String("order_id", ev.OrderID),
			zap.String("status", ev.Status),
			zap.Error(err),
		)
	}
}
