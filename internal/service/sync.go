package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/metrics"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/reconcile"
	"order-tracking-service/internal/shopify"
	"order-tracking-service/internal/status"
)

// Disparadores de sincronización
const (
	TriggerCron    = "cron"
	TriggerManual  = "manual"
	TriggerWebhook = "webhook"
)

// DefaultLookback es la ventana de la sincronización periódica.
const DefaultLookback = 30 * 24 * time.Hour

// OrderSource pagina órdenes externas (lo implementa shopify.Client).
type OrderSource interface {
	ForEachPage(ctx context.Context, w shopify.Window, fn func(page int, orders []shopify.Order) error) (shopify.PageStats, error)
}

// OrderMapper lo implementa mapper.Mapper.
type OrderMapper interface {
	OrderValidator
	Map(ext shopify.Order, reg *status.Registry) (*model.Order, error)
}

// Summary resume una corrida.
type Summary struct {
	Trigger   string    `json:"trigger"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Pages     int       `json:"pages"`
	Fetched   int       `json:"fetched"`
	Processed int       `json:"processed"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	Failed    int       `json:"failed"`
	// Incomplete: la paginación se cortó después de la primera página
	Incomplete bool `json:"incomplete"`
}

type SyncService struct {
	source   OrderSource
	mapper   OrderMapper
	engine   *reconcile.Engine
	repo     OrderRepository
	statuses status.Provider
	metrics  *metrics.Metrics
	logger   *zap.Logger
	lookback time.Duration
	now      func() time.Time

	running sync.Mutex
}

type SyncConfig struct {
	Lookback time.Duration
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func NewSyncService(src OrderSource, m OrderMapper, engine *reconcile.Engine, repo OrderRepository, statuses status.Provider, logger *zap.Logger, cfg SyncConfig) *SyncService {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if engine == nil {
		engine = reconcile.Default()
	}
	return &SyncService{
		source:   src,
		mapper:   m,
		engine:   engine,
		repo:     repo,
		statuses: statuses,
		metrics:  cfg.Metrics,
		logger:   logger.Named("sync"),
		lookback: cfg.Lookback,
		now:      cfg.Now,
	}
}

// TrailingWindow es [ahora - lookback, ahora].
func (s *SyncService) TrailingWindow() shopify.Window {
	now := s.now()
	return shopify.Window{From: now.Add(-s.lookback), To: now}
}

// CalendarMonthWindow va desde el primer día del mes anterior hasta el final del mes en curso.
func (s *SyncService) CalendarMonthWindow() shopify.Window {
	now := s.now()
	y, m, _ := now.Date()
	loc := now.Location()
	return shopify.Window{
		From: time.Date(y, m-1, 1, 0, 0, 0, 0, loc),
		To:   time.Date(y, m+1, 1, 0, 0, 0, 0, loc).Add(-time.Second),
	}
}

// SyncTrailing es la sincronización periódica.
func (s *SyncService) SyncTrailing(ctx context.Context) (*Summary, error) {
	return s.SyncWindow(ctx, TriggerCron, s.TrailingWindow())
}

// SyncCalendarMonth es la sincronización a pedido.
func (s *SyncService) SyncCalendarMonth(ctx context.Context) (*Summary, error) {
	return s.SyncWindow(ctx, TriggerManual, s.CalendarMonthWindow())
}

// SyncWindow pagina la ventana y procesa cada orden en secuencia. Una orden que falla
// se registra y se salta. Solo una falla en la primera página aborta la corrida.
func (s *SyncService) SyncWindow(ctx context.Context, trigger string, w shopify.Window) (sum *Summary, err error) {
	if !s.running.TryLock() {
		return nil, apperr.NewPrecondition("ya hay una sincronización en curso")
	}
	defer s.running.Unlock()

	start := time.Now()
	defer func() { s.metrics.SyncRun(trigger, err, time.Since(start)) }()

	reg, err := snapshot(s.statuses)
	if err != nil {
		return nil, err
	}

	sum = &Summary{Trigger: trigger, From: w.From, To: w.To}
	log := s.logger.With(zap.String("trigger", trigger), zap.Time("from", w.From), zap.Time("to", w.To))
	log.Info("sincronización iniciada")

	stats, err := s.source.ForEachPage(ctx, w, func(page int, orders []shopify.Order) error {
		for _, ext := range orders {
			s.record(ctx, sum, reg, ext)
		}
		return nil
	})
	sum.Pages = stats.Pages
	sum.Fetched = stats.Orders
	if err != nil {
		var up *apperr.UpstreamError
		category := ""
		if errors.As(err, &up) {
			category = string(up.Category)
		}
		if stats.Pages == 0 {
			log.Error("sincronización abortada en la primera página", zap.String("category", category), zap.Error(err))
			return sum, fmt.Errorf("sincronizando órdenes: %w", err)
		}
		sum.Incomplete = true
		log.Error("paginación interrumpida", zap.Int("pages", stats.Pages), zap.String("category", category), zap.Error(err))
	}

	log.Info("sincronización completada",
		zap.Int("pages", sum.Pages),
		zap.Int("fetched", sum.Fetched),
		zap.Int("processed", sum.Processed),
		zap.Int("inserted", sum.Inserted),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("failed", sum.Failed),
		zap.Bool("incomplete", sum.Incomplete),
	)
	return sum, nil
}

func (s *SyncService) record(ctx context.Context, sum *Summary, reg *status.Registry, ext shopify.Order) {
	d, err := s.syncOne(ctx, reg, ext)
	switch {
	case errors.Is(err, apperr.ErrAlreadySynchronized):
		sum.Processed++
		sum.Unchanged++
		s.metrics.SyncOrder(metrics.OutcomeUnchanged)
	case err != nil:
		sum.Failed++
		s.metrics.SyncOrder(metrics.OutcomeFailed)
		s.logger.Error("error al sincronizar la orden", zap.Int64("order_id", ext.ID), zap.Error(err))
	case d == reconcile.Insert:
		sum.Processed++
		sum.Inserted++
		s.metrics.SyncOrder(metrics.OutcomeInserted)
	default:
		sum.Processed++
		sum.Updated++
		s.metrics.SyncOrder(metrics.OutcomeUpdated)
	}
}

// SyncOrder procesa una sola orden externa (webhooks). Devuelve ErrAlreadySynchronized
// si la orden persistida es equivalente.
func (s *SyncService) SyncOrder(ctx context.Context, ext shopify.Order) (reconcile.Decision, error) {
	reg, err := snapshot(s.statuses)
	if err != nil {
		return reconcile.Skip, err
	}
	d, err := s.syncOne(ctx, reg, ext)
	switch {
	case errors.Is(err, apperr.ErrAlreadySynchronized):
		s.metrics.SyncOrder(metrics.OutcomeUnchanged)
	case err != nil:
		s.metrics.SyncOrder(metrics.OutcomeFailed)
	case d == reconcile.Insert:
		s.metrics.SyncOrder(metrics.OutcomeInserted)
	default:
		s.metrics.SyncOrder(metrics.OutcomeUpdated)
	}
	return d, err
}

// syncOne corre Mapper -> Reconciliación -> persistencia para una orden.
func (s *SyncService) syncOne(ctx context.Context, reg *status.Registry, ext shopify.Order) (reconcile.Decision, error) {
	mapped, err := s.mapper.Map(ext, reg)
	if err != nil {
		return reconcile.Skip, err
	}

	persisted, err := s.repo.FindByOrderID(ctx, mapped.ShopifyOrderID)
	if err != nil && !apperr.IsNotFound(err) {
		return reconcile.Skip, fmt.Errorf("buscando orden %s: %w", mapped.ShopifyOrderID, err)
	}

	res := s.engine.Reconcile(persisted, mapped, s.now())
	switch res.Decision {
	case reconcile.Skip:
		return reconcile.Skip, apperr.ErrAlreadySynchronized
	case reconcile.Insert:
		if err := s.repo.InsertOrder(ctx, res.Order); err != nil {
			return res.Decision, fmt.Errorf("insertando orden %s: %w", mapped.ShopifyOrderID, err)
		}
	case reconcile.Replace:
		if err := s.mapper.ValidateOrder(res.Order, reg); err != nil {
			return res.Decision, err
		}
		if err := s.repo.ReplaceOrder(ctx, res.Order, persisted.Revision()); err != nil {
			return res.Decision, fmt.Errorf("reemplazando orden %s: %w", mapped.ShopifyOrderID, err)
		}
		s.logger.Debug("orden con cambios", zap.String("order_id", mapped.ShopifyOrderID), zap.String("diff", res.Diff))
	}

	s.mirrorProducts(ctx, res.Order)
	return res.Decision, nil
}

// mirrorProducts copia los productos a la colección products. Las fallas no afectan a la orden.
func (s *SyncService) mirrorProducts(ctx context.Context, o *model.Order) {
	for _, p := range o.OrderDetails.Products {
		if err := s.repo.UpsertProductMirror(ctx, p, o.ShopifyOrderID); err != nil {
			s.logger.Warn("error al actualizar el espejo de producto",
				zap.String("order_id", o.ShopifyOrderID),
				zap.String("product_id", p.ProductID),
				zap.Error(err),
			)
		}
	}
}
