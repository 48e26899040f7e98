package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/dto"
	"order-tracking-service/internal/status"
)

type StatusRegistry interface {
	Current() *status.Registry
	Reload(ctx context.Context) (*status.Registry, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type StatusController struct {
	Registry StatusRegistry
	Store    Pinger
	Logger   *zap.Logger
}

func NewStatusController(reg StatusRegistry, store Pinger, logger *zap.Logger) *StatusController {
	return &StatusController{Registry: reg, Store: store, Logger: logger}
}

func (ctl *StatusController) current() (*status.Registry, error) {
	reg := ctl.Registry.Current()
	if reg == nil {
		return nil, &apperr.ConfigurationError{Reason: "registro de estados no cargado"}
	}
	return reg, nil
}

// GET /api/statuses
func (ctl *StatusController) List(c *gin.Context) {
	reg, err := ctl.current()
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStatusesResponse(reg))
}

// POST /api/statuses/reload: si falla queda el registro anterior
func (ctl *StatusController) Reload(c *gin.Context) {
	reg, err := ctl.Registry.Reload(c.Request.Context())
	if err != nil {
		ctl.Logger.Warn("recarga del registro falló, se mantiene el anterior", zap.Error(err))
		respondError(c, ctl.Logger, err)
		return
	}
	ctl.Logger.Info("registro de estados recargado",
		zap.Int("product_codes", len(reg.ListCodes(status.KindProduct))),
		zap.Int("order_codes", len(reg.ListCodes(status.KindOrder))),
	)
	c.JSON(http.StatusOK, dto.NewStatusesResponse(reg))
}

// GET /health
func (ctl *StatusController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	res := dto.HealthResponse{Status: "ok", Mongo: "ok", Registry: "ok", CheckedAt: time.Now().UTC()}
	code := http.StatusOK
	if err := ctl.Store.Ping(ctx); err != nil {
		res.Status, res.Mongo, code = "degraded", err.Error(), http.StatusServiceUnavailable
	}
	if ctl.Registry.Current() == nil {
		res.Status, res.Registry, code = "degraded", "no cargado", http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}
