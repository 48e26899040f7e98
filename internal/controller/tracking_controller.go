package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/dto"
	"order-tracking-service/internal/model"
)

type TrackingReader interface {
	GetTrackingNumbers(ctx context.Context, number string) ([]model.TrackingNumber, error)
}

// Tracker es el proveedor externo de seguimiento.
type Tracker interface {
	CreateTracker(ctx context.Context, trackingNumber, courierCode string) (string, error)
	TrackerResults(ctx context.Context, trackerID string) (json.RawMessage, error)
}

type TrackingController struct {
	Records  TrackingReader
	Provider Tracker
	Logger   *zap.Logger
}

func NewTrackingController(records TrackingReader, provider Tracker, logger *zap.Logger) *TrackingController {
	return &TrackingController{Records: records, Provider: provider, Logger: logger}
}

// GET /api/tracking-numbers/:trackingNumber
func (ctl *TrackingController) GetTrackingNumbers(c *gin.Context) {
	out, err := ctl.Records.GetTrackingNumbers(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/tracking/create
func (ctl *TrackingController) CreateTracker(c *gin.Context) {
	var req dto.CreateTrackerRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	id, err := ctl.Provider.CreateTracker(c.Request.Context(), req.TrackingNumber, req.CourierCode)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TrackerCreatedResponse{Message: "Tracker creado", TrackerID: id})
}

// GET /api/tracking/results?trackerId=
func (ctl *TrackingController) TrackerResults(c *gin.Context) {
	id := c.Query("trackerId")
	if id == "" {
		respondError(c, ctl.Logger, apperr.NewValidation("trackerId", "requerido"))
		return
	}
	raw, err := ctl.Provider.TrackerResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
