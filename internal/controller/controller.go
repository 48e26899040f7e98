package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-tracking-service/internal/dto"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/service"
)

type OrderService interface {
	ListOrders(ctx context.Context, page int) (*service.OrderPage, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	Consolidate(ctx context.Context, orderID, carrier, trackingNumber string) (*model.Order, *model.TrackingNumber, error)
	Prepare(ctx context.Context, orderID, trackingNumber string) (*model.Order, error)
	AdvanceProduct(ctx context.Context, orderID, productID, code string) (*model.Order, error)
	AdvanceOrder(ctx context.Context, orderID, code string) (*model.Order, error)
}

type Syncer interface {
	SyncCalendarMonth(ctx context.Context) (*service.Summary, error)
}

type OrderController struct {
	Service OrderService
	Sync    Syncer
	Logger  *zap.Logger
}

func NewOrderController(s OrderService, sync Syncer, logger *zap.Logger) *OrderController {
	return &OrderController{Service: s, Sync: sync, Logger: logger}
}

// GET /api/orders?page=N: 20 por página, la más reciente primero
func (ctl *OrderController) ListOrders(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	p, err := ctl.Service.ListOrders(c.Request.Context(), page)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderListResponse(p))
}

// GET /api/orders/:orderId
func (ctl *OrderController) GetOrder(c *gin.Context) {
	o, err := ctl.Service.GetByOrderID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /api/sync-orders: ventana del mes anterior y el actual
func (ctl *OrderController) SyncOrders(c *gin.Context) {
	sum, err := ctl.Sync.SyncCalendarMonth(c.Request.Context())
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	msg := "Sincronización completada, " + strconv.Itoa(sum.Processed) + " órdenes procesadas"
	if sum.Incomplete {
		msg = "Sincronización incompleta, " + strconv.Itoa(sum.Processed) + " órdenes procesadas"
	}
	c.JSON(http.StatusOK, dto.SyncResponse{Message: msg, Summary: sum})
}

// POST /api/consolidate-products/:orderId
func (ctl *OrderController) Consolidate(c *gin.Context) {
	var req dto.ConsolidateRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	orderID := c.Param("orderId")
	_, tn, err := ctl.Service.Consolidate(c.Request.Context(), orderID, req.Carrier, req.TrackingNumber)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ConsolidateResponse{
		Message:        "Productos consolidados exitosamente",
		OrderID:        orderID,
		TrackingNumber: tn,
	})
}

// POST /api/prepare-products/:orderId
func (ctl *OrderController) Prepare(c *gin.Context) {
	var req dto.PrepareRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	orderID := c.Param("orderId")
	if _, err := ctl.Service.Prepare(c.Request.Context(), orderID, req.TrackingNumber); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.PrepareResponse{
		Message:        "Orden preparada exitosamente",
		OrderID:        orderID,
		TrackingNumber: req.TrackingNumber,
	})
}

// POST /api/orders/:orderId/products/:productId/status
func (ctl *OrderController) UpdateProductStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	o, err := ctl.Service.AdvanceProduct(c.Request.Context(), c.Param("orderId"), c.Param("productId"), req.Status)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusUpdateResponse{Message: "Estado del producto actualizado", Order: o})
}

// POST /api/orders/:orderId/status
func (ctl *OrderController) UpdateOrderStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	o, err := ctl.Service.AdvanceOrder(c.Request.Context(), c.Param("orderId"), req.Status)
	if err != nil {
		respondError(c, ctl.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusUpdateResponse{Message: "Estado de la orden actualizado", Order: o})
}
