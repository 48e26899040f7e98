// dto.go
package dto

import (
	"time"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/service"
	"order-tracking-service/internal/status"
)

// ConsolidateRequest: el número puede omitirse si el carrier usa centinela.
type ConsolidateRequest struct {
	Carrier        string `json:"carrier" binding:"required"`
	TrackingNumber string `json:"trackingNumber" binding:"max=64"`
}

type PrepareRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required,max=64"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreateTrackerRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	CourierCode    string `json:"courierCode"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Fields  any    `json:"fields,omitempty"`
	Details string `json:"details,omitempty"`
}

type OrderListResponse struct {
	Orders      []model.Order `json:"orders"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	HasNextPage bool          `json:"hasNextPage"`
}

func NewOrderListResponse(p *service.OrderPage) OrderListResponse {
	orders := p.Orders
	if orders == nil {
		orders = []model.Order{}
	}
	return OrderListResponse{
		Orders:      orders,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		HasNextPage: p.HasNextPage,
	}
}

type SyncResponse struct {
	Message string           `json:"message"`
	Summary *service.Summary `json:"summary"`
}

type ConsolidateResponse struct {
	Message        string                `json:"message"`
	OrderID        string                `json:"orderId"`
	TrackingNumber *model.TrackingNumber `json:"trackingNumber"`
}

type PrepareResponse struct {
	Message        string `json:"message"`
	OrderID        string `json:"orderId"`
	TrackingNumber string `json:"trackingNumber"`
}

type StatusUpdateResponse struct {
	Message string       `json:"message"`
	Order   *model.Order `json:"order"`
}

type TrackerCreatedResponse struct {
	Message   string `json:"message"`
	TrackerID string `json:"trackerId"`
}

// StatusesResponse agrupa los códigos por track, en orden de avance.
type StatusesResponse struct {
	Product []status.Code `json:"product"`
	Order   []status.Code `json:"order"`
}

func NewStatusesResponse(reg *status.Registry) StatusesResponse {
	return StatusesResponse{
		Product: reg.ListCodes(status.KindProduct),
		Order:   reg.ListCodes(status.KindOrder),
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Mongo     string    `json:"mongo"`
	Registry  string    `json:"registry"`
	CheckedAt time.Time `json:"checkedAt"`
}
