// Package mapper convierte órdenes externas de Shopify al documento interno.
package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/shopify"
	"order-tracking-service/internal/status"
)

type Options struct {
	// StoreHandle es el identificador de la tienda en admin.shopify.com
	StoreHandle string
	// Locations es la tabla fija de ubicaciones conocidas (location_id -> nombre)
	Locations map[int64]string
}

// Mapper es puro: misma orden externa y mismo registro producen el mismo documento.
type Mapper struct {
	opts     Options
	validate *validator.Validate
}

func New(opts Options) *Mapper {
	opts.StoreHandle = strings.TrimSuffix(opts.StoreHandle, ".myshopify.com")
	locations := make(map[int64]string, len(opts.Locations))
	for id, name := range opts.Locations {
		locations[id] = name
	}
	opts.Locations = locations
	return &Mapper{opts: opts, validate: newValidator()}
}

// Map arma el documento interno. Devuelve ConfigurationError si el registro no
// tiene código de ingreso para productos y ValidationError si el documento no pasa el esquema.
func (m *Mapper) Map(ext shopify.Order, reg *status.Registry) (*model.Order, error) {
	intake, err := reg.IntakeCode(status.KindProduct)
	if err != nil {
		return nil, fmt.Errorf("orden %d: %w", ext.ID, err)
	}
	createdAt := ext.CreatedAt.UTC()
	entry := reg.Entry(status.KindProduct, intake, createdAt)

	products := make([]model.Product, 0, len(ext.LineItems))
	for i, item := range ext.LineItems {
		color, size := ParseVariant(item.VariantTitle)
		products = append(products, model.Product{
			ProductID:    productID(ext.ID, i, item),
			Name:         item.Name,
			Quantity:     item.Quantity,
			Weight:       item.Grams,
			PurchaseType: model.PurchaseTypeUndefined,
			Provider:     model.ProviderUndefined,
			Color:        color,
			Size:         size,
			Status:       []model.StatusEntry{entry},
		})
	}

	order := &model.Order{
		ShopifyOrderID:     strconv.FormatInt(ext.ID, 10),
		ShopifyOrderNumber: ext.Name,
		ShopifyOrderLink:   fmt.Sprintf("https://admin.shopify.com/store/%s/orders/%d", m.opts.StoreHandle, ext.ID),
		OrderType:          model.OrderTypeUndefined,
		PaymentStatus:      paymentStatus(ext.FinancialStatus),
		Location:           m.ClassifyLocation(ext.LocationID),
		TrackingInfo: model.TrackingInfo{
			OrderTracking:    orderTracking(ext.Fulfillments),
			ProductTrackings: []model.ProductTracking{},
		},
		FulfillmentStatus: model.FulfillmentStatus{Status: model.FulfillmentUnfulfilled},
		OrderDetails: model.OrderDetails{
			Products:    products,
			TotalWeight: ext.TotalWeight,
		},
		CreatedAt: createdAt,
	}
	order.AppendStatus(entry)

	if err := m.ValidateOrder(order, reg); err != nil {
		return nil, fmt.Errorf("orden %d: %w", ext.ID, err)
	}
	return order, nil
}

// ClassifyLocation traduce el location_id; los desconocidos caen en "Por Definir".
func (m *Mapper) ClassifyLocation(id int64) string {
	if name, ok := m.opts.Locations[id]; ok {
		return name
	}
	return model.LocationUndefined
}

func productID(orderID int64, index int, item shopify.LineItem) string {
	if item.ID != 0 {
		return strconv.FormatInt(item.ID, 10)
	}
	if item.VariantID != 0 {
		return fmt.Sprintf("temp_%d", item.VariantID)
	}
	return fmt.Sprintf("temp_%d_%d", orderID, index)
}

func paymentStatus(raw string) string {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_"))
	if s == "" {
		return model.PaymentPending
	}
	return s
}

func orderTracking(fulfillments []shopify.Fulfillment) model.OrderTracking {
	for _, f := range fulfillments {
		if f.TrackingNumber != "" {
			return model.OrderTracking{Carrier: f.TrackingCompany, TrackingNumber: f.TrackingNumber}
		}
	}
	return model.OrderTracking{}
}
