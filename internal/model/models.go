// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tipos de orden
const (
	OrderTypePreOrder    = "Pre-Orden"
	OrderTypeImmediate   = "Entrega Inmediata"
	OrderTypeReplacement = "Reemplazo"
	OrderTypeUndefined   = "Por Definir"
)

// Tipos de compra por producto (mismo vocabulario que el tipo de orden)
const (
	PurchaseTypePreOrder    = OrderTypePreOrder
	PurchaseTypeImmediate   = OrderTypeImmediate
	PurchaseTypeReplacement = OrderTypeReplacement
	PurchaseTypeUndefined   = OrderTypeUndefined
)

// ProviderUndefined es el proveedor por defecto hasta que operaciones lo asigne.
const ProviderUndefined = "Por Definir"

// LocationUndefined es la ubicación cuando el identificador no está en la tabla conocida.
const LocationUndefined = "Por Definir"

// Estados de pago (financial_status de la plataforma)
const (
	PaymentAuthorized        = "authorized"
	PaymentPaid              = "paid"
	PaymentPartiallyPaid     = "partially_paid"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentPending           = "pending"
	PaymentRefunded          = "refunded"
	PaymentVoided            = "voided"
)

// Estados de fulfillment
const (
	FulfillmentUnfulfilled = "unfulfilled"
	FulfillmentFulfilled   = "fulfilled"
	FulfillmentPartial     = "partial"
	FulfillmentRestocked   = "restocked"
)

type Order struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ShopifyOrderID       string             `bson:"shopifyOrderId" json:"shopifyOrderId" validate:"required"`
	ShopifyOrderNumber   string             `bson:"shopifyOrderNumber" json:"shopifyOrderNumber" validate:"required"`
	ShopifyOrderLink     string             `bson:"shopifyOrderLink" json:"shopifyOrderLink" validate:"required"`
	OrderType            string             `bson:"orderType" json:"orderType" validate:"ordertype"`
	PaymentStatus        string             `bson:"paymentStatus" json:"paymentStatus" validate:"paymentstatus"`
	Location             string             `bson:"location" json:"location" validate:"required"`
	TrackingInfo         TrackingInfo       `bson:"trackingInfo" json:"trackingInfo"`
	FulfillmentStatus    FulfillmentStatus  `bson:"fulfillmentStatus" json:"fulfillmentStatus"`
	CurrentStatus        StatusEntry        `bson:"currentStatus" json:"currentStatus"`
	StatusHistory        []StatusEntry      `bson:"statusHistory" json:"statusHistory" validate:"min=1,dive"`
	ProcessingTimeInDual int                `bson:"processingTimeInDual" json:"processingTimeInDual"`
	Flags                Flags              `bson:"flags" json:"flags"`
	OrderDetails         OrderDetails       `bson:"orderDetails" json:"orderDetails"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type OrderDetails struct {
	Products    []Product `bson:"products" json:"products" validate:"dive"`
	TotalWeight int       `bson:"totalWeight" json:"totalWeight"`
}

type Product struct {
	ProductID      string        `bson:"productId" json:"productId" validate:"required"`
	Name           string        `bson:"name" json:"name" validate:"required"`
	Quantity       int           `bson:"quantity" json:"quantity" validate:"gte=0"`
	Weight         int           `bson:"weight" json:"weight" validate:"gte=0"`
	PurchaseType   string        `bson:"purchaseType" json:"purchaseType" validate:"purchasetype"`
	SupplierPO     string        `bson:"supplierPO,omitempty" json:"supplierPO,omitempty"`
	Provider       string        `bson:"provider" json:"provider" validate:"required"`
	Color          string        `bson:"color,omitempty" json:"color,omitempty"`
	Size           string        `bson:"size,omitempty" json:"size,omitempty"`
	Status         []StatusEntry `bson:"status" json:"status" validate:"min=1,dive"`
	LocalInventory bool          `bson:"localInventory" json:"localInventory"`
}

// StatusEntry es un elemento del historial (orden o producto).
type StatusEntry struct {
	Status      string    `bson:"status" json:"status" validate:"required"`
	Description string    `bson:"description" json:"description"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type TrackingInfo struct {
	OrderTracking    OrderTracking     `bson:"orderTracking" json:"orderTracking"`
	ProductTrackings []ProductTracking `bson:"productTrackings" json:"productTrackings"`
}

type OrderTracking struct {
	Carrier        string `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber string `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
}

// Populated indica si la orden tiene un envío activo asignado.
func (t OrderTracking) Populated() bool {
	return t.Carrier != "" || t.TrackingNumber != ""
}

type ProductTracking struct {
	ProductID                  string `bson:"productId" json:"productId"`
	Carrier                    string `bson:"carrier" json:"carrier"`
	TrackingNumber             string `bson:"trackingNumber" json:"trackingNumber"`
	Status                     string `bson:"status" json:"status"`
	ConsolidatedTrackingNumber string `bson:"consolidatedTrackingNumber,omitempty" json:"consolidatedTrackingNumber,omitempty"`
}

type FulfillmentStatus struct {
	Status         string `bson:"status" json:"status"`
	Carrier        string `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber string `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
}

type Flags struct {
	DualDelay     bool `bson:"dualDelay" json:"dualDelay"`
	DeliveryDelay bool `bson:"deliveryDelay" json:"deliveryDelay"`
}

// AppendStatus agrega una entrada al historial y la deja como estado actual.
// Es la única forma de mover el estado de una orden: el historial solo crece.
func (o *Order) AppendStatus(e StatusEntry) {
	o.StatusHistory = append(o.StatusHistory, e)
	o.CurrentStatus = e
}

// Revision identifica la versión leída de una orden. Las escrituras condicionadas
// fallan si la orden persistida ya no coincide.
type Revision struct {
	History   int
	UpdatedAt time.Time
}

func (o *Order) Revision() Revision {
	return Revision{History: len(o.StatusHistory), UpdatedAt: o.UpdatedAt}
}

// HasReached recorre el historial buscando el código.
func (o *Order) HasReached(code string) bool {
	return historyContains(o.StatusHistory, code)
}

// AppendStatus agrega una entrada a la lista de estados del producto.
func (p *Product) AppendStatus(e StatusEntry) {
	p.Status = append(p.Status, e)
}

// CurrentStatus es el último estado registrado del producto ("" si no tiene).
func (p Product) CurrentStatus() string {
	if len(p.Status) == 0 {
		return ""
	}
	return p.Status[len(p.Status)-1].Status
}

// HasReached indica si el producto pasó alguna vez por el código.
func (p Product) HasReached(code string) bool {
	return historyContains(p.Status, code)
}

func historyContains(h []StatusEntry, code string) bool {
	for _, e := range h {
		if e.Status == code {
			return true
		}
	}
	return false
}

// TrackingNumber representa un envío físico. Referencia productos y órdenes solo por id.
type TrackingNumber struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	TrackingNumber   string             `bson:"trackingNumber" json:"trackingNumber"`
	Carrier          string             `bson:"carrier" json:"carrier"`
	Products         []TrackedProduct   `bson:"products" json:"products"`
	Orders           []string           `bson:"orders" json:"orders"`
	IsConsolidated   bool               `bson:"isConsolidated" json:"isConsolidated"`
	ConsolidatedFrom []string           `bson:"consolidatedFrom" json:"consolidatedFrom"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type TrackedProduct struct {
	ProductID string `bson:"productId" json:"productId"`
	OrderID   string `bson:"orderId" json:"orderId"`
	Status    string `bson:"status" json:"status"`
}

// StatusRecord es una fila de la colección statuses: {type, internal, customer}.
type StatusRecord struct {
	Type     string `bson:"type" json:"type"`
	Internal string `bson:"internal" json:"internal"`
	Customer string `bson:"customer" json:"customer"`
}

// ProductMirror es la copia independiente del producto en la colección products.
type ProductMirror struct {
	ProductID string    `bson:"productId" json:"productId"`
	Name      string    `bson:"name" json:"name"`
	Weight    int       `bson:"weight" json:"weight"`
	Orders    []string  `bson:"orders" json:"orders"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
