// Package reconcile decide qué hacer cuando una orden recién mapeada choca con la persistida.
package reconcile

import (
	"strconv"
	"time"

	"order-tracking-service/internal/mapper"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/status"
)

// SpecVersion identifica la versión de las reglas de comparación.
// Se incrementa cada vez que cambian las reglas de DefaultSpec.
const SpecVersion = 3

// Decision es el resultado de reconciliar.
type Decision int

const (
	// Insert: no existe la orden persistida.
	Insert Decision = iota
	// Skip: equivalente, no se escribe nada.
	Skip
	// Replace: hubo diferencias, se reemplazan los campos mutables.
	Replace
)

func (d Decision) String() string {
	switch d {
	case Insert:
		return "insert"
	case Skip:
		return "skip"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Rule compara un campo. Path es solo para logs y para reportar la diferencia.
type Rule[T any] struct {
	Path  string
	Equal func(persisted, incoming T) bool
}

// Field arma una regla de igualdad exacta a partir de un getter.
func Field[T any, V comparable](path string, get func(T) V) Rule[T] {
	return Rule[T]{Path: path, Equal: func(a, b T) bool { return get(a) == get(b) }}
}

// Spec es el conjunto ordenado de reglas. Agregar un campo comparable es agregar una regla.
type Spec struct {
	Version  int
	Order    []Rule[*model.Order]
	Tracking []Rule[model.OrderTracking]
	Product  []Rule[model.Product]
}

// DefaultSpec son las reglas vigentes.
var DefaultSpec = Spec{
	Version: SpecVersion,
	Order: []Rule[*model.Order]{
		Field("shopifyOrderId", func(o *model.Order) string { return o.ShopifyOrderID }),
		Field("shopifyOrderNumber", func(o *model.Order) string { return o.ShopifyOrderNumber }),
		Field("shopifyOrderLink", func(o *model.Order) string { return o.ShopifyOrderLink }),
		Field("paymentStatus", func(o *model.Order) string { return o.PaymentStatus }),
		Field("location", func(o *model.Order) string { return o.Location }),
		{Path: "createdAt", Equal: func(a, b *model.Order) bool { return a.CreatedAt.Equal(b.CreatedAt) }},
	},
	Tracking: []Rule[model.OrderTracking]{
		Field("trackingInfo.orderTracking.carrier", func(t model.OrderTracking) string { return t.Carrier }),
		Field("trackingInfo.orderTracking.trackingNumber", func(t model.OrderTracking) string { return t.TrackingNumber }),
	},
	Product: []Rule[model.Product]{
		Field("productId", func(p model.Product) string { return p.ProductID }),
		Field("name", func(p model.Product) string { return p.Name }),
		Field("quantity", func(p model.Product) int { return p.Quantity }),
		Field("weight", func(p model.Product) int { return p.Weight }),
		// el persistido guarda color y talla separados; se reconstruye el título
		Field("variantTitle", func(p model.Product) string { return mapper.VariantTitle(p.Color, p.Size) }),
	},
}

// Result describe la decisión y, si hubo diferencia, el primer campo distinto.
type Result struct {
	Decision Decision
	// Diff es la ruta del primer campo distinto ("" si no aplica)
	Diff string
	// Order es el documento a escribir (nil en Skip)
	Order *model.Order
}

// Engine aplica un Spec.
type Engine struct {
	spec Spec
}

func New(spec Spec) *Engine {
	return &Engine{spec: spec}
}

// Default usa DefaultSpec.
func Default() *Engine {
	return New(DefaultSpec)
}

// Version expone la versión de las reglas en uso.
func (e *Engine) Version() int { return e.spec.Version }

// Diff devuelve la ruta del primer campo distinto, o "" si son equivalentes.
func (e *Engine) Diff(persisted, incoming *model.Order) string {
	for _, r := range e.spec.Order {
		if !r.Equal(persisted, incoming) {
			return r.Path
		}
	}

	pt, it := persisted.TrackingInfo.OrderTracking, incoming.TrackingInfo.OrderTracking
	if pt.Populated() && it.Populated() && !OperatorTracking(persisted) {
		for _, r := range e.spec.Tracking {
			if !r.Equal(pt, it) {
				return r.Path
			}
		}
	}

	pp, ip := persisted.OrderDetails.Products, incoming.OrderDetails.Products
	if len(pp) != len(ip) {
		return "orderDetails.products.length"
	}
	for i := range pp {
		for _, r := range e.spec.Product {
			if !r.Equal(pp[i], ip[i]) {
				return "orderDetails.products[" + strconv.Itoa(i) + "]." + r.Path
			}
		}
	}
	return ""
}

// Reconcile decide entre Insert, Skip y Replace. En Replace el documento devuelto
// ya trae mezclado lo que la sincronización no es dueña de tocar. now se usa para updatedAt.
func (e *Engine) Reconcile(persisted, incoming *model.Order, now time.Time) Result {
	if persisted == nil {
		out := *incoming
		out.UpdatedAt = now
		return Result{Decision: Insert, Order: &out}
	}
	if diff := e.Diff(persisted, incoming); diff != "" {
		return Result{Decision: Replace, Diff: diff, Order: Merge(persisted, incoming, now)}
	}
	return Result{Decision: Skip}
}

// OperatorTracking indica que el tracking de la orden lo fijó operaciones al prepararla.
// Desde ese momento la sincronización no lo compara ni lo pisa.
func OperatorTracking(o *model.Order) bool {
	return o.HasReached(status.OrderPrepared)
}

// Merge arma el reemplazo: los campos que vienen de la plataforma se toman de incoming;
// historial, estado actual, tracking por producto, fulfillment y flags se conservan.
// La lista de productos se reemplaza completa, pero cada producto que ya existía
// conserva sus estados y sus datos operativos.
func Merge(persisted, incoming *model.Order, now time.Time) *model.Order {
	out := *incoming
	out.ID = persisted.ID
	out.OrderType = persisted.OrderType
	out.FulfillmentStatus = persisted.FulfillmentStatus
	out.Flags = persisted.Flags
	out.ProcessingTimeInDual = persisted.ProcessingTimeInDual

	if len(persisted.StatusHistory) > 0 {
		out.StatusHistory = append([]model.StatusEntry(nil), persisted.StatusHistory...)
		out.CurrentStatus = persisted.CurrentStatus
	}

	out.TrackingInfo.ProductTrackings = persisted.TrackingInfo.ProductTrackings
	if out.TrackingInfo.ProductTrackings == nil {
		out.TrackingInfo.ProductTrackings = []model.ProductTracking{}
	}
	if !incoming.TrackingInfo.OrderTracking.Populated() || OperatorTracking(persisted) {
		out.TrackingInfo.OrderTracking = persisted.TrackingInfo.OrderTracking
	}

	known := make(map[string]model.Product, len(persisted.OrderDetails.Products))
	for _, p := range persisted.OrderDetails.Products {
		known[p.ProductID] = p
	}
	products := make([]model.Product, len(incoming.OrderDetails.Products))
	for i, p := range incoming.OrderDetails.Products {
		if prev, ok := known[p.ProductID]; ok {
			if len(prev.Status) > 0 {
				p.Status = append([]model.StatusEntry(nil), prev.Status...)
			}
			p.SupplierPO = prev.SupplierPO
			p.Provider = prev.Provider
			p.PurchaseType = prev.PurchaseType
			p.LocalInventory = prev.LocalInventory
		}
		products[i] = p
	}
	out.OrderDetails.Products = products

	out.CreatedAt = incoming.CreatedAt
	out.UpdatedAt = now
	return &out
}
