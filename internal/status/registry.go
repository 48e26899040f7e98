// registry.go
package status

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"
)

type Kind string

const (
	KindProduct Kind = "PRODUCT"
	KindOrder   Kind = "ORDER"
)

// Códigos canónicos del track de producto (en orden de avance)
const (
	ProductIntake               = "Por Procesar"
	ProductAwaitingTracking     = "Esperando Tracking"
	ProductInTransit            = "En Tránsito"
	ProductArrivedAtHub         = "Entregado en Miami"
	ProductProcessedAtHub       = "Procesado en DUAL Miami"
	ProductAtDistributionCenter = "En Centro de Distribución"
	ProductEnRouteToBranch      = "En Sucursal DUAL"
	ProductReceived             = "Recibido por Sharkletas"
	ProductConsolidated         = "Consolidado"
)

// Códigos canónicos del track de orden
const (
	OrderPrepared         = "Preparado"
	OrderWithCarrier      = "En poder de Correos"
	OrderReadyForDelivery = "Listo para Entrega"
	OrderDelivered        = "Entregado"
)

var canonicalIntake = map[Kind]string{
	KindProduct: ProductIntake,
}

// Code es un código interno con su etiqueta para el cliente.
type Code struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Registry es inmutable una vez construido. Para cambiarlo se construye otro (ver Holder.Reload).
type Registry struct {
	codes map[Kind][]Code
	index map[Kind]map[string]int
}

// Provider entrega el registro vigente. Cada operación debe tomar un snapshot al inicio.
type Provider interface {
	Current() *Registry
}

// Current permite usar un *Registry fijo como Provider.
func (r *Registry) Current() *Registry { return r }

// New pliega los registros de la colección statuses. Respeta el orden de carga,
// que define la progresión dentro de cada tipo.
func New(records []model.StatusRecord) (*Registry, error) {
	r := &Registry{
		codes: map[Kind][]Code{},
		index: map[Kind]map[string]int{},
	}
	for _, rec := range records {
		kind := Kind(rec.Type)
		if kind != KindProduct && kind != KindOrder {
			return nil, &apperr.ConfigurationError{Kind: rec.Type, Reason: fmt.Sprintf("tipo de estado desconocido para %q", rec.Internal)}
		}
		if rec.Internal == "" {
			return nil, &apperr.ConfigurationError{Kind: rec.Type, Reason: "estado sin código interno"}
		}
		if r.index[kind] == nil {
			r.index[kind] = map[string]int{}
		}
		if _, dup := r.index[kind][rec.Internal]; dup {
			return nil, &apperr.ConfigurationError{Kind: rec.Type, Reason: fmt.Sprintf("código duplicado %q", rec.Internal)}
		}
		r.index[kind][rec.Internal] = len(r.codes[kind])
		r.codes[kind] = append(r.codes[kind], Code{Code: rec.Internal, Label: rec.Customer})
	}
	if len(r.codes) == 0 {
		return nil, &apperr.ConfigurationError{Reason: "el registro de estados está vacío"}
	}
	return r, nil
}

// ListCodes devuelve una copia de los códigos del tipo, en orden de progresión.
func (r *Registry) ListCodes(kind Kind) []Code {
	out := make([]Code, len(r.codes[kind]))
	copy(out, r.codes[kind])
	return out
}

func (r *Registry) LabelFor(kind Kind, code string) (string, bool) {
	i, ok := r.index[kind][code]
	if !ok {
		return "", false
	}
	return r.codes[kind][i].Label, true
}

func (r *Registry) IsValid(kind Kind, code string) bool {
	_, ok := r.index[kind][code]
	return ok
}

// Position es la posición del código dentro de su track.
func (r *Registry) Position(kind Kind, code string) (int, bool) {
	i, ok := r.index[kind][code]
	return i, ok
}

// KindOf busca el código en ambos vocabularios; el de producto tiene prioridad.
func (r *Registry) KindOf(code string) (Kind, bool) {
	if r.IsValid(KindProduct, code) {
		return KindProduct, true
	}
	if r.IsValid(KindOrder, code) {
		return KindOrder, true
	}
	return "", false
}

// Validate devuelve ValidationError si el código no existe para el tipo.
func (r *Registry) Validate(kind Kind, code string) error {
	if r.IsValid(kind, code) {
		return nil
	}
	return apperr.NewValidation("status", fmt.Sprintf("estado %q no reconocido para %s", code, kind))
}

// IntakeCode es el estado inicial del tipo: el código canónico si existe,
// si no el primer código definido.
func (r *Registry) IntakeCode(kind Kind) (string, error) {
	if c, ok := canonicalIntake[kind]; ok && r.IsValid(kind, c) {
		return c, nil
	}
	if len(r.codes[kind]) > 0 {
		return r.codes[kind][0].Code, nil
	}
	return "", &apperr.ConfigurationError{Kind: string(kind), Reason: "sin código de ingreso ni códigos definidos"}
}

// Entry arma una entrada de historial usando la etiqueta de cliente como descripción.
func (r *Registry) Entry(kind Kind, code string, at time.Time) model.StatusEntry {
	label, _ := r.LabelFor(kind, code)
	return model.StatusEntry{Status: code, Description: label, UpdatedAt: at}
}

// Source es el almacenamiento que respalda al registro.
type Source interface {
	FindAllStatuses(ctx context.Context) ([]model.StatusRecord, error)
}

// Load lee todos los estados y construye el registro.
func Load(ctx context.Context, src Source) (*Registry, error) {
	records, err := src.FindAllStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("cargando estados: %w", err)
	}
	return New(records)
}

// Holder guarda el registro vigente del proceso. Solo cambia con Reload explícito.
type Holder struct {
	src     Source
	current atomic.Pointer[Registry]
}

func NewHolder(src Source) *Holder {
	return &Holder{src: src}
}

// Current devuelve nil si nunca se cargó.
func (h *Holder) Current() *Registry {
	return h.current.Load()
}

// Reload carga de nuevo desde el almacenamiento. Si falla, el registro anterior queda intacto.
func (h *Holder) Reload(ctx context.Context) (*Registry, error) {
	reg, err := Load(ctx, h.src)
	if err != nil {
		return nil, err
	}
	h.current.Store(reg)
	return reg, nil
}

// DefaultRecords es el vocabulario de referencia que siembra cmd/seedstatuses.
func DefaultRecords() []model.StatusRecord {
	p, o := string(KindProduct), string(KindOrder)
	return []model.StatusRecord{
		{Type: p, Internal: ProductIntake, Customer: "En Preparación"},
		{Type: p, Internal: ProductAwaitingTracking, Customer: "Esperando Número de Seguimiento"},
		{Type: p, Internal: ProductInTransit, Customer: "En Camino"},
		{Type: p, Internal: ProductArrivedAtHub, Customer: "Llegó a Miami"},
		{Type: p, Internal: ProductProcessedAtHub, Customer: "Procesado en Miami"},
		{Type: p, Internal: ProductAtDistributionCenter, Customer: "En Centro de Distribución"},
		{Type: p, Internal: ProductEnRouteToBranch, Customer: "En Camino a Sucursal"},
		{Type: p, Internal: ProductReceived, Customer: "Recibido por Nosotros"},
		{Type: p, Internal: ProductConsolidated, Customer: "Preparación Final"},
		{Type: o, Internal: OrderPrepared, Customer: "Listo para Enviar"},
		{Type: o, Internal: OrderWithCarrier, Customer: "En Tránsito con Correos"},
		{Type: o, Internal: OrderReadyForDelivery, Customer: "Listo para Entrega"},
		{Type: o, Internal: OrderDelivered, Customer: "Entregado"},
	}
}
