package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"
)

// fakeRepo es un repositorio en memoria. Devuelve copias para que las mutaciones del
// servicio no lleguen al "almacenamiento" hasta que se confirman.
type fakeRepo struct {
	mu       sync.Mutex
	orders   map[string]*model.Order
	tracking []model.TrackingNumber
	mirror   map[string]model.ProductMirror

	inserts   int
	replaces  int
	commits   int
	commitErr error
	mirrorErr error
	findErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders: map[string]*model.Order{},
		mirror: map[string]model.ProductMirror{},
	}
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.StatusHistory = append([]model.StatusEntry(nil), o.StatusHistory...)
	c.TrackingInfo.ProductTrackings = append([]model.ProductTracking(nil), o.TrackingInfo.ProductTrackings...)
	c.OrderDetails.Products = make([]model.Product, len(o.OrderDetails.Products))
	for i, p := range o.OrderDetails.Products {
		p.Status = append([]model.StatusEntry(nil), p.Status...)
		c.OrderDetails.Products[i] = p
	}
	return &c
}

func (f *fakeRepo) put(o *model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ShopifyOrderID] = cloneOrder(o)
}

func (f *fakeRepo) get(id string) *model.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

func (f *fakeRepo) FindByOrderID(_ context.Context, orderID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, &apperr.NotFoundError{Resource: "orden", ID: orderID}
	}
	return cloneOrder(o), nil
}

func (f *fakeRepo) ListOrders(_ context.Context, page, limit int) ([]model.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.orders))
	for id := range f.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []model.Order{}
	for i := (page - 1) * limit; i < len(ids) && i < page*limit; i++ {
		out = append(out, *cloneOrder(f.orders[ids[i]]))
	}
	return out, int64(len(ids)), nil
}

func (f *fakeRepo) InsertOrder(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.ShopifyOrderID]; ok {
		return errors.New("duplicate key")
	}
	f.inserts++
	f.orders[o.ShopifyOrderID] = cloneOrder(o)
	return nil
}

func (f *fakeRepo) ReplaceOrder(_ context.Context, o *model.Order, expected model.Revision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaceLocked(o, expected)
}

func (f *fakeRepo) replaceLocked(o *model.Order, expected model.Revision) error {
	cur, ok := f.orders[o.ShopifyOrderID]
	if !ok {
		return &apperr.NotFoundError{Resource: "orden", ID: o.ShopifyOrderID}
	}
	rev := cur.Revision()
	if rev.History != expected.History || !rev.UpdatedAt.Equal(expected.UpdatedAt) {
		return fmt.Errorf("orden %s: %w", o.ShopifyOrderID, apperr.ErrConcurrentUpdate)
	}
	f.replaces++
	f.orders[o.ShopifyOrderID] = cloneOrder(o)
	return nil
}

func (f *fakeRepo) UpsertProductMirror(_ context.Context, p model.Product, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mirrorErr != nil {
		return f.mirrorErr
	}
	m := f.mirror[p.ProductID]
	m.ProductID, m.Name, m.Weight = p.ProductID, p.Name, p.Weight
	for _, id := range m.Orders {
		if id == orderID {
			f.mirror[p.ProductID] = m
			return nil
		}
	}
	m.Orders = append(m.Orders, orderID)
	f.mirror[p.ProductID] = m
	return nil
}

func (f *fakeRepo) FindTrackingNumbers(_ context.Context, number string) ([]model.TrackingNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TrackingNumber
	for _, tn := range f.tracking {
		if tn.TrackingNumber == number {
			out = append(out, tn)
		}
	}
	if len(out) == 0 {
		return nil, &apperr.NotFoundError{Resource: "tracking", ID: number}
	}
	return out, nil
}

// CommitTransition es todo o nada, igual que la transacción real.
func (f *fakeRepo) CommitTransition(_ context.Context, o *model.Order, expected model.Revision, tn *model.TrackingNumber) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	if err := f.replaceLocked(o, expected); err != nil {
		return err
	}
	f.commits++
	if tn != nil {
		f.tracking = append(f.tracking, *tn)
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []StatusEvent
	err    error
}

func (p *fakePublisher) PublishStatusChange(_ context.Context, ev StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}
