package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Nombres de las colecciones
const (
	OrdersCollection          = "orders"
	ProductsCollection        = "products"
	StatusesCollection        = "statuses"
	TrackingNumbersCollection = "trackingNumbers"
)

// ErrConcurrentUpdate: la orden cambió entre la lectura y la escritura.
var ErrConcurrentUpdate = apperr.ErrConcurrentUpdate

// Mongo implementation
type MongoOrderRepository struct {
	client   *mongo.Client
	orders   *mongo.Collection
	products *mongo.Collection
	statuses *mongo.Collection
	tracking *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		client:   db.Client(),
		orders:   db.Collection(OrdersCollection),
		products: db.Collection(ProductsCollection),
		statuses: db.Collection(StatusesCollection),
		tracking: db.Collection(TrackingNumbersCollection),
	}
}

// EnsureIndexes crea los índices que sostienen las búsquedas por id externo.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := m.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shopifyOrderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("índice orders.shopifyOrderId: %w", err)
	}
	if _, err := m.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "productId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("índice products.productId: %w", err)
	}
	if _, err := m.tracking.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trackingNumber", Value: 1}},
	}); err != nil {
		return fmt.Errorf("índice trackingNumbers.trackingNumber: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var res model.Order
	err := m.orders.FindOne(ctx, bson.M{"shopifyOrderId": orderID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &apperr.NotFoundError{Resource: "orden", ID: orderID}
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListOrders pagina por fecha de creación descendente. page empieza en 1.
func (m *MongoOrderRepository) ListOrders(ctx context.Context, page, limit int) ([]model.Order, int64, error) {
	total, err := m.orders.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := m.orders.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, cur.Err()
}

func (m *MongoOrderRepository) InsertOrder(ctx context.Context, o *model.Order) error {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now().UTC()
	}
	res, err := m.orders.InsertOne(ctx, o)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("orden %s: %w", o.ShopifyOrderID, ErrConcurrentUpdate)
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = id
	}
	return nil
}

// ReplaceOrder reemplaza el documento solo si sigue en la revisión leída: mismo largo de
// historial y mismo updatedAt.
func (m *MongoOrderRepository) ReplaceOrder(ctx context.Context, o *model.Order, expected model.Revision) error {
	res, err := m.orders.ReplaceOne(ctx, revisionFilter(o.ShopifyOrderID, expected), o)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("orden %s: %w", o.ShopifyOrderID, ErrConcurrentUpdate)
	}
	return nil
}

func revisionFilter(orderID string, rev model.Revision) bson.M {
	filter := bson.M{
		"shopifyOrderId": orderID,
		"statusHistory":  bson.M{"$size": rev.History},
		"updatedAt":      rev.UpdatedAt,
	}
	if rev.UpdatedAt.IsZero() {
		// documentos viejos sin updatedAt
		filter["updatedAt"] = bson.M{"$in": bson.A{nil, time.Time{}}}
	}
	return filter
}

// UpsertProductMirror copia el producto a la colección products y agrega la orden a sus referencias.
func (m *MongoOrderRepository) UpsertProductMirror(ctx context.Context, p model.Product, orderID string) error {
	filter := bson.M{"productId": p.ProductID}
	update := bson.M{
		"$set": bson.M{
			"name":      p.Name,
			"weight":    p.Weight,
			"updatedAt": time.Now().UTC(),
		},
		"$addToSet": bson.M{"orders": orderID},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.products.UpdateOne(ctx, filter, update, opts)
	return err
}

// FindAllStatuses devuelve los estados en orden de inserción, que define la progresión.
func (m *MongoOrderRepository) FindAllStatuses(ctx context.Context) ([]model.StatusRecord, error) {
	cur, err := m.statuses.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.StatusRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceStatuses borra el vocabulario y lo vuelve a sembrar.
func (m *MongoOrderRepository) ReplaceStatuses(ctx context.Context, records []model.StatusRecord) error {
	if _, err := m.statuses.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}
	_, err := m.statuses.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

func (m *MongoOrderRepository) FindTrackingNumbers(ctx context.Context, number string) ([]model.TrackingNumber, error) {
	cur, err := m.tracking.Find(ctx, bson.M{"trackingNumber": number}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.TrackingNumber{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &apperr.NotFoundError{Resource: "tracking", ID: number}
	}
	return out, nil
}

// CommitTransition aplica en una sola transacción el reemplazo de la orden (con guarda sobre
// la revisión leída) y, si viene, la inserción del registro de tracking.
func (m *MongoOrderRepository) CommitTransition(ctx context.Context, o *model.Order, expected model.Revision, tn *model.TrackingNumber) error {
	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := m.ReplaceOrder(sc, o, expected); err != nil {
			return nil, err
		}
		if tn != nil {
			if _, err := m.tracking.InsertOne(sc, tn); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Ping verifica la conexión (lo usa /health).
func (m *MongoOrderRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}
