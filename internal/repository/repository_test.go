package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"
)

func orderDoc(id string) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "shopifyOrderId", Value: id},
		{Key: "shopifyOrderNumber", Value: "#" + id},
		{Key: "paymentStatus", Value: "paid"},
		{Key: "currentStatus", Value: bson.D{{Key: "status", Value: "Por Procesar"}}},
		{Key: "statusHistory", Value: bson.A{bson.D{{Key: "status", Value: "Por Procesar"}}}},
		{Key: "createdAt", Value: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
	}
}

func TestMongoOrderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find by order id", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + OrdersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, orderDoc("5001")))

		repo := NewMongoOrderRepository(mt.DB)
		o, err := repo.FindByOrderID(context.Background(), "5001")
		require.NoError(mt, err)
		assert.Equal(mt, "#5001", o.ShopifyOrderNumber)
		assert.Equal(mt, "Por Procesar", o.CurrentStatus.Status)
		assert.Len(mt, o.StatusHistory, 1)
	})

	mt.Run("find by order id not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + OrdersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		repo := NewMongoOrderRepository(mt.DB)
		_, err := repo.FindByOrderID(context.Background(), "404")
		var nf *apperr.NotFoundError
		require.True(mt, errors.As(err, &nf))
		assert.Equal(mt, "404", nf.ID)
	})

	mt.Run("list orders", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + OrdersCollection
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, orderDoc("5002"), orderDoc("5001")),
		)

		repo := NewMongoOrderRepository(mt.DB)
		orders, total, err := repo.ListOrders(context.Background(), 1, 10)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), total)
		require.Len(mt, orders, 2)
		assert.Equal(mt, "5002", orders[0].ShopifyOrderID)
	})

	mt.Run("insert order", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		repo := NewMongoOrderRepository(mt.DB)
		o := &model.Order{ShopifyOrderID: "5001"}
		require.NoError(mt, repo.InsertOrder(context.Background(), o))
		assert.False(mt, o.ID.IsZero())
		assert.False(mt, o.UpdatedAt.IsZero())
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		repo := NewMongoOrderRepository(mt.DB)
		err := repo.InsertOrder(context.Background(), &model.Order{ShopifyOrderID: "5001"})
		assert.ErrorIs(mt, err, ErrConcurrentUpdate)
	})

	mt.Run("replace with stale history", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(0)},
			bson.E{Key: "nModified", Value: int32(0)},
		))

		repo := NewMongoOrderRepository(mt.DB)
		err := repo.ReplaceOrder(context.Background(), &model.Order{ShopifyOrderID: "5001"}, model.Revision{History: 1, UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
		assert.ErrorIs(mt, err, ErrConcurrentUpdate)
	})

	mt.Run("replace", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		repo := NewMongoOrderRepository(mt.DB)
		assert.NoError(mt, repo.ReplaceOrder(context.Background(), &model.Order{ShopifyOrderID: "5001"}, model.Revision{History: 1, UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}))
	})

	mt.Run("upsert product mirror", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		repo := NewMongoOrderRepository(mt.DB)
		err := repo.UpsertProductMirror(context.Background(), model.Product{ProductID: "11", Name: "Camiseta"}, "5001")
		assert.NoError(mt, err)
	})

	mt.Run("find all statuses keeps order", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + StatusesCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "type", Value: "PRODUCT"}, {Key: "internal", Value: "Por Procesar"}, {Key: "customer", Value: "En Preparación"}},
			bson.D{{Key: "type", Value: "ORDER"}, {Key: "internal", Value: "Preparado"}, {Key: "customer", Value: "Listo para Enviar"}},
		))

		repo := NewMongoOrderRepository(mt.DB)
		recs, err := repo.FindAllStatuses(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, []model.StatusRecord{
			{Type: "PRODUCT", Internal: "Por Procesar", Customer: "En Preparación"},
			{Type: "ORDER", Internal: "Preparado", Customer: "Listo para Enviar"},
		}, recs)
	})

	mt.Run("tracking numbers not found", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + TrackingNumbersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		repo := NewMongoOrderRepository(mt.DB)
		_, err := repo.FindTrackingNumbers(context.Background(), "CR404")
		assert.True(mt, apperr.IsNotFound(err))
	})

	mt.Run("tracking numbers", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + TrackingNumbersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "trackingNumber", Value: "CR123"},
			{Key: "carrier", Value: "CorreosCR"},
			{Key: "orders", Value: bson.A{"5001"}},
			{Key: "isConsolidated", Value: true},
		}))

		repo := NewMongoOrderRepository(mt.DB)
		got, err := repo.FindTrackingNumbers(context.Background(), "CR123")
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "CorreosCR", got[0].Carrier)
		assert.True(mt, got[0].IsConsolidated)
	})
}

func TestRevisionFilter(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f := revisionFilter("5001", model.Revision{History: 3, UpdatedAt: at})
	assert.Equal(t, "5001", f["shopifyOrderId"])
	assert.Equal(t, bson.M{"$size": 3}, f["statusHistory"])
	assert.Equal(t, at, f["updatedAt"])

	legacy := revisionFilter("5001", model.Revision{History: 1})
	assert.Equal(t, bson.M{"$in": bson.A{nil, time.Time{}}}, legacy["updatedAt"])
}
