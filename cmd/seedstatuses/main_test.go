package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-tracking-service/internal/model"
	"order-tracking-service/internal/status"
)

type memStore struct {
	records  []model.StatusRecord
	findErr  error
	replaced int
}

func (m *memStore) FindAllStatuses(context.Context) ([]model.StatusRecord, error) {
	return m.records, m.findErr
}

func (m *memStore) ReplaceStatuses(_ context.Context, records []model.StatusRecord) error {
	m.records = records
	m.replaced++
	return nil
}

func TestSeed_EmptyCollection(t *testing.T) {
	store := &memStore{}
	var out bytes.Buffer

	require.NoError(t, seed(context.Background(), store, status.DefaultRecords(), false, &out))
	assert.Equal(t, 1, store.replaced)
	assert.Len(t, store.records, len(status.DefaultRecords()))
	assert.Contains(t, out.String(), "estados escritos")
}

func TestSeed_ExistingRequiresForce(t *testing.T) {
	store := &memStore{records: []model.StatusRecord{{Type: "PRODUCT", Internal: "Por Procesar", Customer: "x"}}}

	err := seed(context.Background(), store, status.DefaultRecords(), false, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Zero(t, store.replaced)

	require.NoError(t, seed(context.Background(), store, status.DefaultRecords(), true, &bytes.Buffer{}))
	assert.Equal(t, 1, store.replaced)
}

func TestSeed_InvalidRecordsNeverWritten(t *testing.T) {
	store := &memStore{}
	err := seed(context.Background(), store, nil, true, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Zero(t, store.replaced)
}

func TestSeed_StoreError(t *testing.T) {
	store := &memStore{findErr: errors.New("mongo caído")}
	assert.Error(t, seed(context.Background(), store, status.DefaultRecords(), false, &bytes.Buffer{}))
}

func TestPrintRecords(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRecords(&out, status.DefaultRecords()))
	assert.Contains(t, out.String(), "Recibido por Sharkletas")
	assert.Contains(t, out.String(), "ORDER")
}
