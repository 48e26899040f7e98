package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want UpstreamCategory
	}{
		{401, UpstreamAuth},
		{403, UpstreamAuth},
		{404, UpstreamNotFound},
		{429, UpstreamRateLimit},
		{500, UpstreamServer},
		{503, UpstreamServer},
		{400, UpstreamClient},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFromStatus(tt.code))
		})
	}
}

func TestUpstreamError_Retryable(t *testing.T) {
	assert.True(t, (&UpstreamError{Category: UpstreamRateLimit}).Retryable())
	assert.True(t, (&UpstreamError{Category: UpstreamServer}).Retryable())
	assert.False(t, (&UpstreamError{Category: UpstreamAuth}).Retryable())
	assert.False(t, (&UpstreamError{Category: UpstreamNotFound}).Retryable())
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("consolidar: %w", NewPrecondition("faltan productos"))
	assert.True(t, IsPrecondition(err))
	assert.False(t, IsValidation(err))

	err = fmt.Errorf("mapear: %w", &ConfigurationError{Kind: "PRODUCT", Reason: "sin códigos"})
	assert.True(t, IsConfiguration(err))

	err = fmt.Errorf("reemplazar: %w", ErrConcurrentUpdate)
	assert.True(t, IsConcurrentUpdate(err))
	assert.False(t, IsPrecondition(err))

	err = fmt.Errorf("buscar: %w", &NotFoundError{Resource: "orden", ID: "1"})
	assert.True(t, IsNotFound(err))

	up := &UpstreamError{Service: "shopify", Category: UpstreamServer, StatusCode: 502, Err: errors.New("boom")}
	assert.ErrorContains(t, up, "HTTP")
	assert.NotContains(t, (&UpstreamError{Service: "shopify", Category: UpstreamTransport}).Error(), "HTTP")
}

func TestValidationError_Message(t *testing.T) {
	v := NewValidation("trackingNumber", "es requerido")
	v.Add("carrier", "desconocido")
	assert.Len(t, v.Fields, 2)
	assert.Contains(t, v.Error(), "trackingNumber: es requerido")
	assert.Contains(t, v.Error(), "carrier: desconocido")
}
