package controller

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/dto"
)

// statusFor traduce la taxonomía de apperr a HTTP.
func statusFor(err error) int {
	var (
		validation   *apperr.ValidationError
		precondition *apperr.PreconditionError
		notFound     *apperr.NotFoundError
		upstream     *apperr.UpstreamError
		config       *apperr.ConfigurationError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &precondition), errors.Is(err, apperr.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &config):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	code := statusFor(err)
	body := dto.ErrorResponse{Error: err.Error()}

	var validation *apperr.ValidationError
	if errors.As(err, &validation) {
		body.Error = "datos inválidos"
		body.Fields = validation.Fields
	}
	if code == http.StatusInternalServerError {
		// el detalle queda en el log, no en la respuesta
		body.Error = "error interno del servidor"
		log.Error("request falló", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, body)
}

// bindJSON convierte los errores de binding en ValidationError con nombres de campo JSON.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.NewValidation("body", "JSON inválido")
	}
	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		out.Add(jsonName(fe.Field()), "no cumple "+fe.Tag())
	}
	return out
}

func jsonName(field string) string {
	r, size := utf8.DecodeRuneInString(field)
	return string(unicode.ToLower(r)) + field[size:]
}
