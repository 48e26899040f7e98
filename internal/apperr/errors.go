// errors.go
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadySynchronized indica que la orden entrante es equivalente a la persistida.
// No es un error de negocio: el llamador lo cuenta como "ya sincronizada".
var ErrAlreadySynchronized = errors.New("orden ya sincronizada")

// ErrConcurrentUpdate: la orden cambió entre la lectura y la escritura. Se puede reintentar
// después de releer la orden.
var ErrConcurrentUpdate = errors.New("la orden fue modificada concurrentemente, vuelva a intentar")

// FieldError describe un campo inválido.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError: el estado o la forma del documento no pasa el esquema. Nunca se persiste.
type ValidationError struct {
	Fields []FieldError
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validación fallida: " + strings.Join(parts, ", ")
}

// PreconditionError: la compuerta de la máquina de estados no se cumple.
type PreconditionError struct {
	Condition string
}

func NewPrecondition(format string, args ...any) *PreconditionError {
	return &PreconditionError{Condition: fmt.Sprintf(format, args...)}
}

func (e *PreconditionError) Error() string {
	return "precondición no cumplida: " + e.Condition
}

// ConfigurationError: el registro de estados no tiene los códigos requeridos.
type ConfigurationError struct {
	Kind   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Kind == "" {
		return "configuración inválida: " + e.Reason
	}
	return fmt.Sprintf("configuración inválida (%s): %s", e.Kind, e.Reason)
}

// NotFoundError: orden o tracking referenciado no existe.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Resource, e.ID)
}

// UpstreamCategory clasifica fallas de la fuente externa.
type UpstreamCategory string

const (
	UpstreamAuth      UpstreamCategory = "auth"
	UpstreamRateLimit UpstreamCategory = "rate_limit"
	UpstreamServer    UpstreamCategory = "server"
	UpstreamNotFound  UpstreamCategory = "not_found"
	UpstreamTransport UpstreamCategory = "transport"
	UpstreamDecode    UpstreamCategory = "decode"
	UpstreamClient    UpstreamCategory = "client"
)

// UpstreamError envuelve una falla de transporte/auth/rate-limit de un servicio externo.
type UpstreamError struct {
	Service    string
	Category   UpstreamCategory
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: error upstream (%s", e.Service, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", HTTP %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable indica si vale la pena reintentar la llamada.
func (e *UpstreamError) Retryable() bool {
	switch e.Category {
	case UpstreamRateLimit, UpstreamServer, UpstreamTransport:
		return true
	}
	return false
}

// CategoryFromStatus clasifica un código HTTP no exitoso.
func CategoryFromStatus(code int) UpstreamCategory {
	switch {
	case code == 401 || code == 403:
		return UpstreamAuth
	case code == 404:
		return UpstreamNotFound
	case code == 429:
		return UpstreamRateLimit
	case code >= 500:
		return UpstreamServer
	default:
		return UpstreamClient
	}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPrecondition(err error) bool {
	var p *PreconditionError
	return errors.As(err, &p)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsConcurrentUpdate(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}

func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}
