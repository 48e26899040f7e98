package service

import (
	"fmt"
	"sort"
	"strings"

	"order-tracking-service/internal/apperr"
)

// PreparedCarrier es el transportista que se asigna al preparar la orden.
const PreparedCarrier = "Correos de Costa Rica"

// CarrierRule define cómo se asigna el número de seguimiento al consolidar.
type CarrierRule struct {
	Code string
	// RequiresNumber: el operador debe ingresar el número que emitió el transportista
	RequiresNumber bool
	// Sentinel se usa cuando el transportista no emite números rastreables
	Sentinel string
}

var carrierRules = map[string]CarrierRule{
	"CorreosCR":  {Code: "CorreosCR", RequiresNumber: true},
	"DHL":        {Code: "DHL", RequiresNumber: true},
	"Mensajeria": {Code: "Mensajeria", Sentinel: "MENSAJERIA-SIN-TRACKING"},
	"Retiro":     {Code: "Retiro", Sentinel: "RETIRO-EN-TIENDA"},
}

// Carriers lista los códigos aceptados, ordenados.
func Carriers() []string {
	out := make([]string, 0, len(carrierRules))
	for code := range carrierRules {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// resolveTrackingNumber aplica la regla del transportista. Un número faltante cuando
// es requerido es un error de validación, nunca se completa por defecto.
func resolveTrackingNumber(carrier, number string) (string, error) {
	rule, ok := carrierRules[carrier]
	if !ok {
		return "", apperr.NewValidation("carrier", fmt.Sprintf("transportista %q no soportado (válidos: %s)", carrier, strings.Join(Carriers(), ", ")))
	}
	if !rule.RequiresNumber {
		return rule.Sentinel, nil
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return "", apperr.NewValidation("trackingNumber", fmt.Sprintf("requerido para %s", carrier))
	}
	return number, nil
}
