package mapper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"order-tracking-service/internal/apperr"
	"order-tracking-service/internal/model"
	"order-tracking-service/internal/status"
)

var orderTypes = map[string]bool{
	model.OrderTypePreOrder:    true,
	model.OrderTypeImmediate:   true,
	model.OrderTypeReplacement: true,
	model.OrderTypeUndefined:   true,
}

var paymentStatuses = map[string]bool{
	model.PaymentAuthorized:        true,
	model.PaymentPaid:              true,
	model.PaymentPartiallyPaid:     true,
	model.PaymentPartiallyRefunded: true,
	model.PaymentPending:           true,
	model.PaymentRefunded:          true,
	model.PaymentVoided:            true,
}

// newValidator arma el validador del esquema de documentos (equivalente al esquema de órdenes).
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	inSet := func(set map[string]bool) validator.Func {
		return func(fl validator.FieldLevel) bool { return set[fl.Field().String()] }
	}
	if err := registerValidations(v, map[string]validator.Func{
		"ordertype":     inSet(orderTypes),
		"purchasetype":  inSet(orderTypes),
		"paymentstatus": inSet(paymentStatuses),
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(productStructLevel, model.Product{})
	return v
}

func registerValidations(v *validator.Validate, fns map[string]validator.Func) error {
	for tag, fn := range fns {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("mapper: validación %q: %w", tag, err)
		}
	}
	return nil
}

// La orden de compra al proveedor es obligatoria en pre-orden y no aplica en otro caso.
func productStructLevel(sl validator.StructLevel) {
	p := sl.Current().Interface().(model.Product)
	switch {
	case p.PurchaseType == model.PurchaseTypePreOrder && p.SupplierPO == "":
		sl.ReportError(p.SupplierPO, "supplierPO", "SupplierPO", "required_for_preorder", "")
	case p.PurchaseType != model.PurchaseTypePreOrder && p.SupplierPO != "":
		sl.ReportError(p.SupplierPO, "supplierPO", "SupplierPO", "excluded_unless_preorder", "")
	}
}

// ValidateOrder valida la forma del documento y que todos los estados existan en el registro.
func (m *Mapper) ValidateOrder(o *model.Order, reg *status.Registry) error {
	verr := &apperr.ValidationError{}

	if err := m.validate.Struct(o); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			verr.Add(strings.TrimPrefix(fe.Namespace(), "Order."), "regla "+fe.Tag())
		}
	}

	for i, e := range o.StatusHistory {
		if _, ok := reg.KindOf(e.Status); !ok {
			verr.Add(fmt.Sprintf("statusHistory[%d].status", i), fmt.Sprintf("estado %q no reconocido", e.Status))
		}
	}
	if o.CurrentStatus.Status != "" {
		if _, ok := reg.KindOf(o.CurrentStatus.Status); !ok {
			verr.Add("currentStatus.status", fmt.Sprintf("estado %q no reconocido", o.CurrentStatus.Status))
		}
	}
	if n := len(o.StatusHistory); n > 0 && !sameEntry(o.StatusHistory[n-1], o.CurrentStatus) {
		verr.Add("currentStatus", "no coincide con la última entrada del historial")
	}
	for i, p := range o.OrderDetails.Products {
		for j, e := range p.Status {
			if !reg.IsValid(status.KindProduct, e.Status) {
				verr.Add(fmt.Sprintf("orderDetails.products[%d].status[%d].status", i, j), fmt.Sprintf("estado %q no reconocido", e.Status))
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func sameEntry(a, b model.StatusEntry) bool {
	return a.Status == b.Status && a.Description == b.Description && a.UpdatedAt.Equal(b.UpdatedAt)
}
