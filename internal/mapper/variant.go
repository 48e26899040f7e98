package mapper

import "strings"

// defaultVariant es el título que Shopify usa para productos sin variantes.
const defaultVariant = "Default Title"

const variantJoin = " / "

// ParseVariant separa un descriptor combinado ("Negro / XL") en color y talla.
// Todo lo que sigue al primer separador queda en la talla.
func ParseVariant(descriptor string) (color, size string) {
	parts := splitVariant(descriptor)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], variantJoin)
	}
}

// VariantTitle reconstruye el descriptor a partir de color y talla.
func VariantTitle(color, size string) string {
	parts := make([]string, 0, 2)
	if color != "" {
		parts = append(parts, color)
	}
	if size != "" {
		parts = append(parts, size)
	}
	return strings.Join(parts, variantJoin)
}

// NormalizeVariant lleva un descriptor externo a la misma forma que VariantTitle.
func NormalizeVariant(descriptor string) string {
	return VariantTitle(ParseVariant(descriptor))
}

func splitVariant(descriptor string) []string {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" || descriptor == defaultVariant {
		return nil
	}
	raw := strings.FieldsFunc(descriptor, func(r rune) bool {
		return r == '/' || r == '|'
	})
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
