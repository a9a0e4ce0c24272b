package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// undefined marca un campo ausente en el JSON (distinto de null).
type undefined struct{}

// Undefined es el valor que devuelve field() para keys ausentes.
var Undefined any = undefined{}

// field lee key de raw distinguiendo ausente (Undefined) de null (nil).
func field(raw map[string]any, key string) any {
	v, ok := raw[key]
	if !ok {
		return Undefined
	}
	return v
}

// stringify convierte un valor JSON decodificado a string con las reglas de
// String(v) del navegador, que es como el backend espera ver estos campos.
func stringify(v any) string {
	switch t := v.(type) {
	case undefined:
		return "undefined"
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e == nil {
				continue
			}
			if _, ok := e.(undefined); ok {
				continue
			}
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// coalesce devuelve "" para campos ausentes o null y el valor como string si no.
func coalesce(v any) string {
	switch t := v.(type) {
	case undefined, nil:
		return ""
	case string:
		return t
	default:
		return stringify(v)
	}
}
