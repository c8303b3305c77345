package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToString converts decoded JSON scalars to their textual form.
// Numbers keep their literal spelling when decoded as json.Number and nil
// becomes the empty string.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsScalar reports whether a decoded JSON value is a string, number or bool.
func IsScalar(val any) bool {
	switch val.(type) {
	case string, json.Number, bool, float64, float32, int, int64:
		return true
	default:
		return false
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true", "yes").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v == 1
	case json.Number:
		return v.String() == "1"
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case []byte:
		return ToBool(string(v))
	default:
		return false
	}
}
