package command

import (
	"encoding/json"
	"math"

	"filethings/internal/apperr"
)

// Params is a decoded JSON parameter object. JSON null counts as absent.
type Params map[string]any

// DecodeParams parses a JSON object. An empty string is an empty object.
func DecodeParams(raw string) (Params, error) {
	p := Params{}
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Params{}
	}
	return p, nil
}

func (p Params) get(key string) (any, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present, even with a null value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the first present alias. A missing value reports the first
// alias; a non-string or empty value reports the alias that was found.
func (p Params) String(keys ...string) (string, error) {
	for _, key := range keys {
		v, ok := p.get(key)
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			return "", apperr.Param("Invalid parameter: %s", key)
		}
		if s == "" {
			return "", apperr.Param("Missing value for parameter: %s", key)
		}
		return s, nil
	}
	return "", apperr.Param("Missing parameter: %s", keys[0])
}

// Required returns a string stored under key, with backtick-quoted messages.
func (p Params) Required(key string) (string, error) {
	v, ok := p.get(key)
	if !ok {
		return "", apperr.Param("`%s` is required", key)
	}
	s, isStr := v.(string)
	if !isStr {
		return "", apperr.Param("`%s` must be a string", key)
	}
	return s, nil
}

// Optional returns the string under the first present alias, or def.
func (p Params) Optional(def string, keys ...string) (string, error) {
	for _, key := range keys {
		v, ok := p.get(key)
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			return "", apperr.Param("%s must be a string", key)
		}
		return s, nil
	}
	return def, nil
}

// Array returns the array under key; ok is false when key is absent.
func (p Params) Array(key string) ([]any, bool, error) {
	v, ok := p.get(key)
	if !ok {
		return nil, false, nil
	}
	arr, isArr := v.([]any)
	if !isArr {
		return nil, true, apperr.Param("`%s` must be an array", key)
	}
	return arr, true, nil
}

// RequiredArray is Array with a missing key reported as an error.
func (p Params) RequiredArray(key string) ([]any, error) {
	arr, ok, err := p.Array(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Param("`%s` is required", key)
	}
	return arr, nil
}

// Bool returns the boolean under key or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p.get(key)
	if !ok {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, apperr.Param("%s must be a boolean", key)
	}
	return b, nil
}

// LooseBool returns the boolean under key, treating any other value as false.
func (p Params) LooseBool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Uint returns a non-negative integer under key, or def when absent.
func (p Params) Uint(key string, def uint64) (uint64, bool, error) {
	v, ok := p.get(key)
	if !ok {
		return def, false, nil
	}
	n, isInt := asInt(v)
	if !isInt || n < 0 {
		return 0, true, apperr.Param("%s must be an integer", key)
	}
	return uint64(n), true, nil
}

// Object returns the object under key.
func (p Params) Object(key string) (map[string]any, bool) {
	v, ok := p.get(key)
	if !ok {
		return nil, false
	}
	m, isObj := v.(map[string]any)
	return m, isObj
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// stringsOf keeps the non-empty strings of arr, in order.
func stringsOf(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
