package querygate

import (
	"fmt"
	"sort"
	"strings"
)

// SensitiveFields are never returned by a generated query.
var SensitiveFields = []string{"password", "token", "secret", "apiKey"}

func isSensitivePath(path string) bool {
	for _, segment := range strings.Split(path, ".") {
		for _, field := range SensitiveFields {
			if strings.EqualFold(segment, field) {
				return true
			}
		}
	}
	return false
}

// projectionFlag reads 0/1/true/false. Expression projections are refused
// because an alias can re-expose a redacted field.
func projectionFlag(value interface{}) (include bool, ok bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	}
	return false, false
}

// redactProjection drops inclusion of sensitive fields. When no inclusion
// remains the projection is forced to exclude every sensitive field.
func redactProjection(projection map[string]interface{}) (map[string]interface{}, error) {
	keys := make([]string, 0, len(projection))
	for k := range projection {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(projection)+len(SensitiveFields))
	inclusive := false
	for _, key := range keys {
		include, ok := projectionFlag(projection[key])
		if !ok {
			return nil, fmt.Errorf("projection.%s must be 0, 1, true or false", key)
		}
		if include && isSensitivePath(key) {
			continue
		}
		if include {
			out[key] = 1
			if key != "_id" {
				inclusive = true
			}
			continue
		}
		out[key] = 0
	}

	if inclusive {
		// A mixed projection is invalid in the store; only _id may be excluded
		// alongside inclusions.
		for key, v := range out {
			if v == 0 && key != "_id" {
				delete(out, key)
			}
		}
		return out, nil
	}
	for key, v := range out {
		if v == 1 {
			delete(out, key)
		}
	}
	for _, field := range SensitiveFields {
		out[field] = 0
	}
	return out, nil
}
