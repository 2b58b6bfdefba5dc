package querygate

// deepCopy copies decoded JSON documents so the sanitized query never
// aliases the caller's maps or slices.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
