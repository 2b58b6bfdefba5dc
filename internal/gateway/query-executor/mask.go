package queryexecutor

import (
	"strings"

	"shopping-agent-gateway/internal/models"
)

// baseMasked is stripped from rows of every collection.
var baseMasked = []string{"password", "token", "secret", "apiKey"}

var collectionMasked = map[string][]string{
	models.CollectionUsers:  {"passwordHash", "refreshToken"},
	models.CollectionOrders: {"paymentToken", "cardNumber", "cvv"},
}

// Masker removes sensitive keys from documents at any depth. Matching is
// case-insensitive on the key name.
type Masker struct {
	fields map[string]map[string]bool
	base   map[string]bool
}

func NewMasker() *Masker {
	m := &Masker{
		fields: map[string]map[string]bool{},
		base:   lowerSet(baseMasked),
	}
	for collection, extra := range collectionMasked {
		set := lowerSet(baseMasked)
		for _, f := range extra {
			set[strings.ToLower(f)] = true
		}
		m.fields[collection] = set
	}
	return m
}

// Mask returns a copy of doc without the keys masked for collection.
func (m *Masker) Mask(collection string, doc map[string]interface{}) map[string]interface{} {
	set, ok := m.fields[collection]
	if !ok {
		set = m.base
	}
	return maskValue(doc, set).(map[string]interface{})
}

// MaskAll masks every row of a result set.
func (m *Masker) MaskAll(collection string, docs []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, m.Mask(collection, doc))
	}
	return out
}

// Masked lists the keys stripped for collection.
func (m *Masker) Masked(collection string) []string {
	out := append([]string(nil), baseMasked...)
	return append(out, collectionMasked[collection]...)
}

func maskValue(v interface{}, set map[string]bool) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if set[strings.ToLower(k)] {
				continue
			}
			out[k] = maskValue(item, set)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = maskValue(item, set)
		}
		return out
	}
	return v
}

func lowerSet(fields []string) map[string]bool {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = true
	}
	return set
}
