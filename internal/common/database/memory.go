// internal/common/database/memory.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process document store used by the memory driver and
// tests. It understands the filter subset the gateway emits: equality,
// $eq, $ne, $in, $nin, $gt, $gte, $lt, $lte, $regex (with $options), $exists,
// $and and $or, over dotted paths.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]map[string]interface{}
	failWith    error
	queries     []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string][]map[string]interface{}{}}
}

// Insert appends documents to a collection, creating it if needed.
func (s *MemoryStore) Insert(collection string, docs ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.collections[collection] = append(s.collections[collection], copyDoc(doc))
	}
}

// Fail makes every following call return err. Pass nil to recover.
func (s *MemoryStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// Queries returns the collections queried so far, one entry per call.
func (s *MemoryStore) Queries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.queries...)
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filter map[string]interface{}, opts FindOptions) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.queries = append(s.queries, "find:"+collection)
	failWith := s.failWith
	s.mu.Unlock()
	if failWith != nil {
		return nil, failWith
	}

	matched, err := s.match(collection, filter)
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, key := range opts.Sort {
				a, _ := lookup(matched[i], key.Field)
				b, _ := lookup(matched[j], key.Field)
				c := compare(a, b)
				if c == 0 {
					continue
				}
				if key.Direction < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	out := make([]map[string]interface{}, 0, len(matched))
	for _, doc := range matched {
		out = append(out, project(doc, opts.Projection))
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.queries = append(s.queries, "count:"+collection)
	failWith := s.failWith
	s.mu.Unlock()
	if failWith != nil {
		return 0, failWith
	}

	matched, err := s.match(collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *MemoryStore) match(collection string, filter map[string]interface{}) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	out := []map[string]interface{}{}
	for _, doc := range docs {
		ok, err := matchDocument(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyDoc(doc))
		}
	}
	return out, nil
}

func matchDocument(doc, filter map[string]interface{}) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$and", "$or":
			clauses, ok := cond.([]interface{})
			if !ok {
				return false, fmt.Errorf("%s expects an array", key)
			}
			matchedAny := false
			for _, clause := range clauses {
				sub, ok := clause.(map[string]interface{})
				if !ok {
					return false, fmt.Errorf("%s clauses must be objects", key)
				}
				matched, err := matchDocument(doc, sub)
				if err != nil {
					return false, err
				}
				if key == "$and" && !matched {
					return false, nil
				}
				matchedAny = matchedAny || matched
			}
			if key == "$or" && !matchedAny {
				return false, nil
			}
		default:
			value, exists := lookup(doc, key)
			ok, err := matchCondition(value, exists, cond)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchCondition(value interface{}, exists bool, cond interface{}) (bool, error) {
	ops, isOps := cond.(map[string]interface{})
	if !isOps || !hasOperator(ops) {
		return exists && equalOrContains(value, cond), nil
	}

	for op, operand := range ops {
		switch op {
		case "$eq":
			if !exists || !equalOrContains(value, operand) {
				return false, nil
			}
		case "$ne":
			if exists && equalOrContains(value, operand) {
				return false, nil
			}
		case "$in", "$nin":
			list, ok := operand.([]interface{})
			if !ok {
				return false, fmt.Errorf("%s expects an array", op)
			}
			found := false
			for _, candidate := range list {
				if exists && equalOrContains(value, candidate) {
					found = true
					break
				}
			}
			if found != (op == "$in") {
				return false, nil
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !exists {
				return false, nil
			}
			c := compare(value, operand)
			if (op == "$gt" && c <= 0) || (op == "$gte" && c < 0) || (op == "$lt" && c >= 0) || (op == "$lte" && c > 0) {
				return false, nil
			}
		case "$regex":
			pattern, _ := operand.(string)
			if flags, _ := ops["$options"].(string); strings.Contains(flags, "i") {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return false, fmt.Errorf("invalid $regex: %w", err)
			}
			str, ok := value.(string)
			if !exists || !ok || !re.MatchString(str) {
				return false, nil
			}
		case "$options":
		case "$exists":
			want, _ := operand.(bool)
			if exists != want {
				return false, nil
			}
		default:
			return false, fmt.Errorf("operator %s is not supported by the memory store", op)
		}
	}
	return true, nil
}

func hasOperator(m map[string]interface{}) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// equalOrContains follows document-store array semantics: a scalar
// condition matches an array field when any element equals it.
func equalOrContains(value, want interface{}) bool {
	if list, ok := value.([]interface{}); ok {
		if _, wantList := want.([]interface{}); !wantList {
			for _, item := range list {
				if equal(item, want) {
					return true
				}
			}
			return false
		}
	}
	return equal(value, want)
}

func equal(a, b interface{}) bool {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
		return false
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

// compare orders numbers numerically and everything else by its string form.
func compare(a, b interface{}) int {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// project applies a top-level inclusion or exclusion projection.
func project(doc map[string]interface{}, projection map[string]interface{}) map[string]interface{} {
	if len(projection) == 0 {
		return doc
	}

	inclusion := false
	for field, flag := range projection {
		if field != "_id" && truthy(flag) {
			inclusion = true
			break
		}
	}

	out := map[string]interface{}{}
	if inclusion {
		for field, flag := range projection {
			if truthy(flag) {
				if v, ok := doc[field]; ok {
					out[field] = v
				}
			}
		}
		if flag, set := projection["_id"]; !set || truthy(flag) {
			if id, ok := doc["_id"]; ok {
				out["_id"] = id
			}
		}
		return out
	}

	for field, v := range doc {
		if flag, set := projection[field]; set && !truthy(flag) {
			continue
		}
		out[field] = v
	}
	return out
}

func truthy(flag interface{}) bool {
	switch f := flag.(type) {
	case bool:
		return f
	default:
		n, ok := number(flag)
		return ok && n != 0
	}
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return copyDoc(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	}
	return v
}
