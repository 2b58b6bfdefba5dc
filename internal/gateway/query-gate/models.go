package querygate

import (
	"sort"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/models"
)

// Sanitized is a query that passed the gate. Only this package can build one,
// so holding a *Sanitized proves the query was scoped, capped and redacted.
// Every accessor returns a copy.
type Sanitized struct {
	collection    string
	filter        map[string]interface{}
	projection    map[string]interface{}
	sort          map[string]int
	skip          int
	limit         int
	limitSupplied bool
	purpose       string
}

func (s *Sanitized) Collection() string { return s.collection }
func (s *Sanitized) Purpose() string    { return s.purpose }
func (s *Sanitized) Skip() int          { return s.skip }
func (s *Sanitized) Limit() int         { return s.limit }

// LimitSupplied reports whether the caller asked for a limit explicitly.
func (s *Sanitized) LimitSupplied() bool { return s.limitSupplied }

func (s *Sanitized) Filter() map[string]interface{} {
	return deepCopy(s.filter).(map[string]interface{})
}

// Projection returns nil when the query has no projection.
func (s *Sanitized) Projection() map[string]interface{} {
	if s.projection == nil {
		return nil
	}
	return deepCopy(s.projection).(map[string]interface{})
}

// SortKey is one sort field and direction.
type SortKey struct {
	Field     string
	Direction int
}

// Sort returns sort keys ordered by field name.
func (s *Sanitized) Sort() []SortKey {
	keys := make([]SortKey, 0, len(s.sort))
	for field, dir := range s.sort {
		keys = append(keys, SortKey{Field: field, Direction: dir})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Field < keys[j].Field })
	return keys
}

// Request renders the sanitized query back into request form.
func (s *Sanitized) Request() models.MongoQueryRequest {
	req := models.MongoQueryRequest{
		Collection: s.collection,
		Query:      s.Filter(),
		Projection: s.Projection(),
		Purpose:    s.purpose,
	}
	opts := &models.QueryOptions{}
	if s.limitSupplied {
		limit := s.limit
		opts.Limit = &limit
	}
	if s.skip > 0 {
		skip := s.skip
		opts.Skip = &skip
	}
	if len(s.sort) > 0 {
		opts.Sort = make(map[string]interface{}, len(s.sort))
		for field, dir := range s.sort {
			opts.Sort[field] = dir
		}
	}
	if opts.Limit != nil || opts.Skip != nil || opts.Sort != nil {
		req.Options = opts
	}
	return req
}

// Result is either a single rejection reason or a sanitized query.
type Result struct {
	IsValid   bool
	Error     string
	Code      apperrors.ErrorCode
	Sanitized *Sanitized
}

// Err converts a rejection into a StandardError.
func (r *Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &apperrors.StandardError{Code: r.Code, Message: r.Error}
}
