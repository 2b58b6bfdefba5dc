// internal/common/database/store.go
package database

// SortField is one sort key. Direction is 1 (ascending) or -1 (descending).
type SortField struct {
	Field     string
	Direction int
}

// FindOptions carries the read options a document store applies to a find.
// Zero Limit means no limit.
type FindOptions struct {
	Projection map[string]interface{}
	Sort       []SortField
	Skip       int64
	Limit      int64
}
