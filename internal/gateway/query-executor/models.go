package queryexecutor

// Output is a masked result set.
type Output struct {
	Collection string                   `json:"collection"`
	Purpose    string                   `json:"purpose"`
	Documents  []map[string]interface{} `json:"documents"`
	Returned   int                      `json:"returned"`
	// Total is set only when the query supplied its own limit.
	Total *int64 `json:"total,omitempty"`
}
