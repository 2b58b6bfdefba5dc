// internal/models/query.go
package models

// Collection names of the document store.
const (
	CollectionProducts   = "products"
	CollectionCategories = "categories"
	CollectionOrders     = "orders"
	CollectionReviews    = "reviews"
	CollectionUsers      = "users"
	CollectionCarts      = "carts"
	CollectionWishlists  = "wishlists"
	CollectionCoupons    = "coupons"
	CollectionPoints     = "points"
)

// Collections is the read allow-list.
var Collections = []string{
	CollectionProducts,
	CollectionCategories,
	CollectionOrders,
	CollectionReviews,
	CollectionUsers,
	CollectionCarts,
	CollectionWishlists,
	CollectionCoupons,
	CollectionPoints,
}

// QueryOptions are cursor options of a read query. Nil fields were not supplied.
type QueryOptions struct {
	Limit *int                   `json:"limit,omitempty"`
	Sort  map[string]interface{} `json:"sort,omitempty"`
	Skip  *int                   `json:"skip,omitempty"`
}

// MongoQueryRequest is an agent-generated read against one collection.
type MongoQueryRequest struct {
	Collection string                 `json:"collection"`
	Query      map[string]interface{} `json:"query"`
	Projection map[string]interface{} `json:"projection,omitempty"`
	Options    *QueryOptions          `json:"options,omitempty"`
	Purpose    string                 `json:"purpose"`
}
