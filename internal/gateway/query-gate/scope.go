package querygate

import (
	"shopping-agent-gateway/internal/models"
)

// scopeRule names the ownership field a collection is filtered by for one
// side of the marketplace.
type scopeRule struct {
	field string
	owner func(models.UserContext) string
}

// A signed-out context owns nothing, whatever ids it carries.
func userID(u models.UserContext) string {
	if !u.IsLoggedIn {
		return ""
	}
	return u.UserID
}

func sellerID(u models.UserContext) string {
	if !u.IsLoggedIn {
		return ""
	}
	return u.SellerID
}

var consumerScopes = map[string]scopeRule{
	models.CollectionOrders:    {field: "userId", owner: userID},
	models.CollectionCarts:     {field: "userId", owner: userID},
	models.CollectionWishlists: {field: "userId", owner: userID},
	models.CollectionReviews:   {field: "userId", owner: userID},
	models.CollectionPoints:    {field: "userId", owner: userID},
	models.CollectionUsers:     {field: "_id", owner: userID},
}

var sellerScopes = map[string]scopeRule{
	models.CollectionProducts: {field: "sellerId", owner: sellerID},
	models.CollectionOrders:   {field: "sellerId", owner: sellerID},
}

// sellerForbidden are consumer-private collections a seller identity never reads.
var sellerForbidden = map[string]bool{
	models.CollectionCarts:     true,
	models.CollectionWishlists: true,
	models.CollectionPoints:    true,
	models.CollectionUsers:     true,
}

func scopeFor(collection string, user models.UserContext) (scopeRule, bool) {
	if user.Role() == models.UserTypeSeller {
		r, ok := sellerScopes[collection]
		return r, ok
	}
	r, ok := consumerScopes[collection]
	return r, ok
}

// ownedValue reports whether a condition on the ownership field is a plain
// equality with owner. Operators such as $ne, $in or $regex never qualify.
func ownedValue(value interface{}, owner string) bool {
	switch v := value.(type) {
	case string:
		return v == owner
	case map[string]interface{}:
		if len(v) != 1 {
			return false
		}
		eq, ok := v["$eq"].(string)
		return ok && eq == owner
	}
	return false
}

// allConditionsOwned walks the whole filter, including $and/$or/$nor branches
// and nested documents, and returns false if any condition on field is not
// an equality with owner.
func allConditionsOwned(node interface{}, field, owner string) bool {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			if key == field && !ownedValue(child, owner) {
				return false
			}
			if !allConditionsOwned(child, field, owner) {
				return false
			}
		}
	case []interface{}:
		for _, child := range v {
			if !allConditionsOwned(child, field, owner) {
				return false
			}
		}
	}
	return true
}

// applyScope checks every ownership condition and pins the top-level one to
// owner, injecting it when absent. filter is modified in place.
func applyScope(filter map[string]interface{}, rule scopeRule, owner string) bool {
	if !allConditionsOwned(filter, rule.field, owner) {
		return false
	}
	filter[rule.field] = owner
	return true
}
