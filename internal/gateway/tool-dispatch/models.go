package tooldispatch

import (
	"context"

	toolgateway "shopping-agent-gateway/internal/gateway/tool-gateway"
	"shopping-agent-gateway/internal/models"
)

// Collaborator services that own the state a tool changes.
const (
	ServiceCart     = "cart"
	ServiceWishlist = "wishlist"
	ServiceOrder    = "order"
	ServiceProduct  = "product"
)

// services maps every allowed tool to the collaborator that executes it.
var services = map[models.ToolName]string{
	models.ToolAddToCart:             ServiceCart,
	models.ToolGoToCheckout:          ServiceCart,
	models.ToolToggleWishlist:        ServiceWishlist,
	models.ToolRequestCancel:         ServiceOrder,
	models.ToolRequestRefund:         ServiceOrder,
	models.ToolSellerProductRegister: ServiceProduct,
}

// ServiceFor returns the collaborator service of tool.
func ServiceFor(tool models.ToolName) (string, bool) {
	service, ok := services[tool]
	return service, ok
}

// Collaborator executes a sanitized tool call and owns its persistence.
type Collaborator interface {
	Execute(ctx context.Context, call models.ToolCall) (*Receipt, error)
}

type Validator interface {
	Validate(call models.ToolCall, user models.UserContext) *toolgateway.Result
}

// Receipt is a collaborator's acknowledgement of an executed tool call.
type Receipt struct {
	Service   string                 `json:"service"`
	Tool      models.ToolName        `json:"tool"`
	RequestID string                 `json:"requestId"`
	Status    string                 `json:"status"`
	Reference string                 `json:"reference,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ConfirmRequest is the body a client sends after the user accepts a
// RETURN_FOR_CONFIRMATION result.
type ConfirmRequest struct {
	Tool        models.ToolCall    `json:"tool"`
	UserContext models.UserContext `json:"userContext"`
}
