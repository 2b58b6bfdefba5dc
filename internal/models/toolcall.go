// internal/models/toolcall.go
package models

// ToolName is the closed set of state-changing actions an agent may propose.
type ToolName string

const (
	ToolAddToCart             ToolName = "addToCart"
	ToolToggleWishlist        ToolName = "toggleWishlist"
	ToolGoToCheckout          ToolName = "goToCheckout"
	ToolRequestCancel         ToolName = "requestCancel"
	ToolRequestRefund         ToolName = "requestRefund"
	ToolSellerProductRegister ToolName = "sellerProductRegister"
)

// ToolNames lists the allow-list in declaration order.
var ToolNames = []ToolName{
	ToolAddToCart,
	ToolToggleWishlist,
	ToolGoToCheckout,
	ToolRequestCancel,
	ToolRequestRefund,
	ToolSellerProductRegister,
}

// ToolCall is a proposed action. Payload shape depends on Tool.
type ToolCall struct {
	Tool         ToolName               `json:"tool"`
	Payload      map[string]interface{} `json:"payload"`
	ActorRole    UserType               `json:"actorRole,omitempty"`
	Timestamp    string                 `json:"timestamp,omitempty"`
	RequestID    string                 `json:"requestId"`
	HumanSummary string                 `json:"humanSummary"`
}

// Quantity returns payload.quantity when it is a number.
func (t *ToolCall) Quantity() (int, bool) {
	switch q := t.Payload["quantity"].(type) {
	case float64:
		return int(q), true
	case int:
		return q, true
	case int64:
		return int(q), true
	}
	return 0, false
}

// ToolNameStrings returns the allow-list as plain strings.
func ToolNameStrings() []string {
	out := make([]string, len(ToolNames))
	for i, name := range ToolNames {
		out[i] = string(name)
	}
	return out
}
