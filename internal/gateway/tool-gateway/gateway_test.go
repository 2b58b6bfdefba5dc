package toolgateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"
)

var (
	consumer = models.UserContext{UserID: "u1", IsLoggedIn: true, UserType: models.UserTypeConsumer}
	seller   = models.UserContext{SellerID: "s1", IsLoggedIn: true, UserType: models.UserTypeSeller}
)

func newGateway(t *testing.T) *Gateway {
	g := NewGateway(nil, nil, logger.NewTestLogger(t))
	g.now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func addToCart(quantity interface{}) models.ToolCall {
	return models.ToolCall{
		Tool:         models.ToolAddToCart,
		Payload:      map[string]interface{}{"productId": "p1", "quantity": quantity},
		RequestID:    "r1",
		HumanSummary: "Add the pan to your cart",
	}
}

func TestValidate_UnknownToolNamesAllowedSet(t *testing.T) {
	for _, name := range []models.ToolName{"deleteAccount", "", "AddToCart", "transferPoints"} {
		t.Run(string(name), func(t *testing.T) {
			res := newGateway(t).Validate(models.ToolCall{Tool: name, Payload: map[string]interface{}{}, RequestID: "r1", HumanSummary: "x"}, consumer)

			require.False(t, res.IsValid)
			assert.Equal(t, apperrors.ErrCodeUnsupportedOperation, res.Code)
			for _, allowed := range models.ToolNames {
				assert.Contains(t, res.Errors[0], string(allowed))
			}
			assert.Nil(t, res.SanitizedTool)
		})
	}
}

func TestValidate_AddToCartQuantity(t *testing.T) {
	tests := []struct {
		name         string
		quantity     interface{}
		wantValid    bool
		wantWarnings int
	}{
		{"zero", float64(0), false, 0},
		{"negative", float64(-3), false, 0},
		{"one", float64(1), true, 0},
		{"ten", float64(10), true, 0},
		{"mid range warns", float64(11), true, 1},
		{"upper bound warns", float64(100), true, 1},
		{"above bound", float64(101), false, 0},
		{"two hundred", float64(200), false, 0},
		{"fractional", 2.5, false, 0},
		{"string", "3", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newGateway(t).Validate(addToCart(tt.quantity), consumer)
			assert.Equal(t, tt.wantValid, res.IsValid, res.Errors)
			assert.Len(t, res.Warnings, tt.wantWarnings)
			if !tt.wantValid {
				assert.Equal(t, "payload.quantity", res.Field)
				assert.Equal(t, apperrors.ErrCodeValidation, apperrors.CodeOf(res.Err()))
			}
		})
	}
}

func TestValidate_SanitizesCopy(t *testing.T) {
	call := addToCart(float64(2))
	call.Payload["productId"] = "  p1  "
	call.Payload["price"] = 0.01
	call.Payload["options"] = map[string]interface{}{"color": " red "}
	call.ActorRole = models.UserTypeSeller

	res := newGateway(t).Validate(call, consumer)
	require.True(t, res.IsValid, res.Errors)

	out := res.SanitizedTool
	assert.Equal(t, "p1", out.Payload["productId"])
	assert.Equal(t, 2, out.Payload["quantity"])
	assert.NotContains(t, out.Payload, "price")
	assert.Equal(t, "red", out.Payload["options"].(map[string]interface{})["color"])
	assert.Equal(t, models.UserTypeConsumer, out.ActorRole)
	assert.Equal(t, "2026-10-01T12:00:00Z", out.Timestamp)

	out.Payload["productId"] = "tampered"
	assert.Equal(t, "  p1  ", call.Payload["productId"])
}

func TestValidate_ReplacesSuppliedTimestamp(t *testing.T) {
	for _, supplied := range []string{"not a time", "1999-01-01T00:00:00Z", "2099-12-31T23:59:59Z"} {
		t.Run(supplied, func(t *testing.T) {
			call := addToCart(float64(1))
			call.Timestamp = supplied

			res := newGateway(t).Validate(call, consumer)
			require.True(t, res.IsValid, res.Errors)
			assert.Equal(t, "2026-10-01T12:00:00Z", res.SanitizedTool.Timestamp)
		})
	}
}

func TestValidate_SanitizedIsIdempotent(t *testing.T) {
	g := newGateway(t)
	first := g.Validate(addToCart(float64(12)), consumer)
	require.True(t, first.IsValid)

	second := g.Validate(*first.SanitizedTool, consumer)
	require.True(t, second.IsValid)
	assert.Equal(t, first.SanitizedTool, second.SanitizedTool)
}

func TestValidate_SellerOnlyTool(t *testing.T) {
	call := models.ToolCall{
		Tool:         models.ToolSellerProductRegister,
		Payload:      map[string]interface{}{"name": "Ceramic pan", "price": 29.9, "categoryId": "cookware", "stock": float64(40)},
		RequestID:    "r1",
		HumanSummary: "Register Ceramic pan",
	}

	res := newGateway(t).Validate(call, consumer)
	assert.False(t, res.IsValid)
	assert.Equal(t, apperrors.ErrCodeScopeViolation, res.Code)

	res = newGateway(t).Validate(call, seller)
	require.True(t, res.IsValid, res.Errors)
	assert.Equal(t, models.UserTypeSeller, res.SanitizedTool.ActorRole)
	assert.Equal(t, 40, res.SanitizedTool.Payload["stock"])
}

func TestValidate_PayloadShapes(t *testing.T) {
	tests := []struct {
		name      string
		tool      models.ToolName
		payload   map[string]interface{}
		wantValid bool
		wantField string
	}{
		{"wishlist", models.ToolToggleWishlist, map[string]interface{}{"productId": "p1"}, true, ""},
		{"wishlist missing product", models.ToolToggleWishlist, map[string]interface{}{}, false, "payload.productId"},
		{"checkout cart items", models.ToolGoToCheckout, map[string]interface{}{"cartItemIds": []interface{}{"c1", "c2"}}, true, ""},
		{"checkout direct", models.ToolGoToCheckout, map[string]interface{}{"productId": "p1", "quantity": float64(1)}, true, ""},
		{"checkout empty", models.ToolGoToCheckout, map[string]interface{}{}, false, "payload"},
		{"cancel", models.ToolRequestCancel, map[string]interface{}{"orderId": "o1"}, true, ""},
		{"refund without reason", models.ToolRequestRefund, map[string]interface{}{"orderId": "o1"}, false, "payload.reason"},
		{"nil payload", models.ToolRequestCancel, nil, false, "payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newGateway(t).Validate(models.ToolCall{Tool: tt.tool, Payload: tt.payload, RequestID: "r1", HumanSummary: "ok"}, consumer)
			assert.Equal(t, tt.wantValid, res.IsValid, res.Errors)
			if !tt.wantValid {
				assert.Equal(t, tt.wantField, res.Field)
			}
		})
	}
}

func TestValidate_RequiresHumanSummary(t *testing.T) {
	call := addToCart(float64(1))
	call.HumanSummary = "   "

	res := newGateway(t).Validate(call, consumer)
	assert.False(t, res.IsValid)
	assert.Equal(t, "humanSummary", res.Field)
}

func TestValidate_BulkWarningThresholdConfigurable(t *testing.T) {
	g := NewGateway(&Config{BulkWarnThreshold: 50}, nil, logger.NewNoOpLogger())
	assert.Empty(t, g.Validate(addToCart(float64(20)), consumer).Warnings)
	assert.Len(t, g.Validate(addToCart(float64(51)), consumer).Warnings, 1)
}
