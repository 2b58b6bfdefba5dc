package typeregistry

import (
	"shopping-agent-gateway/internal/common/validation"
	"shopping-agent-gateway/internal/models"
)

const (
	// QuantityMax bounds every cart and checkout quantity.
	QuantityMax = 100
	// QueryLimitMax is the policy ceiling for a generated query. The wire
	// ceiling enforced by the query gate is higher.
	QueryLimitMax = 100
	// QuestionsMax bounds clarification questions per response.
	QuestionsMax = 3
)

var (
	requestIDProp = validation.Property{Type: "string", MinLength: validation.Int(1)}
	nonEmpty      = validation.Property{Type: "string", MinLength: validation.Int(1)}
	objectList    = validation.Property{Type: "array", Items: &validation.Property{Type: "object"}}
	quantityProp  = validation.Property{
		Type:    "integer",
		Minimum: validation.Float(1),
		Maximum: validation.Float(QuantityMax),
	}
)

func typeProp(t models.ResponseType) validation.Property {
	return validation.Property{Type: "string", Const: validation.String(string(t))}
}

var responseSchemas = map[models.ResponseType]validation.JSONSchema{
	models.ResponseTypeAnswer: {
		Type:     "object",
		Required: []string{"type", "requestId", "answer"},
		Properties: map[string]validation.Property{
			"type":        typeProp(models.ResponseTypeAnswer),
			"requestId":   requestIDProp,
			"answer":      nonEmpty,
			"products":    objectList,
			"suggestions": {Type: "array", Items: &validation.Property{Type: "string"}},
		},
		AdditionalProperties: true,
	},
	models.ResponseTypeBriefing: {
		Type:     "object",
		Required: []string{"type", "requestId", "briefing", "products"},
		Properties: map[string]validation.Property{
			"type":      typeProp(models.ResponseTypeBriefing),
			"requestId": requestIDProp,
			"briefing":  nonEmpty,
			"products":  {Type: "array", MinItems: validation.Int(1), Items: &validation.Property{Type: "object"}},
		},
		AdditionalProperties: true,
	},
	models.ResponseTypeMongoQuery: {
		Type:     "object",
		Required: []string{"type", "requestId", "collection", "query", "purpose"},
		Properties: map[string]validation.Property{
			"type":       typeProp(models.ResponseTypeMongoQuery),
			"requestId":  requestIDProp,
			"collection": {Type: "string", Enum: models.Collections},
			"query":      {Type: "object"},
			"projection": {Type: "object"},
			"options": {Type: "object", Properties: map[string]validation.Property{
				"limit": {Type: "integer", Minimum: validation.Float(1), Maximum: validation.Float(QueryLimitMax)},
				"skip":  {Type: "integer", Minimum: validation.Float(0)},
				"sort":  {Type: "object"},
			}},
			"purpose": nonEmpty,
		},
		AdditionalProperties: true,
	},
	models.ResponseTypeToolCall: {
		Type:     "object",
		Required: []string{"type", "requestId", "tool", "payload", "humanSummary"},
		Properties: map[string]validation.Property{
			"type":         typeProp(models.ResponseTypeToolCall),
			"requestId":    requestIDProp,
			"tool":         nonEmpty,
			"payload":      {Type: "object"},
			"actorRole":    {Type: "string", Enum: []string{string(models.UserTypeConsumer), string(models.UserTypeSeller)}},
			"timestamp":    {Type: "string"},
			"humanSummary": nonEmpty,
		},
		AdditionalProperties: true,
	},
	models.ResponseTypeNeedMoreInfo: {
		Type:     "object",
		Required: []string{"type", "requestId", "questions"},
		Properties: map[string]validation.Property{
			"type":      typeProp(models.ResponseTypeNeedMoreInfo),
			"requestId": requestIDProp,
			"questions": {
				Type:     "array",
				MinItems: validation.Int(1),
				MaxItems: validation.Int(QuestionsMax),
				Items:    &nonEmpty,
			},
			"reason": {Type: "string"},
		},
		AdditionalProperties: true,
	},
}

var toolEnvelopeSchema = validation.JSONSchema{
	Type:     "object",
	Required: []string{"tool", "payload", "actorRole", "requestId", "humanSummary"},
	Properties: map[string]validation.Property{
		"tool":         {Type: "string", Enum: models.ToolNameStrings()},
		"payload":      {Type: "object"},
		"actorRole":    {Type: "string", Enum: []string{string(models.UserTypeConsumer), string(models.UserTypeSeller)}},
		"timestamp":    {Type: "string"},
		"requestId":    requestIDProp,
		"humanSummary": nonEmpty,
	},
	AdditionalProperties: true,
}

// toolVariant is one payload contract. check runs after the schema passes.
type toolVariant struct {
	schema     validation.JSONSchema
	check      func(payload map[string]interface{}) *validation.ValidationError
	sellerOnly bool
}

var toolVariants = map[models.ToolName]toolVariant{
	models.ToolAddToCart: {schema: validation.JSONSchema{
		Type:     "object",
		Required: []string{"productId", "quantity"},
		Properties: map[string]validation.Property{
			"productId": nonEmpty,
			"quantity":  quantityProp,
			"options":   {Type: "object"},
		},
		AdditionalProperties: true,
	}},
	models.ToolToggleWishlist: {schema: validation.JSONSchema{
		Type:                 "object",
		Required:             []string{"productId"},
		Properties:           map[string]validation.Property{"productId": nonEmpty},
		AdditionalProperties: true,
	}},
	models.ToolGoToCheckout: {
		schema: validation.JSONSchema{
			Type: "object",
			Properties: map[string]validation.Property{
				"productId":   nonEmpty,
				"quantity":    quantityProp,
				"cartItemIds": {Type: "array", MinItems: validation.Int(1), Items: &validation.Property{Type: "string"}},
			},
			AdditionalProperties: true,
		},
		check: checkoutTarget,
	},
	models.ToolRequestCancel: {schema: validation.JSONSchema{
		Type:     "object",
		Required: []string{"orderId"},
		Properties: map[string]validation.Property{
			"orderId": nonEmpty,
			"reason":  {Type: "string"},
		},
		AdditionalProperties: true,
	}},
	models.ToolRequestRefund: {schema: validation.JSONSchema{
		Type:     "object",
		Required: []string{"orderId", "reason"},
		Properties: map[string]validation.Property{
			"orderId": nonEmpty,
			"reason":  nonEmpty,
			"items":   {Type: "array", Items: &validation.Property{Type: "string"}},
		},
		AdditionalProperties: true,
	}},
	models.ToolSellerProductRegister: {
		schema: validation.JSONSchema{
			Type:     "object",
			Required: []string{"name", "price", "categoryId"},
			Properties: map[string]validation.Property{
				"name":        nonEmpty,
				"price":       {Type: "number", ExclusiveMinimum: validation.Float(0)},
				"categoryId":  nonEmpty,
				"stock":       {Type: "integer", Minimum: validation.Float(0)},
				"description": {Type: "string"},
			},
			AdditionalProperties: true,
		},
		sellerOnly: true,
	},
}

// checkoutTarget requires either a cart selection or a direct product purchase.
func checkoutTarget(payload map[string]interface{}) *validation.ValidationError {
	if _, ok := payload["cartItemIds"]; ok {
		return nil
	}
	_, hasProduct := payload["productId"]
	_, hasQuantity := payload["quantity"]
	if hasProduct && hasQuantity {
		return nil
	}
	return &validation.ValidationError{
		Field:   "payload",
		Message: "requires cartItemIds, or productId together with quantity",
		Code:    "REQUIRED_FIELD_MISSING",
	}
}
