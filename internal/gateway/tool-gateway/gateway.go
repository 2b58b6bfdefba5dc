// Package toolgateway validates and sanitizes generated state-changing
// actions. It never dispatches them.
package toolgateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	"shopping-agent-gateway/internal/common/validation"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/internal/models"
)

const Component = "tool-gateway"

type Gateway struct {
	config   *Config
	registry *typeregistry.Registry
	logger   logger.Logger
	now      func() time.Time
}

func NewGateway(config *Config, registry *typeregistry.Registry, log logger.Logger) *Gateway {
	if config == nil {
		config = LoadConfig()
	}
	if registry == nil {
		registry = typeregistry.New()
	}
	return &Gateway{
		config:   config,
		registry: registry,
		logger:   logger.ForComponent(log, Component),
		now:      time.Now,
	}
}

// Validate checks call on behalf of user. actorRole always comes from user,
// whatever the generator wrote.
func (g *Gateway) Validate(call models.ToolCall, user models.UserContext) *Result {
	result := g.validate(call, user)

	outcome := "valid"
	if !result.IsValid {
		outcome = "rejected"
	}
	metrics.ToolValidations.WithLabelValues(metricTool(call.Tool), outcome).Inc()

	fields := map[string]interface{}{
		"tool":      string(call.Tool),
		"requestId": call.RequestID,
		"valid":     result.IsValid,
		"warnings":  len(result.Warnings),
	}
	if !result.IsValid {
		fields["errorCode"] = string(result.Code)
		fields["field"] = result.Field
		g.logger.Warn("tool call rejected", fields)
	} else {
		g.logger.Info("tool call validated", fields)
	}
	return result
}

func (g *Gateway) validate(call models.ToolCall, user models.UserContext) *Result {
	allowed := g.registry.ToolNames()
	if !contains(allowed, string(call.Tool)) {
		return &Result{
			Code:   apperrors.ErrCodeUnsupportedOperation,
			Field:  "tool",
			Errors: []string{fmt.Sprintf("unsupported tool %q; allowed: %s", call.Tool, strings.Join(allowed, ", "))},
		}
	}

	if g.registry.SellerOnly(call.Tool) && (user.Role() != models.UserTypeSeller || user.SellerID == "") {
		return &Result{
			Code:   apperrors.ErrCodeScopeViolation,
			Field:  "actorRole",
			Errors: []string{fmt.Sprintf("%s requires a seller identity", call.Tool)},
		}
	}

	call.ActorRole = user.Role()
	doc, err := toDocument(call)
	if err != nil {
		return &Result{Code: apperrors.ErrCodeValidation, Field: "payload", Errors: []string{err.Error()}}
	}

	classified := g.registry.ClassifyTool(doc)
	if !classified.Valid {
		errs := make([]string, 0, len(classified.Errors))
		for _, e := range classified.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
		if len(errs) == 0 {
			errs = append(errs, fmt.Sprintf("%s: %s", classified.Field, classified.Error))
		}
		return &Result{Code: classified.Code, Field: classified.Field, Errors: errs}
	}

	sanitized := g.sanitize(classified.Tool)
	return &Result{
		IsValid:       true,
		Warnings:      g.warnings(sanitized),
		SanitizedTool: sanitized,
	}
}

func (g *Gateway) warnings(call *models.ToolCall) []string {
	if call.Tool != models.ToolAddToCart && call.Tool != models.ToolGoToCheckout {
		return nil
	}
	quantity, ok := call.Quantity()
	if !ok || quantity <= g.config.BulkWarnThreshold {
		return nil
	}
	return []string{fmt.Sprintf("quantity %d is a large order; bulk-purchase pricing may be available through support", quantity)}
}

// sanitize keeps only declared payload fields, trims strings and normalizes
// integers. The timestamp is always the gateway's own; a supplied one is
// discarded.
func (g *Gateway) sanitize(call *models.ToolCall) *models.ToolCall {
	schema, _ := g.registry.PayloadSchema(call.Tool)
	payload := make(map[string]interface{}, len(schema.Properties))
	for name, prop := range schema.Properties {
		value, ok := call.Payload[name]
		if !ok || value == nil {
			continue
		}
		payload[name] = cleanValue(value, prop)
	}

	out := &models.ToolCall{
		Tool:         call.Tool,
		Payload:      payload,
		ActorRole:    call.ActorRole,
		Timestamp:    g.now().UTC().Format(time.RFC3339),
		RequestID:    strings.TrimSpace(call.RequestID),
		HumanSummary: strings.TrimSpace(call.HumanSummary),
	}
	return out
}

func cleanValue(value interface{}, prop validation.Property) interface{} {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if prop.Type == "integer" {
			return int(v)
		}
		return v
	case []interface{}:
		items := make([]interface{}, len(v))
		for i, item := range v {
			if prop.Items != nil {
				items[i] = cleanValue(item, *prop.Items)
			} else {
				items[i] = item
			}
		}
		return items
	case map[string]interface{}:
		copied := make(map[string]interface{}, len(v))
		for k, item := range v {
			copied[k] = cleanValue(item, validation.Property{})
		}
		return copied
	}
	return value
}

func toDocument(call models.ToolCall) (map[string]interface{}, error) {
	raw, err := json.Marshal(call)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// metricTool keeps label cardinality bounded to the allow-list.
func metricTool(tool models.ToolName) string {
	for _, name := range models.ToolNames {
		if name == tool {
			return string(tool)
		}
	}
	return "unsupported"
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
