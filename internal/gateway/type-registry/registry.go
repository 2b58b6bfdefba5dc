// Package typeregistry classifies generated documents into the closed set of
// agent response and tool call variants.
package typeregistry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/validation"
	"shopping-agent-gateway/internal/models"
)

// Registry holds one validator per variant. It has no mutable state.
type Registry struct {
	responses map[models.ResponseType]validation.JSONSchema
	envelope  validation.JSONSchema
	tools     map[models.ToolName]toolVariant
}

func New() *Registry {
	return &Registry{
		responses: responseSchemas,
		envelope:  toolEnvelopeSchema,
		tools:     toolVariants,
	}
}

// Classify reads the "type" discriminant and validates doc against that
// variant. On failure Field names the first violated path.
func (r *Registry) Classify(doc map[string]interface{}) *Result {
	if doc == nil {
		return &Result{Code: apperrors.ErrCodeValidation, Field: "type", Error: "document is empty"}
	}
	rawType, ok := doc["type"].(string)
	if !ok || rawType == "" {
		return &Result{Code: apperrors.ErrCodeValidation, Field: "type", Error: "required field missing"}
	}
	kind := models.ResponseType(rawType)
	schema, ok := r.responses[kind]
	if !ok {
		return &Result{
			Kind:  kind,
			Code:  apperrors.ErrCodeUnsupportedOperation,
			Field: "type",
			Error: fmt.Sprintf("unsupported response type %q; allowed: %s", rawType, strings.Join(r.responseNames(), ", ")),
		}
	}

	vr := validation.ValidateInput(doc, schema)
	if !vr.Valid {
		first := vr.First()
		return &Result{
			Kind:   kind,
			Code:   apperrors.ErrCodeValidation,
			Field:  first.Field,
			Error:  first.Message,
			Errors: vr.Errors,
		}
	}

	resp, err := decodeResponse(kind, doc)
	if err != nil {
		return &Result{Kind: kind, Code: apperrors.ErrCodeValidation, Field: "type", Error: err.Error()}
	}
	return &Result{Valid: true, Kind: kind, Response: resp}
}

// ClassifyTool validates a tool call envelope, then its payload. Payload
// errors are reported under "payload.".
func (r *Registry) ClassifyTool(doc map[string]interface{}) *ToolResult {
	if doc == nil {
		return &ToolResult{Code: apperrors.ErrCodeValidation, Field: "tool", Error: "document is empty"}
	}
	if name, ok := doc["tool"].(string); ok {
		if _, known := r.tools[models.ToolName(name)]; !known {
			return &ToolResult{
				Code:  apperrors.ErrCodeUnsupportedOperation,
				Field: "tool",
				Error: fmt.Sprintf("unsupported tool %q; allowed: %s", name, strings.Join(r.ToolNames(), ", ")),
			}
		}
	}

	vr := validation.ValidateInput(doc, r.envelope)
	if !vr.Valid {
		first := vr.First()
		return &ToolResult{Code: apperrors.ErrCodeValidation, Field: first.Field, Error: first.Message, Errors: vr.Errors}
	}

	name := models.ToolName(doc["tool"].(string))
	variant := r.tools[name]
	payload := doc["payload"].(map[string]interface{})

	pr := validation.ValidateInput(payload, variant.schema)
	if !pr.Valid {
		errs := make([]validation.ValidationError, len(pr.Errors))
		for i, e := range pr.Errors {
			e.Field = "payload." + e.Field
			errs[i] = e
		}
		return &ToolResult{Code: apperrors.ErrCodeValidation, Field: errs[0].Field, Error: errs[0].Message, Errors: errs}
	}
	if variant.check != nil {
		if e := variant.check(payload); e != nil {
			return &ToolResult{Code: apperrors.ErrCodeValidation, Field: e.Field, Error: e.Message, Errors: []validation.ValidationError{*e}}
		}
	}

	var call models.ToolCall
	if err := remarshal(doc, &call); err != nil {
		return &ToolResult{Code: apperrors.ErrCodeValidation, Field: "payload", Error: err.Error()}
	}
	return &ToolResult{Valid: true, Tool: &call}
}

// PayloadSchema returns the payload contract of tool.
func (r *Registry) PayloadSchema(tool models.ToolName) (validation.JSONSchema, bool) {
	v, ok := r.tools[tool]
	return v.schema, ok
}

// SellerOnly reports whether tool requires a seller identity.
func (r *Registry) SellerOnly(tool models.ToolName) bool {
	return r.tools[tool].sellerOnly
}

// ToolNames returns the allow-list in declaration order.
func (r *Registry) ToolNames() []string {
	out := []string{}
	for _, name := range models.ToolNames {
		if _, ok := r.tools[name]; ok {
			out = append(out, string(name))
		}
	}
	return out
}

func (r *Registry) responseNames() []string {
	out := make([]string, 0, len(r.responses))
	for kind := range r.responses {
		out = append(out, string(kind))
	}
	sort.Strings(out)
	return out
}

// Contract derives tool names, required lists and bounds from the tables.
func (r *Registry) Contract() Contract {
	c := Contract{
		Tools:                r.ToolNames(),
		ToolEnvelopeRequired: append([]string{}, r.envelope.Required...),
		ToolPayloadRequired:  make(map[string][]string, len(r.tools)),
		ResponseRequired:     make(map[string][]string, len(r.responses)),
	}
	for name, v := range r.tools {
		c.ToolPayloadRequired[string(name)] = append([]string{}, v.schema.Required...)
	}
	for kind, schema := range r.responses {
		c.ResponseRequired[string(kind)] = append([]string{}, schema.Required...)
	}

	if cart, ok := r.tools[models.ToolAddToCart]; ok {
		c.AddToCartQuantityMax = cart.schema.Properties["quantity"].Maximum
	}
	if q, ok := r.responses[models.ResponseTypeMongoQuery]; ok {
		if limit, ok := q.Properties["options"].Properties["limit"]; ok {
			c.QueryLimitMax = limit.Maximum
		}
	}
	if tc, ok := r.responses[models.ResponseTypeToolCall]; ok {
		for _, field := range tc.Required {
			if field == "humanSummary" {
				c.ToolCallRequiresSummary = true
			}
		}
	}
	if nmi, ok := r.responses[models.ResponseTypeNeedMoreInfo]; ok {
		c.QuestionsMaxItems = nmi.Properties["questions"].MaxItems
	}
	return c
}

func decodeResponse(kind models.ResponseType, doc map[string]interface{}) (models.AgentResponse, error) {
	var resp models.AgentResponse
	switch kind {
	case models.ResponseTypeAnswer:
		resp = &models.Answer{}
	case models.ResponseTypeBriefing:
		resp = &models.BriefingWithProducts{}
	case models.ResponseTypeMongoQuery:
		resp = &models.MongoQuery{}
	case models.ResponseTypeToolCall:
		resp = &models.ToolCallResponse{}
	case models.ResponseTypeNeedMoreInfo:
		resp = &models.NeedMoreInfo{}
	default:
		return nil, fmt.Errorf("no decoder for %s", kind)
	}
	if err := remarshal(doc, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// remarshal copies a decoded document into a typed value. The result never
// aliases doc.
func remarshal(doc map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
