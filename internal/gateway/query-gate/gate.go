// Package querygate sandboxes agent-generated read queries: collection
// allow-list, operator blocklist, result-size ceiling, identity scoping and
// field redaction. The caller's query is never passed on as-is.
package querygate

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	"shopping-agent-gateway/internal/models"
)

const Component = "query-gate"

// blockedOperators execute code or unbounded computation inside the store.
var blockedOperators = []string{"$where", "$eval", "$function", "$mapReduce"}

type Gate struct {
	config      *Config
	collections map[string]bool
	logger      logger.Logger
}

func NewGate(config *Config, log logger.Logger) *Gate {
	if config == nil {
		config = LoadConfig()
	}
	collections := make(map[string]bool, len(models.Collections))
	for _, c := range models.Collections {
		collections[c] = true
	}
	return &Gate{
		config:      config,
		collections: collections,
		logger:      logger.ForComponent(log, Component),
	}
}

// Validate returns a sanitized copy of req scoped to user, or the single
// reason it was rejected.
func (g *Gate) Validate(req models.MongoQueryRequest, user models.UserContext) *Result {
	sanitized, code, reason := g.validate(req, user)
	if sanitized != nil {
		return &Result{IsValid: true, Sanitized: sanitized}
	}

	metrics.QueryGateRejections.WithLabelValues(g.metricCollection(req.Collection), string(code)).Inc()
	fields := map[string]interface{}{
		"collection": req.Collection,
		"purpose":    req.Purpose,
		"userType":   string(user.Role()),
		"errorCode":  string(code),
		"reason":     reason,
	}
	if apperrors.IsSecurityRelevant(code) {
		fields["security"] = true
		fields["userId"] = user.UserID
		fields["sellerId"] = user.SellerID
	}
	g.logger.Warn("query rejected", fields)
	return &Result{Error: reason, Code: code}
}

func (g *Gate) validate(req models.MongoQueryRequest, user models.UserContext) (*Sanitized, apperrors.ErrorCode, string) {
	if !g.collections[req.Collection] {
		return nil, apperrors.ErrCodeUnsupportedOperation,
			fmt.Sprintf("collection %q is not queryable; allowed: %s", req.Collection, strings.Join(models.Collections, ", "))
	}

	filter := map[string]interface{}{}
	if req.Query != nil {
		filter = deepCopy(req.Query).(map[string]interface{})
	}
	serialized, err := json.Marshal(filter)
	if err != nil {
		return nil, apperrors.ErrCodeValidation, "query is not a serializable document"
	}
	if op := blockedOperator(string(serialized)); op != "" {
		return nil, apperrors.ErrCodeValidation, fmt.Sprintf("query uses forbidden operator %s", op)
	}

	limit := g.config.DefaultLimit
	limitSupplied := false
	skip := 0
	var sortKeys map[string]int
	if opts := req.Options; opts != nil {
		if opts.Limit != nil {
			limitSupplied = true
			limit = *opts.Limit
			if limit > g.config.MaxLimit {
				return nil, apperrors.ErrCodeValidation,
					fmt.Sprintf("options.limit %d exceeds the maximum of %d; narrow the query instead", limit, g.config.MaxLimit)
			}
			if limit < 1 {
				return nil, apperrors.ErrCodeValidation, "options.limit must be at least 1"
			}
		}
		if opts.Skip != nil {
			if *opts.Skip < 0 {
				return nil, apperrors.ErrCodeValidation, "options.skip must not be negative"
			}
			skip = *opts.Skip
		}
		if len(opts.Sort) > 0 {
			sortKeys, err = normalizeSort(opts.Sort)
			if err != nil {
				return nil, apperrors.ErrCodeValidation, err.Error()
			}
		}
	}

	if user.Role() == models.UserTypeSeller && sellerForbidden[req.Collection] {
		return nil, apperrors.ErrCodeScopeViolation,
			fmt.Sprintf("seller identities cannot query %s", req.Collection)
	}
	if rule, scoped := scopeFor(req.Collection, user); scoped {
		owner := rule.owner(user)
		if owner == "" {
			return nil, apperrors.ErrCodeScopeViolation,
				fmt.Sprintf("queries on %s require a signed-in %s identity", req.Collection, user.Role())
		}
		if !applyScope(filter, rule, owner) {
			return nil, apperrors.ErrCodeScopeViolation,
				fmt.Sprintf("query on %s may only target the caller's own %s", req.Collection, rule.field)
		}
	}

	var projection map[string]interface{}
	if req.Projection != nil {
		projection, err = redactProjection(req.Projection)
		if err != nil {
			return nil, apperrors.ErrCodeValidation, err.Error()
		}
	}

	return &Sanitized{
		collection:    req.Collection,
		filter:        filter,
		projection:    projection,
		sort:          sortKeys,
		skip:          skip,
		limit:         limit,
		limitSupplied: limitSupplied,
		purpose:       req.Purpose,
	}, "", ""
}

func blockedOperator(serialized string) string {
	for _, op := range blockedOperators {
		if strings.Contains(serialized, op) {
			return op
		}
	}
	if strings.Contains(serialized, "$group") && strings.Contains(serialized, "$accumulator") {
		return "$group with $accumulator"
	}
	return ""
}

func normalizeSort(in map[string]interface{}) (map[string]int, error) {
	out := make(map[string]int, len(in))
	for field, raw := range in {
		var dir int
		switch v := raw.(type) {
		case float64:
			dir = int(v)
			if float64(dir) != v {
				dir = 0
			}
		case int:
			dir = v
		}
		if dir != 1 && dir != -1 {
			return nil, fmt.Errorf("options.sort.%s must be 1 or -1", field)
		}
		out[field] = dir
	}
	return out, nil
}

func (g *Gate) metricCollection(collection string) string {
	if g.collections[collection] {
		return collection
	}
	return "unsupported"
}
