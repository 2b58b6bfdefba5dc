// Package policygate is the safety firewall evaluated before any agent or
// tool output is trusted.
package policygate

import (
	"fmt"

	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	"shopping-agent-gateway/internal/models"
)

const Component = "policy-gate"

// Evaluator decides a SafetyVerdict for a message and its proposed tools.
type Evaluator interface {
	Evaluate(message string, tools []models.ToolCall, user models.UserContext) *models.SafetyVerdict
}

type Gate struct {
	config *Config
	logger logger.Logger
}

func NewGate(config *Config, log logger.Logger) *Gate {
	if config == nil {
		config = LoadConfig()
	}
	return &Gate{
		config: config,
		logger: logger.ForComponent(log, Component),
	}
}

type rule func(g *Gate, message string, tools []models.ToolCall, user models.UserContext) *models.SafetyVerdict

// Blocking rules run before advisory ones so a WARN never masks a BLOCK.
// Within each list the first non-nil verdict wins.
var (
	blockRules = []rule{
		(*Gate).checkPII,
		(*Gate).checkAgeRestricted,
	}
	warnRules = []rule{
		(*Gate).checkUrgency,
		(*Gate).checkBulkQuantity,
	}
)

func (g *Gate) Evaluate(message string, tools []models.ToolCall, user models.UserContext) *models.SafetyVerdict {
	for _, rules := range [][]rule{blockRules, warnRules} {
		for _, r := range rules {
			verdict := r(g, message, tools, user)
			if verdict == nil {
				continue
			}
			g.record(verdict, len(tools))
			return verdict
		}
	}
	return &models.SafetyVerdict{Verdict: models.VerdictAllow}
}

func (g *Gate) checkPII(message string, _ []models.ToolCall, _ models.UserContext) *models.SafetyVerdict {
	if !matchAny(piiPatterns, message) {
		return nil
	}
	return &models.SafetyVerdict{
		Verdict:             models.VerdictBlock,
		Reason:              "The message contains personal identifiers or payment credentials.",
		ViolatedPolicies:    []string{PolicyPII},
		AlternativeGuidance: "Please do not share ID numbers, card details or passwords in chat. Manage payment methods in your account settings.",
	}
}

func (g *Gate) checkUrgency(message string, _ []models.ToolCall, _ models.UserContext) *models.SafetyVerdict {
	if !matchAny(urgencyPatterns, message) {
		return nil
	}
	return &models.SafetyVerdict{
		Verdict:          models.VerdictWarn,
		Reason:           "Urgency language detected; the reply must not pressure the user.",
		ViolatedPolicies: []string{PolicyDarkPatterns},
	}
}

func (g *Gate) checkBulkQuantity(_ string, tools []models.ToolCall, _ models.UserContext) *models.SafetyVerdict {
	for i := range tools {
		call := &tools[i]
		if call.Tool != models.ToolAddToCart && call.Tool != models.ToolGoToCheckout {
			continue
		}
		quantity, ok := call.Quantity()
		if !ok || quantity <= g.config.BulkQuantityLimit {
			continue
		}
		return &models.SafetyVerdict{
			Verdict:             models.VerdictWarn,
			Reason:              fmt.Sprintf("%s requests %d units, above the limit of %d.", call.Tool, quantity, g.config.BulkQuantityLimit),
			ViolatedPolicies:    []string{PolicyBulkOrder},
			AlternativeGuidance: "For bulk orders please contact support.",
		}
	}
	return nil
}

func (g *Gate) checkAgeRestricted(message string, _ []models.ToolCall, user models.UserContext) *models.SafetyVerdict {
	if user.AgeVerified || !matchAny(ageRestrictedPatterns, message) {
		return nil
	}
	return &models.SafetyVerdict{
		Verdict:             models.VerdictBlock,
		Reason:              "This request involves age-restricted products.",
		ViolatedPolicies:    []string{PolicyAgeRestricted},
		AlternativeGuidance: "Complete age verification in your account settings to browse age-restricted products.",
	}
}

func (g *Gate) record(verdict *models.SafetyVerdict, toolCount int) {
	for _, policy := range verdict.ViolatedPolicies {
		metrics.PolicyVerdicts.WithLabelValues(string(verdict.Verdict), policy).Inc()
	}
	fields := map[string]interface{}{
		"verdict":   string(verdict.Verdict),
		"policies":  verdict.ViolatedPolicies,
		"toolCount": toolCount,
	}
	if verdict.Verdict == models.VerdictBlock {
		g.logger.Warn("request blocked by policy", fields)
		return
	}
	g.logger.Info("policy warning", fields)
}
