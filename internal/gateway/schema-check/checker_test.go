package schemacheck

import (
	"errors"
	"strings"
	"testing"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	intentrouter "shopping-agent-gateway/internal/gateway/intent-router"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(t *testing.T, spec *registry.AgentSpec) *Checker {
	t.Helper()
	router := intentrouter.NewRouter(nil, intentrouter.NewConsumerClassifier(), intentrouter.NewSellerClassifier(), nil)
	return New(spec, typeregistry.New(), router, logger.NewTestLogger(t))
}

func property(t *testing.T, schema map[string]interface{}, path ...string) map[string]interface{} {
	t.Helper()
	v, ok := registry.Lookup(schema, path...)
	require.True(t, ok, strings.Join(path, "."))
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	return m
}

func hasCheck(report *Report, prefix string) bool {
	for _, m := range report.Mismatches {
		if strings.HasPrefix(m.Check, prefix) {
			return true
		}
	}
	return false
}

func TestCheck_EmbeddedSpecIsConsistent(t *testing.T) {
	report := newChecker(t, registry.Default()).Check()

	assert.True(t, report.OK(), report.Messages())
	assert.Greater(t, report.Probes, 10)
}

func TestVerify_QuantityDrift(t *testing.T) {
	spec := registry.Default()
	property(t, spec.Tools.Payloads["addToCart"], "properties", "quantity")["maximum"] = float64(20)

	err := newChecker(t, spec).Verify()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSchemaDrift, apperrors.CodeOf(err))

	var std *apperrors.StandardError
	require.True(t, errors.As(err, &std))
	assert.Contains(t, std.Details, "tools.payloads.addToCart.quantity.maximum: declared 20, executable 100")
	assert.Contains(t, std.Details, "probe.addToCart.quantity=21: declared valid=false, executable valid=true")
}

func TestCheck_ReportsEachDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, spec *registry.AgentSpec)
		check  string
	}{
		{
			name: "tool enum gains a member",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				spec.Tools.Enum = append(spec.Tools.Enum, "deleteAccount")
			},
			check: "tools.enum",
		},
		{
			name: "envelope enum loses a member",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				property(t, spec.Tools.Envelope, "properties", "tool")["enum"] = []interface{}{"addToCart"}
			},
			check: "tools.envelope.tool.enum",
		},
		{
			name: "response required list",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				spec.Responses["ANSWER"]["required"] = []interface{}{"type", "answer"}
			},
			check: "responses.ANSWER.required",
		},
		{
			name: "payload required list",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				spec.Tools.Payloads["requestRefund"]["required"] = []interface{}{"orderId"}
			},
			check: "tools.payloads.requestRefund.required",
		},
		{
			name: "query limit",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				property(t, spec.Responses["MONGO_QUERY"], "properties", "options", "properties", "limit")["maximum"] = float64(500)
			},
			check: "responses.MONGO_QUERY.options.limit.maximum",
		},
		{
			name: "humanSummary optional",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				spec.Responses["TOOL_CALL"]["required"] = []interface{}{"type", "requestId", "tool", "payload"}
			},
			check: "responses.TOOL_CALL.humanSummary",
		},
		{
			name: "questions max items",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				property(t, spec.Responses["NEED_MORE_INFO"], "properties", "questions")["maxItems"] = float64(5)
			},
			check: "responses.NEED_MORE_INFO.questions.maxItems",
		},
		{
			name: "seller intents",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				spec.Intents.Seller = append(spec.Intents.Seller, "inventory_forecast")
			},
			check: "intents.seller",
		},
		{
			name: "missing response variant",
			mutate: func(t *testing.T, spec *registry.AgentSpec) {
				delete(spec.Responses, "BRIEFING_WITH_PRODUCTS")
			},
			check: "responses",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := registry.Default()
			tt.mutate(t, spec)

			report := newChecker(t, spec).Check()
			require.False(t, report.OK())
			assert.True(t, hasCheck(report, tt.check), report.Messages())
		})
	}
}

func TestCheck_ProbesCatchLooserDeclaredBounds(t *testing.T) {
	spec := registry.Default()
	property(t, spec.Tools.Payloads["addToCart"], "properties", "quantity")["maximum"] = float64(150)

	report := newChecker(t, spec).Check()
	assert.True(t, hasCheck(report, "probe.addToCart.quantity=101"), report.Messages())
	assert.True(t, hasCheck(report, "probe.addToCart.quantity=150"), report.Messages())
	assert.False(t, hasCheck(report, "probe.addToCart.quantity=100"), report.Messages())
}

func TestCheck_UncompilableSchemaIsReported(t *testing.T) {
	spec := registry.Default()
	spec.Responses["MONGO_QUERY"]["type"] = float64(7)

	report := newChecker(t, spec).Check()
	assert.True(t, hasCheck(report, "probe.MONGO_QUERY"), report.Messages())
}

func TestMismatchesAggregateInOneError(t *testing.T) {
	spec := registry.Default()
	spec.Intents.Consumer = spec.Intents.Consumer[1:]
	spec.Tools.Enum = spec.Tools.Enum[1:]

	err := newChecker(t, spec).Verify()
	require.Error(t, err)
	var std *apperrors.StandardError
	require.True(t, errors.As(err, &std))
	mismatches := std.Metadata["mismatches"].([]string)
	assert.GreaterOrEqual(t, len(mismatches), 2)
	assert.Contains(t, std.Details, "intents.consumer: only declared [none], only executable [search_product]")
}
