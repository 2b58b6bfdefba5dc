// Package schemacheck compares the declarative agent spec with the executable
// validators at startup. Any disagreement aborts the process.
package schemacheck

import (
	"fmt"
	"sort"
	"strings"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/pkg/registry"
)

const Component = "schema-check"

// Executable is the runtime side of the contract.
type Executable interface {
	Contract() typeregistry.Contract
	Classify(doc map[string]interface{}) *typeregistry.Result
	ClassifyTool(doc map[string]interface{}) *typeregistry.ToolResult
}

// Taxonomy exposes the intents the router can produce.
type Taxonomy interface {
	Taxonomy() (consumer, seller []string)
}

type Checker struct {
	spec       *registry.AgentSpec
	executable Executable
	taxonomy   Taxonomy
	logger     logger.Logger
}

func New(spec *registry.AgentSpec, executable Executable, taxonomy Taxonomy, log logger.Logger) *Checker {
	if spec == nil {
		spec = registry.Default()
	}
	return &Checker{
		spec:       spec,
		executable: executable,
		taxonomy:   taxonomy,
		logger:     logger.ForComponent(log, Component),
	}
}

// Check runs every comparison and probe and returns all mismatches found.
func (c *Checker) Check() *Report {
	report := &Report{}
	contract := c.executable.Contract()

	c.compareTools(report, contract)
	c.compareRequired(report, contract)
	c.compareBounds(report, contract)
	c.compareIntents(report)
	c.probe(report, contract)

	return report
}

// Verify returns a SchemaDrift error carrying every mismatch, or nil.
func (c *Checker) Verify() error {
	report := c.Check()
	fields := map[string]interface{}{
		"specVersion": c.spec.Version,
		"specSource":  c.spec.Source,
		"probes":      report.Probes,
		"mismatches":  len(report.Mismatches),
	}
	if report.OK() {
		c.logger.Info("agent spec matches executable schemas", fields)
		return nil
	}

	messages := report.Messages()
	fields["details"] = messages
	c.logger.Error("agent spec drifted from executable schemas", fields)
	return apperrors.NewSchemaDriftError(messages)
}

func (c *Checker) compareTools(report *Report, contract typeregistry.Contract) {
	report.compareSets("tools.enum", c.spec.Tools.Enum, contract.Tools)

	envelopeEnum, _ := registry.Lookup(c.spec.Tools.Envelope, "properties", "tool", "enum")
	report.compareSets("tools.envelope.tool.enum", registry.Strings(envelopeEnum), contract.Tools)

	declared := make([]string, 0, len(c.spec.Tools.Payloads))
	for name := range c.spec.Tools.Payloads {
		declared = append(declared, name)
	}
	report.compareSets("tools.payloads", declared, contract.Tools)
}

func (c *Checker) compareRequired(report *Report, contract typeregistry.Contract) {
	report.compareSets("tools.envelope.required", registry.Required(c.spec.Tools.Envelope), contract.ToolEnvelopeRequired)

	for _, name := range union(keys(c.spec.Tools.Payloads), keys(contract.ToolPayloadRequired)) {
		schema, declared := c.spec.Tools.Payloads[name]
		required, executable := contract.ToolPayloadRequired[name]
		if !declared || !executable {
			continue // reported by compareTools
		}
		report.compareSets("tools.payloads."+name+".required", registry.Required(schema), required)
	}

	declaredTypes := c.spec.ResponseTypes()
	report.compareSets("responses", declaredTypes, keys(contract.ResponseRequired))
	for _, kind := range declaredTypes {
		required, ok := contract.ResponseRequired[kind]
		if !ok {
			continue
		}
		report.compareSets("responses."+kind+".required", registry.Required(c.spec.Responses[kind]), required)
	}
}

func (c *Checker) compareBounds(report *Report, contract typeregistry.Contract) {
	quantity, ok := registry.Number(c.spec.Tools.Payloads["addToCart"], "properties", "quantity", "maximum")
	report.compareNumber("tools.payloads.addToCart.quantity.maximum", quantity, ok, contract.AddToCartQuantityMax)

	limit, ok := registry.Number(c.spec.Responses["MONGO_QUERY"], "properties", "options", "properties", "limit", "maximum")
	report.compareNumber("responses.MONGO_QUERY.options.limit.maximum", limit, ok, contract.QueryLimitMax)

	summary := contains(registry.Required(c.spec.Responses["TOOL_CALL"]), "humanSummary")
	if summary != contract.ToolCallRequiresSummary {
		report.add("responses.TOOL_CALL.humanSummary", fmt.Sprintf("declared required=%t, executable required=%t", summary, contract.ToolCallRequiresSummary))
	}

	var executableMax *float64
	if contract.QuestionsMaxItems != nil {
		v := float64(*contract.QuestionsMaxItems)
		executableMax = &v
	}
	questions, ok := registry.Number(c.spec.Responses["NEED_MORE_INFO"], "properties", "questions", "maxItems")
	report.compareNumber("responses.NEED_MORE_INFO.questions.maxItems", questions, ok, executableMax)
}

func (c *Checker) compareIntents(report *Report) {
	if c.taxonomy == nil {
		return
	}
	consumer, seller := c.taxonomy.Taxonomy()
	report.compareSets("intents.consumer", c.spec.Intents.Consumer, consumer)
	report.compareSets("intents.seller", c.spec.Intents.Seller, seller)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func union(a, b []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, v := range append(append([]string{}, a...), b...) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func describe(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ",")
}
