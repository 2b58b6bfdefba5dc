package schemacheck

import (
	"fmt"
	"sort"
	"strings"

	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

// probe is one boundary document validated by both sides.
type probe struct {
	name       string
	schemaName string
	schema     map[string]interface{}
	declared   map[string]interface{}
	executable func() bool
}

// probe runs boundary documents through gojsonschema on the declared side and
// through the type registry on the executable side.
func (c *Checker) probe(report *Report, contract typeregistry.Contract) {
	probes := c.quantityProbes(contract)
	probes = append(probes, c.limitProbes(contract)...)
	probes = append(probes, c.questionProbes(contract)...)
	probes = append(probes, c.toolProbes()...)

	compiled := map[string]*gojsonschema.Schema{}
	for _, p := range probes {
		if p.schema == nil {
			continue
		}
		report.Probes++

		schema, ok := compiled[p.schemaName]
		if !ok {
			var err error
			schema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(p.schema))
			if err != nil {
				report.add("probe."+p.name, fmt.Sprintf("declared schema does not compile: %v", err))
				continue
			}
			compiled[p.schemaName] = schema
		}

		result, err := schema.Validate(gojsonschema.NewGoLoader(p.declared))
		if err != nil {
			report.add("probe."+p.name, fmt.Sprintf("declared validation error: %v", err))
			continue
		}
		declaredValid := result.Valid()
		executableValid := p.executable()
		if declaredValid != executableValid {
			report.add("probe."+p.name, fmt.Sprintf("declared valid=%t, executable valid=%t", declaredValid, executableValid))
			c.logger.Debug("probe disagreement", map[string]interface{}{
				"probe":  p.name,
				"errors": len(result.Errors()),
			})
		}
	}
}

func (c *Checker) quantityProbes(contract typeregistry.Contract) []probe {
	schema := c.spec.Tools.Payloads["addToCart"]
	values := []float64{0, 1}
	values = append(values, edges(schema, contract.AddToCartQuantityMax, "properties", "quantity", "maximum")...)

	probes := make([]probe, 0, len(values))
	for _, q := range dedupe(values) {
		payload := func() map[string]interface{} {
			return map[string]interface{}{"productId": "probe-product", "quantity": q}
		}
		probes = append(probes, probe{
			name:       fmt.Sprintf("addToCart.quantity=%g", q),
			schemaName: "tools.payloads.addToCart",
			schema:     schema,
			declared:   payload(),
			executable: func() bool {
				return c.executable.ClassifyTool(toolDoc("addToCart", payload())).Valid
			},
		})
	}
	return probes
}

func (c *Checker) limitProbes(contract typeregistry.Contract) []probe {
	schema := c.spec.Responses["MONGO_QUERY"]
	values := []float64{0, 1}
	values = append(values, edges(schema, contract.QueryLimitMax, "properties", "options", "properties", "limit", "maximum")...)

	probes := make([]probe, 0, len(values))
	for _, limit := range dedupe(values) {
		doc := func() map[string]interface{} {
			return map[string]interface{}{
				"type":       "MONGO_QUERY",
				"requestId":  "probe",
				"collection": "products",
				"query":      map[string]interface{}{},
				"options":    map[string]interface{}{"limit": limit},
				"purpose":    "probe",
			}
		}
		probes = append(probes, probe{
			name:       fmt.Sprintf("MONGO_QUERY.options.limit=%g", limit),
			schemaName: "responses.MONGO_QUERY",
			schema:     schema,
			declared:   doc(),
			executable: func() bool { return c.executable.Classify(doc()).Valid },
		})
	}
	return probes
}

func (c *Checker) questionProbes(contract typeregistry.Contract) []probe {
	schema := c.spec.Responses["NEED_MORE_INFO"]
	var executableMax *float64
	if contract.QuestionsMaxItems != nil {
		v := float64(*contract.QuestionsMaxItems)
		executableMax = &v
	}
	values := []float64{1}
	values = append(values, edges(schema, executableMax, "properties", "questions", "maxItems")...)

	probes := make([]probe, 0, len(values))
	for _, n := range dedupe(values) {
		count := int(n)
		doc := func() map[string]interface{} {
			questions := make([]interface{}, count)
			for i := range questions {
				questions[i] = fmt.Sprintf("question %d?", i+1)
			}
			return map[string]interface{}{"type": "NEED_MORE_INFO", "requestId": "probe", "questions": questions}
		}
		probes = append(probes, probe{
			name:       fmt.Sprintf("NEED_MORE_INFO.questions=%d", count),
			schemaName: "responses.NEED_MORE_INFO",
			schema:     schema,
			declared:   doc(),
			executable: func() bool { return c.executable.Classify(doc()).Valid },
		})
	}
	return probes
}

// toolProbes check envelope membership and the humanSummary requirement.
func (c *Checker) toolProbes() []probe {
	envelope := c.spec.Tools.Envelope
	probes := []probe{}

	for _, name := range append(append([]string{}, c.spec.Tools.Enum...), "deleteAccount") {
		probes = append(probes, probe{
			name:       "envelope.tool=" + name,
			schemaName: "tools.envelope",
			schema:     envelope,
			declared:   toolDoc(name, map[string]interface{}{}),
			executable: func() bool {
				// envelope only: a payload rejection means the envelope passed
				res := c.executable.ClassifyTool(toolDoc(name, map[string]interface{}{}))
				return res.Valid || strings.HasPrefix(res.Field, "payload")
			},
		})
	}

	noSummary := func() map[string]interface{} {
		return map[string]interface{}{
			"type":      "TOOL_CALL",
			"requestId": "probe",
			"tool":      "addToCart",
			"payload":   map[string]interface{}{"productId": "probe-product", "quantity": float64(1)},
		}
	}
	probes = append(probes, probe{
		name:       "TOOL_CALL.humanSummary=absent",
		schemaName: "responses.TOOL_CALL",
		schema:     c.spec.Responses["TOOL_CALL"],
		declared:   noSummary(),
		executable: func() bool { return c.executable.Classify(noSummary()).Valid },
	})
	return probes
}

func toolDoc(name string, payload map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"tool":         name,
		"payload":      payload,
		"actorRole":    "consumer",
		"requestId":    "probe",
		"humanSummary": "probe",
	}
}

// edges returns each known bound and the value just past it.
func edges(schema map[string]interface{}, executable *float64, path ...string) []float64 {
	out := []float64{}
	if declared, ok := registry.Number(schema, path...); ok {
		out = append(out, declared, declared+1)
	}
	if executable != nil {
		out = append(out, *executable, *executable+1)
	}
	return out
}

func dedupe(values []float64) []float64 {
	seen := map[float64]bool{}
	out := []float64{}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
