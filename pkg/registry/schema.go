// pkg/registry/schema.go
package registry

import "sort"

// AgentSpec is the declarative description of agents, intents, tools and
// response documents. Schemas are plain JSON Schema documents.
type AgentSpec struct {
	Version      string                            `json:"version"`
	LastUpdated  string                            `json:"lastUpdated"`
	DefaultAgent string                            `json:"defaultAgent"`
	Agents       []Agent                           `json:"agents"`
	Intents      IntentTaxonomy                    `json:"intents"`
	Tools        ToolSpec                          `json:"tools"`
	Responses    map[string]map[string]interface{} `json:"responses"`

	// Source is the file the spec was loaded from, or "embedded".
	Source string `json:"-"`
}

type Agent struct {
	ID          string   `json:"id"`
	Audience    string   `json:"audience"`
	Description string   `json:"description"`
	Intents     []string `json:"intents"`
}

type IntentTaxonomy struct {
	Consumer []string `json:"consumer"`
	Seller   []string `json:"seller"`
}

type ToolSpec struct {
	Enum     []string                          `json:"enum"`
	Envelope map[string]interface{}            `json:"envelope"`
	Payloads map[string]map[string]interface{} `json:"payloads"`
}

// AgentForIntent returns the agent owning intent.
func (s *AgentSpec) AgentForIntent(intent string) (Agent, bool) {
	for _, agent := range s.Agents {
		for _, candidate := range agent.Intents {
			if candidate == intent {
				return agent, true
			}
		}
	}
	return Agent{}, false
}

// ResponseTypes returns the declared response variants sorted by name.
func (s *AgentSpec) ResponseTypes() []string {
	out := make([]string, 0, len(s.Responses))
	for name := range s.Responses {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup walks nested schema objects by key.
func Lookup(schema map[string]interface{}, path ...string) (interface{}, bool) {
	var current interface{} = schema
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Number reads a numeric keyword at path.
func Number(schema map[string]interface{}, path ...string) (float64, bool) {
	v, ok := Lookup(schema, path...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Required returns the "required" list of schema, empty when absent.
func Required(schema map[string]interface{}) []string {
	v, ok := schema["required"]
	if !ok {
		return []string{}
	}
	return Strings(v)
}

// Strings converts a decoded JSON string array.
func Strings(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
