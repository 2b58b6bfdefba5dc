// pkg/registry/registry.go
package registry

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed agent-spec.json
var embeddedSpec []byte

// EmbeddedSource marks a spec that was not read from disk.
const EmbeddedSource = "embedded"

var ErrSpecNotFound = errors.New("agent spec not found in any candidate path")

// Load reads and validates a spec file.
func Load(path string) (*AgentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	spec.Source = path
	return spec, nil
}

// Parse decodes and validates a spec document.
func Parse(data []byte) (*AgentSpec, error) {
	var spec AgentSpec
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode agent spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Default returns a fresh copy of the spec compiled into the binary.
func Default() *AgentSpec {
	spec, err := Parse(embeddedSpec)
	if err != nil {
		panic(fmt.Sprintf("embedded agent spec is invalid: %v", err))
	}
	spec.Source = EmbeddedSource
	return spec
}

// Resolve returns the first candidate path that exists as a regular file.
func Resolve(candidates ...string) (string, error) {
	for _, path := range candidates {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrSpecNotFound
}

// Open resolves the spec once at startup. With no candidate on disk it falls
// back to the embedded spec.
func Open(candidates ...string) (*AgentSpec, error) {
	path, err := Resolve(candidates...)
	if errors.Is(err, ErrSpecNotFound) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks internal references of the spec.
func (s *AgentSpec) Validate() error {
	if len(s.Tools.Enum) == 0 {
		return errors.New("agent spec declares no tools")
	}
	for _, tool := range s.Tools.Enum {
		if _, ok := s.Tools.Payloads[tool]; !ok {
			return fmt.Errorf("tool %q has no payload schema", tool)
		}
	}
	if len(s.Responses) == 0 {
		return errors.New("agent spec declares no responses")
	}

	known := make(map[string]string)
	for _, intent := range s.Intents.Consumer {
		known[intent] = "consumer"
	}
	for _, intent := range s.Intents.Seller {
		known[intent] = "seller"
	}
	for _, agent := range s.Agents {
		for _, intent := range agent.Intents {
			audience, ok := known[intent]
			if !ok {
				return fmt.Errorf("agent %q references unknown intent %q", agent.ID, intent)
			}
			if audience != agent.Audience {
				return fmt.Errorf("agent %q (%s) cannot serve %s intent %q", agent.ID, agent.Audience, audience, intent)
			}
		}
	}
	if s.DefaultAgent != "" {
		found := false
		for _, agent := range s.Agents {
			if agent.ID == s.DefaultAgent {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("default agent %q is not declared", s.DefaultAgent)
		}
	}
	return nil
}

type contextKey struct{}

// WithSpec attaches the resolved spec to ctx.
func WithSpec(ctx context.Context, spec *AgentSpec) context.Context {
	return context.WithValue(ctx, contextKey{}, spec)
}

// FromContext returns the spec attached by WithSpec.
func FromContext(ctx context.Context) (*AgentSpec, bool) {
	spec, ok := ctx.Value(contextKey{}).(*AgentSpec)
	return spec, ok && spec != nil
}
