package orchestrator

import (
	"context"

	intentrouter "shopping-agent-gateway/internal/gateway/intent-router"
	queryexecutor "shopping-agent-gateway/internal/gateway/query-executor"
	querygate "shopping-agent-gateway/internal/gateway/query-gate"
	toolgateway "shopping-agent-gateway/internal/gateway/tool-gateway"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/internal/models"
)

// Generator produces the raw response document of the selected agent.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (map[string]interface{}, error)
}

// Synthesizer turns executed query results into answer text.
type Synthesizer interface {
	Synthesize(ctx context.Context, req models.SynthesisRequest) (string, error)
}

// History loads and records conversation turns of signed-in users.
type History interface {
	Load(ctx context.Context, userID string) ([]models.ConversationMessage, error)
	Append(ctx context.Context, userID string, turns ...models.ConversationMessage) error
}

type IntentRouter interface {
	Route(text string, user models.UserContext) *intentrouter.Decision
}

type ResponseClassifier interface {
	Classify(doc map[string]interface{}) *typeregistry.Result
}

type ToolValidator interface {
	Validate(call models.ToolCall, user models.UserContext) *toolgateway.Result
}

type QueryValidator interface {
	Validate(req models.MongoQueryRequest, user models.UserContext) *querygate.Result
}

type QueryRunner interface {
	Execute(ctx context.Context, q *querygate.Sanitized) (*queryexecutor.Output, error)
}
