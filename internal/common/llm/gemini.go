// internal/common/llm/gemini.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopping-agent-gateway/internal/common/config"
	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"

	"google.golang.org/genai"
)

const Component = "response-generator"

// ContentGenerator is the slice of the genai Models service the gateway uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for agent responses and answer synthesis.
type Gemini struct {
	models      ContentGenerator
	model       string
	temperature float32
	logger      logger.Logger
}

// NewGemini builds a client against the Gemini API.
func NewGemini(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return NewGeminiFromModels(client.Models, cfg, log), nil
}

func NewGeminiFromModels(m ContentGenerator, cfg config.GenAIConfig, log logger.Logger) *Gemini {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		models:      m,
		model:       model,
		temperature: cfg.Temperature,
		logger:      logger.ForComponent(log, Component),
	}
}

// Generate returns the raw response document produced by the selected
// agent. The gateway classifies it before anything acts on it.
func (g *Gemini) Generate(ctx context.Context, req models.GenerationRequest) (map[string]interface{}, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == "assistant" || turn.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(generationPrompt(req), genai.RoleUser))

	text, err := g.call(ctx, contents, systemInstruction(req), true)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(text)
	if err != nil {
		g.logger.Warn("generated output is not a JSON object", map[string]interface{}{
			"requestId": req.RequestID,
			"agent":     req.Agent,
		})
		return nil, apperrors.NewGenerationFailedError(err)
	}
	return doc, nil
}

// Synthesize writes a short answer grounded only on the supplied documents.
func (g *Gemini) Synthesize(ctx context.Context, req models.SynthesisRequest) (string, error) {
	data, err := json.Marshal(req.Documents)
	if err != nil {
		return "", apperrors.NewGenerationFailedError(err)
	}

	var parts []string
	parts = append(parts, "Answer the shopper's message using ONLY the records below.")
	parts = append(parts, fmt.Sprintf("\nShopper message: %s", req.Message))
	parts = append(parts, fmt.Sprintf("Query purpose: %s", req.Purpose))
	parts = append(parts, fmt.Sprintf("\nRecords from %s (%d):", req.Collection, len(req.Documents)))
	parts = append(parts, string(data))
	if req.Total != nil {
		parts = append(parts, fmt.Sprintf("Total matching records: %d", *req.Total))
	}
	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- If there are no records, say nothing matched and suggest how to broaden the search")
	parts = append(parts, "- Never invent products, prices or order details")
	if req.UIMode == models.UIModeBriefing {
		parts = append(parts, "- Reply with at most three sentences")
	}

	text, err := g.call(ctx, []*genai.Content{genai.NewContentFromText(strings.Join(parts, "\n"), genai.RoleUser)}, nil, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *Gemini) call(ctx context.Context, contents []*genai.Content, system *genai.Content, jsonOut bool) (string, error) {
	temperature := g.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       &temperature,
	}
	if jsonOut {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		g.logger.WithError(err).Error("generation call failed", map[string]interface{}{"model": g.model})
		return "", apperrors.NewGenerationFailedError(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", apperrors.NewGenerationFailedError(fmt.Errorf("model returned no text"))
	}
	return text, nil
}

// ParseDocument decodes a single JSON object, tolerating a surrounding
// markdown code fence.
func ParseDocument(text string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("decode generated document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("generated document is null")
	}
	return doc, nil
}

func systemInstruction(req models.GenerationRequest) *genai.Content {
	types := make([]string, len(models.ResponseTypes))
	for i, t := range models.ResponseTypes {
		types[i] = string(t)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("You are the %s of an online store. %s", req.Agent, req.AgentDescription))
	parts = append(parts, "Reply with exactly one JSON object and nothing else.")
	parts = append(parts, fmt.Sprintf("Its \"type\" is one of: %s.", strings.Join(types, ", ")))
	parts = append(parts, fmt.Sprintf("Always copy \"requestId\": %q.", req.RequestID))
	parts = append(parts, "ANSWER: {answer, products?, suggestions?}. BRIEFING_WITH_PRODUCTS: {briefing, products[1+]}.")
	parts = append(parts, fmt.Sprintf("MONGO_QUERY: {collection, query, projection?, options?{limit<=100, sort, skip}, purpose}; collections: %s.",
		strings.Join(models.Collections, ", ")))
	parts = append(parts, fmt.Sprintf("TOOL_CALL: {tool, payload, humanSummary}; tools: %s. Tools are proposals the shopper must confirm.",
		strings.Join(models.ToolNameStrings(), ", ")))
	parts = append(parts, "NEED_MORE_INFO: {questions[1..3], reason?}.")
	parts = append(parts, "Never query other users' data or fields such as password, token, secret or apiKey.")

	return genai.NewContentFromText(strings.Join(parts, "\n"), genai.RoleUser)
}

func generationPrompt(req models.GenerationRequest) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Shopper message: %s", req.Message))
	parts = append(parts, fmt.Sprintf("Detected intent: %s (confidence %.2f)", req.Intent.PrimaryIntent, req.Intent.Confidence))
	if len(req.Intent.ExtractedSlots) > 0 {
		slots, _ := json.Marshal(req.Intent.ExtractedSlots)
		parts = append(parts, fmt.Sprintf("Extracted slots: %s", slots))
	}
	parts = append(parts, fmt.Sprintf("Caller: %s, logged in: %t", req.User.Role(), req.User.IsLoggedIn))
	if req.UIMode != "" {
		parts = append(parts, fmt.Sprintf("UI mode: %s", req.UIMode))
	}
	return strings.Join(parts, "\n")
}
