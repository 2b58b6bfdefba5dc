// internal/models/generation.go
package models

// GenerationRequest is what the selected agent sees when asked to respond.
type GenerationRequest struct {
	RequestID        string                `json:"requestId"`
	Message          string                `json:"message"`
	User             UserContext           `json:"userContext"`
	UIMode           UIMode                `json:"uiMode,omitempty"`
	Agent            string                `json:"agent"`
	AgentDescription string                `json:"agentDescription,omitempty"`
	Intent           IntentResult          `json:"intent"`
	History          []ConversationMessage `json:"history,omitempty"`
}

// SynthesisRequest carries executed query results back for a final answer.
type SynthesisRequest struct {
	RequestID  string                   `json:"requestId"`
	Message    string                   `json:"message"`
	UIMode     UIMode                   `json:"uiMode,omitempty"`
	Agent      string                   `json:"agent"`
	Collection string                   `json:"collection"`
	Purpose    string                   `json:"purpose"`
	Documents  []map[string]interface{} `json:"documents"`
	Total      *int64                   `json:"total,omitempty"`
}
