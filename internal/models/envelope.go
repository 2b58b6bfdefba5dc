// internal/models/envelope.go
package models

// State is a step of the request state machine.
type State string

const (
	StateStart                 State = "START"
	StateSafetyCheck           State = "SAFETY_CHECK"
	StateBlocked               State = "BLOCKED"
	StateIntentRoute           State = "INTENT_ROUTE"
	StateClarify               State = "CLARIFY"
	StateAgentDispatch         State = "AGENT_DISPATCH"
	StateResponseGenerated     State = "RESPONSE_GENERATED"
	StateQueryExecute          State = "QUERY_EXECUTE"
	StateAnswerSynthesis       State = "ANSWER_SYNTHESIS"
	StateToolValidate          State = "TOOL_VALIDATE"
	StateReturnForConfirmation State = "RETURN_FOR_CONFIRMATION"
	StateReturn                State = "RETURN"
)

// Terminal reports whether s ends a request.
func (s State) Terminal() bool {
	switch s {
	case StateBlocked, StateClarify, StateAnswerSynthesis, StateReturnForConfirmation, StateReturn:
		return true
	}
	return false
}

// QueryMeta summarizes an executed read.
type QueryMeta struct {
	Collection string `json:"collection"`
	Returned   int    `json:"returned"`
	Total      *int64 `json:"total,omitempty"`
}

// Meta accompanies every response.
type Meta struct {
	TerminalState        State          `json:"terminalState"`
	Trail                []State        `json:"trail"`
	SelectedAgent        string         `json:"selectedAgent,omitempty"`
	Intent               string         `json:"intent,omitempty"`
	Confidence           float64        `json:"confidence"`
	Safety               *SafetyVerdict `json:"safety,omitempty"`
	RequiresConfirmation bool           `json:"requiresConfirmation"`
	PendingTool          *ToolCall      `json:"pendingTool,omitempty"`
	Warnings             []string       `json:"warnings,omitempty"`
	Errors               []string       `json:"errors,omitempty"`
	Query                *QueryMeta     `json:"query,omitempty"`
}

// Envelope is the outbound document of one request.
type Envelope struct {
	RequestID string        `json:"requestId"`
	Response  AgentResponse `json:"response"`
	Meta      Meta          `json:"meta"`
}
