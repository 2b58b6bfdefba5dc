// internal/models/response.go
package models

// ResponseType is the discriminant of a generated agent response.
type ResponseType string

const (
	// ResponseTypeAnswer is a plain text answer, optionally with products.
	ResponseTypeAnswer ResponseType = "ANSWER"
	// ResponseTypeBriefing is a short briefing with at least one product.
	ResponseTypeBriefing ResponseType = "BRIEFING_WITH_PRODUCTS"
	// ResponseTypeMongoQuery asks the gateway to run a read query.
	ResponseTypeMongoQuery ResponseType = "MONGO_QUERY"
	// ResponseTypeToolCall proposes a state-changing action.
	ResponseTypeToolCall ResponseType = "TOOL_CALL"
	// ResponseTypeNeedMoreInfo asks the user clarifying questions.
	ResponseTypeNeedMoreInfo ResponseType = "NEED_MORE_INFO"
)

// ResponseTypes lists every variant in declaration order.
var ResponseTypes = []ResponseType{
	ResponseTypeAnswer,
	ResponseTypeBriefing,
	ResponseTypeMongoQuery,
	ResponseTypeToolCall,
	ResponseTypeNeedMoreInfo,
}

// AgentResponse is the closed set of response variants. Only types in this
// package implement it.
type AgentResponse interface {
	ResponseType() ResponseType
	GetRequestID() string
	agentResponse()
}

type Answer struct {
	Type        ResponseType             `json:"type"`
	RequestID   string                   `json:"requestId"`
	Answer      string                   `json:"answer"`
	Products    []map[string]interface{} `json:"products,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
}

type BriefingWithProducts struct {
	Type      ResponseType             `json:"type"`
	RequestID string                   `json:"requestId"`
	Briefing  string                   `json:"briefing"`
	Products  []map[string]interface{} `json:"products"`
}

type MongoQuery struct {
	Type      ResponseType `json:"type"`
	RequestID string       `json:"requestId"`
	MongoQueryRequest
}

type ToolCallResponse struct {
	Type ResponseType `json:"type"`
	ToolCall
}

type NeedMoreInfo struct {
	Type      ResponseType `json:"type"`
	RequestID string       `json:"requestId"`
	Questions []string     `json:"questions"`
	Reason    string       `json:"reason,omitempty"`
}

func (*Answer) agentResponse()               {}
func (*BriefingWithProducts) agentResponse() {}
func (*MongoQuery) agentResponse()           {}
func (*ToolCallResponse) agentResponse()     {}
func (*NeedMoreInfo) agentResponse()         {}

func (*Answer) ResponseType() ResponseType               { return ResponseTypeAnswer }
func (*BriefingWithProducts) ResponseType() ResponseType { return ResponseTypeBriefing }
func (*MongoQuery) ResponseType() ResponseType           { return ResponseTypeMongoQuery }
func (*ToolCallResponse) ResponseType() ResponseType     { return ResponseTypeToolCall }
func (*NeedMoreInfo) ResponseType() ResponseType         { return ResponseTypeNeedMoreInfo }

func (r *Answer) GetRequestID() string               { return r.RequestID }
func (r *BriefingWithProducts) GetRequestID() string { return r.RequestID }
func (r *MongoQuery) GetRequestID() string           { return r.RequestID }
func (r *ToolCallResponse) GetRequestID() string     { return r.RequestID }
func (r *NeedMoreInfo) GetRequestID() string         { return r.RequestID }

// NewAnswer builds an ANSWER response.
func NewAnswer(requestID, text string) *Answer {
	return &Answer{Type: ResponseTypeAnswer, RequestID: requestID, Answer: text}
}

// NewNeedMoreInfo builds a clarification response.
func NewNeedMoreInfo(requestID, reason string, questions ...string) *NeedMoreInfo {
	return &NeedMoreInfo{
		Type:      ResponseTypeNeedMoreInfo,
		RequestID: requestID,
		Questions: questions,
		Reason:    reason,
	}
}
