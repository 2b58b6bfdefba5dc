// internal/models/agent.go
package models

import (
	"errors"
	"strings"
)

// UserType identifies the tenant side of the caller.
type UserType string

const (
	UserTypeConsumer UserType = "consumer"
	UserTypeSeller   UserType = "seller"
)

// UIMode selects how the storefront renders the reply.
type UIMode string

const (
	UIModeChat     UIMode = "chat"
	UIModeBriefing UIMode = "briefing"
)

// UserContext is the caller identity. It is immutable for the life of a request.
type UserContext struct {
	UserID      string   `json:"userId,omitempty"`
	SellerID    string   `json:"sellerId,omitempty"`
	IsLoggedIn  bool     `json:"isLoggedIn"`
	UserType    UserType `json:"userType,omitempty"`
	AgeVerified bool     `json:"ageVerified,omitempty"`
}

// Role returns the effective user type, defaulting to consumer.
func (u UserContext) Role() UserType {
	if u.UserType == UserTypeSeller {
		return UserTypeSeller
	}
	return UserTypeConsumer
}

// ConversationMessage is a single prior turn.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ConversationHistory struct {
	Messages []ConversationMessage `json:"messages"`
}

// AgentRequest is one inbound call to the agent.
type AgentRequest struct {
	RequestID           string               `json:"requestId,omitempty"`
	Message             string               `json:"message"`
	UserContext         UserContext          `json:"userContext"`
	UIMode              UIMode               `json:"uiMode,omitempty"`
	ConversationHistory *ConversationHistory `json:"conversationHistory,omitempty"`
}

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrInvalidUserType = errors.New("userContext.userType must be consumer or seller")
	ErrInvalidUIMode   = errors.New("uiMode must be briefing or chat")
)

// Validate checks the inbound shape.
func (r *AgentRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	switch r.UserContext.UserType {
	case "", UserTypeConsumer, UserTypeSeller:
	default:
		return ErrInvalidUserType
	}
	switch r.UIMode {
	case "", UIModeChat, UIModeBriefing:
	default:
		return ErrInvalidUIMode
	}
	return nil
}

// History returns prior turns, never nil.
func (r *AgentRequest) History() []ConversationMessage {
	if r.ConversationHistory == nil {
		return nil
	}
	return r.ConversationHistory.Messages
}
