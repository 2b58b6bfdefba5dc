package tooldispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopping-agent-gateway/internal/common/config"
	httpclient "shopping-agent-gateway/internal/common/http"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"
)

var errNotConfigured = errors.New("collaborator is not configured")

// HTTPCollaborator posts sanitized tool calls to a service at
// <baseURL>/tools/<tool>.
type HTTPCollaborator struct {
	service string
	baseURL string
	client  *httpclient.Client
	logger  logger.Logger
}

func NewHTTPCollaborator(service, baseURL string, client *httpclient.Client, log logger.Logger) *HTTPCollaborator {
	return &HTTPCollaborator{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.ForComponent(log, Component).With(map[string]interface{}{"service": service}),
	}
}

type executeBody struct {
	Tool         models.ToolName        `json:"tool"`
	Payload      map[string]interface{} `json:"payload"`
	ActorRole    models.UserType        `json:"actorRole"`
	RequestID    string                 `json:"requestId"`
	Timestamp    string                 `json:"timestamp,omitempty"`
	HumanSummary string                 `json:"humanSummary"`
}

func (c *HTTPCollaborator) Execute(ctx context.Context, call models.ToolCall) (*Receipt, error) {
	url := fmt.Sprintf("%s/tools/%s", c.baseURL, call.Tool)
	body := executeBody{
		Tool:         call.Tool,
		Payload:      call.Payload,
		ActorRole:    call.ActorRole,
		RequestID:    call.RequestID,
		Timestamp:    call.Timestamp,
		HumanSummary: call.HumanSummary,
	}

	var receipt Receipt
	headers := map[string]string{"X-Request-ID": call.RequestID}
	if err := c.client.PostJSON(ctx, url, headers, body, &receipt); err != nil {
		return nil, err
	}
	c.logger.Debug("collaborator accepted tool call", map[string]interface{}{
		"tool":   string(call.Tool),
		"status": receipt.Status,
	})
	return &receipt, nil
}

// NewHTTPCollaborators builds a collaborator for every service with a base
// URL. Services without one are left out.
func NewHTTPCollaborators(cfg config.CollaboratorsConfig, log logger.Logger) map[string]Collaborator {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := httpclient.NewClient(timeout)

	urls := map[string]string{
		ServiceCart:     cfg.Cart,
		ServiceWishlist: cfg.Wishlist,
		ServiceOrder:    cfg.Order,
		ServiceProduct:  cfg.Product,
	}
	out := make(map[string]Collaborator, len(urls))
	for service, url := range urls {
		if strings.TrimSpace(url) == "" {
			continue
		}
		out[service] = NewHTTPCollaborator(service, url, client, log)
	}
	return out
}
