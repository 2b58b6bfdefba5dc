// Package tooldispatch executes tool calls the user has confirmed. Each call
// is validated again before it is handed to the collaborator that owns it.
package tooldispatch

import (
	"context"
	"sort"
	"time"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	"shopping-agent-gateway/internal/models"
)

const Component = "tool-dispatch"

type Dispatcher struct {
	config        *Config
	tools         Validator
	collaborators map[string]Collaborator
	logger        logger.Logger
}

func NewDispatcher(config *Config, tools Validator, collaborators map[string]Collaborator, log logger.Logger) *Dispatcher {
	if config == nil {
		config = LoadConfig()
	}
	if collaborators == nil {
		collaborators = map[string]Collaborator{}
	}
	return &Dispatcher{
		config:        config,
		tools:         tools,
		collaborators: collaborators,
		logger:        logger.ForComponent(log, Component),
	}
}

// Dispatch validates call for user and executes it. The sanitized call, not
// the caller's copy, is what reaches the collaborator.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall, user models.UserContext) (*Receipt, error) {
	log := d.logger.With(map[string]interface{}{
		"tool":      string(call.Tool),
		"requestId": call.RequestID,
		"userType":  string(user.Role()),
	})

	result := d.tools.Validate(call, user)
	if !result.IsValid {
		log.Warn("confirmed tool call failed validation", map[string]interface{}{
			"errorCode": string(result.Code),
			"field":     result.Field,
		})
		metrics.ToolDispatches.WithLabelValues(metricTool(call.Tool), "none", "rejected").Inc()
		return nil, result.Err()
	}
	sanitized := *result.SanitizedTool

	service, ok := ServiceFor(sanitized.Tool)
	if !ok {
		return nil, apperrors.NewUnsupportedOperationError("tool", string(sanitized.Tool), toolNames())
	}
	collaborator, ok := d.collaborators[service]
	if !ok {
		log.Error("no collaborator configured", map[string]interface{}{"service": service})
		metrics.ToolDispatches.WithLabelValues(metricTool(sanitized.Tool), service, "unconfigured").Inc()
		return nil, apperrors.NewCollaboratorFailureError(service, errNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	receipt, err := collaborator.Execute(ctx, sanitized)
	fields := map[string]interface{}{
		"service":  service,
		"duration": time.Since(start).String(),
	}
	if err != nil {
		log.WithError(err).Error("collaborator failed", fields)
		metrics.ToolDispatches.WithLabelValues(metricTool(sanitized.Tool), service, "failed").Inc()
		return nil, apperrors.NewCollaboratorFailureError(service, err)
	}

	if receipt == nil {
		receipt = &Receipt{Status: "accepted"}
	}
	receipt.Service = service
	receipt.Tool = sanitized.Tool
	if receipt.RequestID == "" {
		receipt.RequestID = sanitized.RequestID
	}

	fields["status"] = receipt.Status
	log.Info("tool call dispatched", fields)
	metrics.ToolDispatches.WithLabelValues(metricTool(sanitized.Tool), service, "dispatched").Inc()
	return receipt, nil
}

// Services lists the collaborator services that are configured.
func (d *Dispatcher) Services() []string {
	out := make([]string, 0, len(d.collaborators))
	for name := range d.collaborators {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// metricTool keeps the tool label to the known set; anything else a client
// sends is counted as "unsupported".
func metricTool(tool models.ToolName) string {
	if _, ok := services[tool]; ok {
		return string(tool)
	}
	return "unsupported"
}

func toolNames() []string {
	out := make([]string, 0, len(services))
	for name := range services {
		out = append(out, string(name))
	}
	return out
}
