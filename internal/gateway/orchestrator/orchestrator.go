// Package orchestrator runs one agent request through the gateway state
// machine. It never executes tool calls: a valid tool call ends the request
// awaiting user confirmation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	"shopping-agent-gateway/internal/common/observability"
	intentrouter "shopping-agent-gateway/internal/gateway/intent-router"
	policygate "shopping-agent-gateway/internal/gateway/policy-gate"
	"shopping-agent-gateway/internal/models"
	"shopping-agent-gateway/pkg/registry"

	"github.com/google/uuid"
)

const Component = "orchestrator"

// Options wires the pipeline stages. Synthesizer, History and
// Observability are optional.
type Options struct {
	Config        *Config
	Spec          *registry.AgentSpec
	Policy        policygate.Evaluator
	Router        IntentRouter
	Registry      ResponseClassifier
	Tools         ToolValidator
	Queries       QueryValidator
	Executor      QueryRunner
	Generator     Generator
	Synthesizer   Synthesizer
	History       History
	Observability *observability.Observability
	Logger        logger.Logger
}

type Orchestrator struct {
	config      *Config
	spec        *registry.AgentSpec
	policy      policygate.Evaluator
	router      IntentRouter
	registry    ResponseClassifier
	tools       ToolValidator
	queries     QueryValidator
	executor    QueryRunner
	generator   Generator
	synthesizer Synthesizer
	fallback    Synthesizer
	history     History
	obs         *observability.Observability
	logger      logger.Logger
}

func New(opts Options) (*Orchestrator, error) {
	missing := []string{}
	if opts.Policy == nil {
		missing = append(missing, "Policy")
	}
	if opts.Router == nil {
		missing = append(missing, "Router")
	}
	if opts.Registry == nil {
		missing = append(missing, "Registry")
	}
	if opts.Tools == nil {
		missing = append(missing, "Tools")
	}
	if opts.Queries == nil {
		missing = append(missing, "Queries")
	}
	if opts.Executor == nil {
		missing = append(missing, "Executor")
	}
	if opts.Generator == nil {
		missing = append(missing, "Generator")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("orchestrator: missing %s", strings.Join(missing, ", "))
	}

	config := opts.Config
	if config == nil {
		config = LoadConfig()
	}
	spec := opts.Spec
	if spec == nil {
		spec = registry.Default()
	}
	fallback := TemplateSynthesizer{MaxListed: config.MaxListed}
	synthesizer := opts.Synthesizer
	if synthesizer == nil {
		synthesizer = fallback
	}

	return &Orchestrator{
		config:      config,
		spec:        spec,
		policy:      opts.Policy,
		router:      opts.Router,
		registry:    opts.Registry,
		tools:       opts.Tools,
		queries:     opts.Queries,
		executor:    opts.Executor,
		generator:   opts.Generator,
		synthesizer: synthesizer,
		fallback:    fallback,
		history:     opts.History,
		obs:         opts.Observability,
		logger:      logger.ForComponent(opts.Logger, Component),
	}, nil
}

// run is the state of one request.
type run struct {
	ctx       context.Context
	req       *models.AgentRequest
	requestID string
	history   []models.ConversationMessage
	env       *models.Envelope
	entered   time.Time
	logger    logger.Logger
	obs       *observability.Observability
}

func (r *run) enter(state models.State) {
	now := time.Now()
	if n := len(r.env.Meta.Trail); n > 0 {
		r.obs.RecordStage(r.ctx, string(r.env.Meta.Trail[n-1]), now.Sub(r.entered), "ok")
	}
	r.env.Meta.Trail = append(r.env.Meta.Trail, state)
	r.entered = now
}

func (r *run) finish(state models.State, resp models.AgentResponse) *models.Envelope {
	r.enter(state)
	r.obs.RecordStage(r.ctx, string(state), 0, "terminal")
	r.env.Meta.TerminalState = state
	r.env.Response = resp
	return r.env
}

func (r *run) fail(state models.State, text string, err error) *models.Envelope {
	if err != nil {
		std := apperrors.Normalize(err)
		r.env.Meta.Errors = append(r.env.Meta.Errors, fmt.Sprintf("%s: %s", std.Code, std.Message))
	}
	return r.finish(state, models.NewAnswer(r.requestID, text))
}

// Handle runs req to a terminal state. The returned error is reserved for
// malformed requests; every pipeline outcome is carried in the envelope.
func (o *Orchestrator) Handle(ctx context.Context, req *models.AgentRequest) (*models.Envelope, error) {
	if req == nil {
		return nil, apperrors.NewValidationError("message", "request body is required")
	}
	if err := req.Validate(); err != nil {
		field := "message"
		switch {
		case errors.Is(err, models.ErrInvalidUserType):
			field = "userContext.userType"
		case errors.Is(err, models.ErrInvalidUIMode):
			field = "uiMode"
		}
		return nil, apperrors.NewValidationError(field, err.Error())
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	r := &run{
		ctx:       ctx,
		req:       req,
		requestID: requestID,
		history:   req.History(),
		env:       &models.Envelope{RequestID: requestID},
		logger: o.logger.With(map[string]interface{}{
			"requestId": requestID,
			"userType":  string(req.UserContext.Role()),
		}),
		obs: o.obs,
	}

	env := o.pipeline(r)

	metrics.AgentRequests.WithLabelValues(string(env.Meta.TerminalState)).Inc()
	r.logger.Info("request completed", map[string]interface{}{
		"terminalState": string(env.Meta.TerminalState),
		"agent":         env.Meta.SelectedAgent,
		"intent":        env.Meta.Intent,
		"confidence":    env.Meta.Confidence,
		"errors":        len(env.Meta.Errors),
	})
	o.remember(r)
	return env, nil
}

func (o *Orchestrator) pipeline(r *run) *models.Envelope {
	user := r.req.UserContext
	r.enter(models.StateStart)

	r.enter(models.StateSafetyCheck)
	verdict := o.policy.Evaluate(r.req.Message, nil, user)
	r.env.Meta.Safety = verdict
	if verdict.Blocked() {
		return r.finish(models.StateBlocked, models.NewAnswer(r.requestID, policyMessage(verdict)))
	}
	o.noteWarning(r, verdict)

	o.loadHistory(r)

	r.enter(models.StateIntentRoute)
	decision := o.router.Route(r.req.Message, user)
	spec := o.specFor(r.ctx)
	agent := o.selectAgent(spec, decision.Result.PrimaryIntent)
	r.env.Meta.Intent = decision.Result.PrimaryIntent
	r.env.Meta.Confidence = decision.Result.Confidence
	r.env.Meta.SelectedAgent = agent.ID

	if decision.Clarify {
		return r.finish(models.StateClarify, clarification(r.requestID, user, decision.Result))
	}

	r.enter(models.StateAgentDispatch)
	doc, err := o.generator.Generate(r.ctx, models.GenerationRequest{
		RequestID:        r.requestID,
		Message:          r.req.Message,
		User:             user,
		UIMode:           r.req.UIMode,
		Agent:            agent.ID,
		AgentDescription: agent.Description,
		Intent:           decision.Result,
		History:          r.history,
	})
	if err != nil {
		r.logger.WithError(err).Error("response generation failed", map[string]interface{}{"agent": agent.ID})
		return r.fail(models.StateAnswerSynthesis, "I couldn't prepare a response just now. Please try again.", apperrors.NewGenerationFailedError(err))
	}

	r.enter(models.StateResponseGenerated)
	if err := o.correlate(r, doc); err != nil {
		return r.fail(models.StateAnswerSynthesis, "I couldn't prepare a response just now. Please try again.", err)
	}
	classified := o.registry.Classify(doc)
	if !classified.Valid {
		r.logger.Warn("generated response failed classification", map[string]interface{}{
			"agent":     agent.ID,
			"kind":      string(classified.Kind),
			"errorCode": string(classified.Code),
			"field":     classified.Field,
		})
		return r.fail(models.StateAnswerSynthesis, "I couldn't prepare a valid response. Please rephrase and try again.", classified.Err())
	}

	switch resp := classified.Response.(type) {
	case *models.MongoQuery:
		return o.query(r, agent, resp)
	case *models.ToolCallResponse:
		return o.tool(r, resp)
	default:
		return r.finish(models.StateReturn, resp)
	}
}

func (o *Orchestrator) query(r *run, agent registry.Agent, resp *models.MongoQuery) *models.Envelope {
	r.enter(models.StateQueryExecute)

	gated := o.queries.Validate(resp.MongoQueryRequest, r.req.UserContext)
	if !gated.IsValid {
		return r.fail(models.StateAnswerSynthesis, fmt.Sprintf("I can't run that lookup: %s.", gated.Error), gated.Err())
	}

	out, err := o.executor.Execute(r.ctx, gated.Sanitized)
	if err != nil {
		return r.fail(models.StateAnswerSynthesis, "I couldn't load that information right now. Please try again shortly.", err)
	}
	r.env.Meta.Query = &models.QueryMeta{Collection: out.Collection, Returned: out.Returned, Total: out.Total}

	synthesis := models.SynthesisRequest{
		RequestID:  r.requestID,
		Message:    r.req.Message,
		UIMode:     r.req.UIMode,
		Agent:      agent.ID,
		Collection: out.Collection,
		Purpose:    out.Purpose,
		Documents:  out.Documents,
		Total:      out.Total,
	}
	text, err := o.synthesizer.Synthesize(r.ctx, synthesis)
	if err != nil {
		r.logger.WithError(err).Warn("synthesis failed, listing results instead", nil)
		text, _ = o.fallback.Synthesize(r.ctx, synthesis)
	}

	answer := models.NewAnswer(r.requestID, text)
	if out.Collection == models.CollectionProducts {
		answer.Products = out.Documents
	}
	return r.finish(models.StateAnswerSynthesis, answer)
}

func (o *Orchestrator) tool(r *run, resp *models.ToolCallResponse) *models.Envelope {
	r.enter(models.StateToolValidate)
	user := r.req.UserContext
	call := resp.ToolCall

	verdict := o.policy.Evaluate(r.req.Message, []models.ToolCall{call}, user)
	if verdict.Blocked() {
		r.env.Meta.Safety = verdict
		return r.finish(models.StateBlocked, models.NewAnswer(r.requestID, policyMessage(verdict)))
	}
	if verdict.Verdict == models.VerdictWarn {
		r.env.Meta.Safety = verdict
		o.noteWarning(r, verdict)
	}

	result := o.tools.Validate(call, user)
	if !result.IsValid {
		reason := "the request is invalid"
		if len(result.Errors) > 0 {
			reason = result.Errors[0]
		}
		return r.fail(models.StateAnswerSynthesis, fmt.Sprintf("I can't do that: %s.", reason), result.Err())
	}

	r.env.Meta.Warnings = append(r.env.Meta.Warnings, result.Warnings...)
	r.env.Meta.RequiresConfirmation = true
	r.env.Meta.PendingTool = result.SanitizedTool
	return r.finish(models.StateReturnForConfirmation, &models.ToolCallResponse{
		Type:     models.ResponseTypeToolCall,
		ToolCall: *result.SanitizedTool,
	})
}

// correlate stamps a missing requestId with the originating one and rejects
// a generated document that names a different request.
func (o *Orchestrator) correlate(r *run, doc map[string]interface{}) error {
	raw, present := doc["requestId"]
	id, isString := raw.(string)
	if !present || raw == nil || (isString && strings.TrimSpace(id) == "") {
		r.logger.Warn("generated response omitted requestId, stamping", nil)
		doc["requestId"] = r.requestID
		return nil
	}
	if !isString || id != r.requestID {
		r.logger.Warn("generated response names another request", map[string]interface{}{"generatedRequestId": raw})
		return apperrors.NewValidationError("requestId", "does not match the originating request")
	}
	return nil
}

func (o *Orchestrator) specFor(ctx context.Context) *registry.AgentSpec {
	if spec, ok := registry.FromContext(ctx); ok && spec != nil {
		return spec
	}
	return o.spec
}

func (o *Orchestrator) selectAgent(spec *registry.AgentSpec, intent string) registry.Agent {
	if agent, ok := spec.AgentForIntent(intent); ok {
		return agent
	}
	for _, agent := range spec.Agents {
		if agent.ID == spec.DefaultAgent {
			return agent
		}
	}
	return registry.Agent{ID: spec.DefaultAgent}
}

func (o *Orchestrator) noteWarning(r *run, verdict *models.SafetyVerdict) {
	if verdict == nil || verdict.Verdict != models.VerdictWarn {
		return
	}
	msg := verdict.Reason
	if verdict.AlternativeGuidance != "" {
		msg = strings.TrimSpace(msg + " " + verdict.AlternativeGuidance)
	}
	r.env.Meta.Warnings = append(r.env.Meta.Warnings, msg)
}

func (o *Orchestrator) loadHistory(r *run) {
	user := r.req.UserContext
	if o.history == nil || len(r.history) > 0 || !user.IsLoggedIn || user.UserID == "" {
		return
	}
	turns, err := o.history.Load(r.ctx, user.UserID)
	if err != nil {
		r.logger.WithError(err).Warn("history unavailable, continuing without it", nil)
		return
	}
	r.history = turns
}

func (o *Orchestrator) remember(r *run) {
	user := r.req.UserContext
	if o.history == nil || !o.config.PersistHistory || !user.IsLoggedIn || user.UserID == "" {
		return
	}
	if r.env.Meta.TerminalState == models.StateBlocked {
		return
	}
	err := o.history.Append(r.ctx, user.UserID,
		models.ConversationMessage{Role: "user", Content: r.req.Message},
		models.ConversationMessage{Role: "assistant", Content: summarize(r.env)},
	)
	if err != nil {
		r.logger.WithError(err).Warn("failed to record history", nil)
	}
}

func policyMessage(v *models.SafetyVerdict) string {
	msg := "I can't help with that request."
	if v.Reason != "" {
		msg = v.Reason
	}
	if v.AlternativeGuidance != "" {
		msg += " " + v.AlternativeGuidance
	}
	return msg
}

func clarification(requestID string, user models.UserContext, intent models.IntentResult) *models.NeedMoreInfo {
	reason := "low_confidence"
	if intent.PrimaryIntent == intentrouter.IntentUnknown || intent.PrimaryIntent == "" {
		reason = "unknown_intent"
	}
	if user.Role() == models.UserTypeSeller {
		return models.NewNeedMoreInfo(requestID, reason,
			"Could you tell me a bit more about what you need?",
			"Are you working on products, orders, sales or reviews?",
		)
	}
	return models.NewNeedMoreInfo(requestID, reason,
		"Could you tell me a bit more about what you're looking for?",
		"Is this about finding a product, your cart, an order or your rewards?",
	)
}

// summarize is the one-line assistant turn kept in history.
func summarize(env *models.Envelope) string {
	switch resp := env.Response.(type) {
	case *models.Answer:
		return firstLine(resp.Answer)
	case *models.BriefingWithProducts:
		return firstLine(resp.Briefing)
	case *models.ToolCallResponse:
		return "Proposed " + string(resp.Tool) + ": " + resp.HumanSummary
	case *models.NeedMoreInfo:
		return "Asked: " + strings.Join(resp.Questions, " ")
	case *models.MongoQuery:
		return "Looked up " + resp.Collection
	}
	return string(env.Meta.TerminalState)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
