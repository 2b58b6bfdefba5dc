package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	tooldispatch "shopping-agent-gateway/internal/gateway/tool-dispatch"
	"shopping-agent-gateway/internal/models"
	"shopping-agent-gateway/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	got    *models.AgentRequest
	spec   *registry.AgentSpec
	err    error
	result *models.Envelope
}

func (a *fakeAgent) Handle(ctx context.Context, req *models.AgentRequest) (*models.Envelope, error) {
	a.got = req
	a.spec, _ = registry.FromContext(ctx)
	if a.err != nil {
		return nil, a.err
	}
	if a.result != nil {
		return a.result, nil
	}
	return &models.Envelope{
		RequestID: req.RequestID,
		Response:  models.NewAnswer(req.RequestID, "hello"),
		Meta:      models.Meta{TerminalState: models.StateReturn, Trail: []models.State{models.StateStart, models.StateReturn}},
	}, nil
}

type fakeDispatcher struct {
	call models.ToolCall
	user models.UserContext
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, call models.ToolCall, user models.UserContext) (*tooldispatch.Receipt, error) {
	d.call, d.user = call, user
	if d.err != nil {
		return nil, d.err
	}
	return &tooldispatch.Receipt{Service: tooldispatch.ServiceCart, Tool: call.Tool, RequestID: call.RequestID, Status: "added"}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	opts.Logger = logger.NewTestLogger(t)
	srv := httptest.NewServer(NewHandler(opts).Router())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestChat_ReturnsEnvelope(t *testing.T) {
	agent := &fakeAgent{}
	spec := registry.Default()
	srv := newServer(t, Options{Agent: agent, Spec: spec})

	resp, body := post(t, srv.URL+"/v1/agent/chat",
		`{"requestId":"r1","message":"find a pan","userContext":{"userId":"u1","isLoggedIn":true,"userType":"consumer"},"uiMode":"chat"}`, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "r1", body["requestId"])
	assert.Equal(t, "ANSWER", body["response"].(map[string]interface{})["type"])
	assert.Equal(t, "RETURN", body["meta"].(map[string]interface{})["terminalState"])

	require.NotNil(t, agent.got)
	assert.Equal(t, "find a pan", agent.got.Message)
	assert.Equal(t, models.UserTypeConsumer, agent.got.UserContext.UserType)
	assert.Same(t, spec, agent.spec, "agent spec travels in the request context")
}

func TestChat_AssignsRequestID(t *testing.T) {
	agent := &fakeAgent{}
	srv := newServer(t, Options{Agent: agent})

	resp, body := post(t, srv.URL+"/v1/agent/chat", `{"message":"find a pan"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id := resp.Header.Get(HeaderRequestID)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, body["requestId"])

	_, body = post(t, srv.URL+"/v1/agent/chat", `{"message":"find a pan"}`, map[string]string{HeaderRequestID: "from-header"})
	assert.Equal(t, "from-header", body["requestId"])
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		agentErr error
		status   int
		code     string
	}{
		{"malformed json", `{"message":`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty body", ``, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid request", `{"message":" "}`, apperrors.NewValidationError("message", "message is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unexpected failure", `{"message":"hi"}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, Options{Agent: &fakeAgent{err: tt.agentErr}})
			resp, body := post(t, srv.URL+"/v1/agent/chat", tt.body, map[string]string{HeaderRequestID: "r9"})

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, "r9", body["requestId"])
			if tt.code == "INTERNAL_ERROR" {
				assert.NotContains(t, body, "details")
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	t.Run("dispatches", func(t *testing.T) {
		d := &fakeDispatcher{}
		srv := newServer(t, Options{Agent: &fakeAgent{}, Dispatcher: d})

		resp, body := post(t, srv.URL+"/v1/agent/tools/confirm",
			`{"tool":{"tool":"addToCart","payload":{"productId":"p1","quantity":1},"requestId":"r1","humanSummary":"Add pan"},"userContext":{"userId":"u1","isLoggedIn":true}}`, nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "r1", body["requestId"])
		assert.Equal(t, "added", body["receipt"].(map[string]interface{})["status"])
		assert.Equal(t, models.ToolAddToCart, d.call.Tool)
		assert.Equal(t, "u1", d.user.UserID)
	})

	t.Run("scope violation is forbidden", func(t *testing.T) {
		d := &fakeDispatcher{err: apperrors.NewScopeViolationError("tool", "actorRole")}
		srv := newServer(t, Options{Agent: &fakeAgent{}, Dispatcher: d})

		resp, body := post(t, srv.URL+"/v1/agent/tools/confirm", `{"tool":{"tool":"sellerProductRegister","payload":{}}}`, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "SCOPE_VIOLATION", body["code"])
	})

	t.Run("not mounted without a dispatcher", func(t *testing.T) {
		srv := newServer(t, Options{Agent: &fakeAgent{}})
		resp, err := http.Post(srv.URL+"/v1/agent/tools/confirm", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealthAndReady(t *testing.T) {
	srv := newServer(t, Options{
		Agent: &fakeAgent{},
		Spec:  registry.Default(),
		Readiness: map[string]Pinger{
			"store":   pinger{},
			"history": pinger{err: errors.New("dial tcp: connection refused")},
		},
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health["status"])
	assert.NotEmpty(t, health["specVersion"])

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	var ready map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ready))
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not_ready", ready["status"])
	assert.Equal(t, map[string]interface{}{"store": "ok", "history": "unavailable"}, ready["checks"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, Options{Agent: &fakeAgent{}})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}
