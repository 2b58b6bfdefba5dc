package tooldispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopping-agent-gateway/internal/common/config"
	apperrors "shopping-agent-gateway/internal/common/errors"
	httpclient "shopping-agent-gateway/internal/common/http"
	"shopping-agent-gateway/internal/common/logger"
	toolgateway "shopping-agent-gateway/internal/gateway/tool-gateway"
	typeregistry "shopping-agent-gateway/internal/gateway/type-registry"
	"shopping-agent-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice   = models.UserContext{UserID: "u1", IsLoggedIn: true, UserType: models.UserTypeConsumer}
	sellerA = models.UserContext{SellerID: "seller-a", IsLoggedIn: true, UserType: models.UserTypeSeller}
)

type recorded struct {
	path      string
	requestID string
	body      executeBody
}

func collaboratorServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	calls := &[]recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body executeBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, recorded{path: r.URL.Path, requestID: r.Header.Get("X-Request-ID"), body: body})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newDispatcher(t *testing.T, collaborators map[string]Collaborator) *Dispatcher {
	t.Helper()
	log := logger.NewTestLogger(t)
	return NewDispatcher(nil, toolgateway.NewGateway(nil, typeregistry.New(), log), collaborators, log)
}

func addToCart(quantity float64) models.ToolCall {
	return models.ToolCall{
		Tool:         models.ToolAddToCart,
		Payload:      map[string]interface{}{"productId": " p1 ", "quantity": quantity, "coupon": "FREE"},
		RequestID:    "r1",
		HumanSummary: "Add the pan to your cart",
	}
}

func TestDispatch_PostsSanitizedCall(t *testing.T) {
	srv, calls := collaboratorServer(t, http.StatusOK, `{"status":"added","reference":"cart-line-9"}`)
	client := httpclient.NewClientWith(srv.Client())
	d := newDispatcher(t, map[string]Collaborator{
		ServiceCart: NewHTTPCollaborator(ServiceCart, srv.URL+"/", client, logger.NewTestLogger(t)),
	})

	receipt, err := d.Dispatch(context.Background(), addToCart(2), alice)
	require.NoError(t, err)

	assert.Equal(t, &Receipt{
		Service:   ServiceCart,
		Tool:      models.ToolAddToCart,
		RequestID: "r1",
		Status:    "added",
		Reference: "cart-line-9",
	}, receipt)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/tools/addToCart", call.path)
	assert.Equal(t, "r1", call.requestID)
	assert.Equal(t, models.UserTypeConsumer, call.body.ActorRole)
	assert.Equal(t, "p1", call.body.Payload["productId"])
	assert.NotContains(t, call.body.Payload, "coupon")
	assert.NotEmpty(t, call.body.Timestamp)
}

func TestDispatch_RevalidatesBeforeExecuting(t *testing.T) {
	srv, calls := collaboratorServer(t, http.StatusOK, `{}`)
	d := newDispatcher(t, NewHTTPCollaborators(config.CollaboratorsConfig{Cart: srv.URL, Product: srv.URL}, nil))

	tests := []struct {
		name string
		call models.ToolCall
		user models.UserContext
		code apperrors.ErrorCode
	}{
		{"quantity above bound", addToCart(200), alice, apperrors.ErrCodeValidation},
		{"unknown tool", models.ToolCall{Tool: "deleteAccount", Payload: map[string]interface{}{}, RequestID: "r1", HumanSummary: "x"}, alice, apperrors.ErrCodeUnsupportedOperation},
		{"consumer registering a product", models.ToolCall{
			Tool:         models.ToolSellerProductRegister,
			Payload:      map[string]interface{}{"name": "Pan", "price": 10.0, "categoryId": "c1"},
			RequestID:    "r1",
			HumanSummary: "Register a pan",
		}, alice, apperrors.ErrCodeScopeViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := d.Dispatch(context.Background(), tt.call, tt.user)
			require.Error(t, err)
			assert.Nil(t, receipt)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
	assert.Empty(t, *calls, "rejected calls never reach a collaborator")
}

func TestDispatch_SellerTool(t *testing.T) {
	srv, calls := collaboratorServer(t, http.StatusCreated, `{"status":"registered","reference":"prod-77"}`)
	d := newDispatcher(t, NewHTTPCollaborators(config.CollaboratorsConfig{Product: srv.URL, Timeout: 2000}, nil))

	receipt, err := d.Dispatch(context.Background(), models.ToolCall{
		Tool:         models.ToolSellerProductRegister,
		Payload:      map[string]interface{}{"name": "Pan", "price": 10.0, "categoryId": "c1"},
		RequestID:    "r2",
		HumanSummary: "Register a pan",
	}, sellerA)
	require.NoError(t, err)
	assert.Equal(t, ServiceProduct, receipt.Service)
	assert.Equal(t, "prod-77", receipt.Reference)
	require.Len(t, *calls, 1)
	assert.Equal(t, models.UserTypeSeller, (*calls)[0].body.ActorRole)
}

func TestDispatch_CollaboratorFailures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		srv, _ := collaboratorServer(t, http.StatusConflict, `{"error":"out of stock"}`)
		d := newDispatcher(t, NewHTTPCollaborators(config.CollaboratorsConfig{Cart: srv.URL}, nil))

		_, err := d.Dispatch(context.Background(), addToCart(1), alice)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExecutionFailure, apperrors.CodeOf(err))

		var std *apperrors.StandardError
		require.True(t, errors.As(err, &std))
		assert.Equal(t, ServiceCart, std.Metadata["service"])
		assert.Contains(t, std.Details, "409")
		assert.Contains(t, std.Details, "out of stock")
	})

	t.Run("unconfigured service", func(t *testing.T) {
		d := newDispatcher(t, NewHTTPCollaborators(config.CollaboratorsConfig{}, nil))
		_, err := d.Dispatch(context.Background(), addToCart(1), alice)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExecutionFailure, apperrors.CodeOf(err))
		assert.Empty(t, d.Services())
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		log := logger.NewTestLogger(t)
		d := NewDispatcher(&Config{Timeout: 50 * time.Millisecond}, toolgateway.NewGateway(nil, typeregistry.New(), log),
			map[string]Collaborator{ServiceCart: NewHTTPCollaborator(ServiceCart, srv.URL, httpclient.NewClient(time.Minute), log)}, log)

		_, err := d.Dispatch(context.Background(), addToCart(1), alice)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExecutionFailure, apperrors.CodeOf(err))
	})
}

func TestServiceFor_CoversEveryTool(t *testing.T) {
	for _, tool := range models.ToolNames {
		_, ok := ServiceFor(tool)
		assert.True(t, ok, tool)
	}
	service, _ := ServiceFor(models.ToolGoToCheckout)
	assert.Equal(t, ServiceCart, service)
	service, _ = ServiceFor(models.ToolRequestRefund)
	assert.Equal(t, ServiceOrder, service)
}

func TestNewHTTPCollaborators_SkipsBlankURLs(t *testing.T) {
	got := NewHTTPCollaborators(config.CollaboratorsConfig{Cart: "http://cart", Order: " "}, nil)
	assert.Len(t, got, 1)
	assert.Contains(t, got, ServiceCart)
}

func TestMetricTool_BoundsClientSuppliedNames(t *testing.T) {
	for _, tool := range models.ToolNames {
		assert.Equal(t, string(tool), metricTool(tool))
	}
	for _, tool := range []models.ToolName{"deleteAccount", "", "addToCart\n", models.ToolName(strings.Repeat("x", 512))} {
		assert.Equal(t, "unsupported", metricTool(tool), "%q", tool)
	}
}
