package queryexecutor

import (
	"context"
	"errors"
	"testing"

	"shopping-agent-gateway/internal/common/database"
	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	querygate "shopping-agent-gateway/internal/gateway/query-gate"
	"shopping-agent-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var consumer = models.UserContext{UserID: "u1", IsLoggedIn: true, UserType: models.UserTypeConsumer}

func sanitize(t *testing.T, req models.MongoQueryRequest, user models.UserContext) *querygate.Sanitized {
	t.Helper()
	result := querygate.NewGate(nil, logger.NewTestLogger(t)).Validate(req, user)
	require.True(t, result.IsValid, result.Error)
	return result.Sanitized
}

func seeded() *database.MemoryStore {
	s := database.NewMemoryStore()
	s.Insert(models.CollectionProducts,
		map[string]interface{}{"_id": "p1", "name": "Cast Iron Frying Pan", "price": 39.0, "supplier": map[string]interface{}{"apiKey": "k-1", "name": "Acme"}},
		map[string]interface{}{"_id": "p2", "name": "Nonstick Frying Pan", "price": 25.0},
		map[string]interface{}{"_id": "p3", "name": "Chef Knife", "price": 60.0},
	)
	s.Insert(models.CollectionUsers,
		map[string]interface{}{"_id": "u1", "name": "Ada", "email": "ada@example.com", "password": "x", "passwordHash": "h", "RefreshToken": "r"},
		map[string]interface{}{"_id": "u2", "name": "Bob", "password": "y"},
	)
	s.Insert(models.CollectionOrders,
		map[string]interface{}{"_id": "o1", "userId": "u1", "status": "shipped", "payment": map[string]interface{}{"cardNumber": "4111", "cvv": "123", "brand": "visa"}},
		map[string]interface{}{"_id": "o2", "userId": "u2", "status": "shipped"},
	)
	return s
}

func TestExecute_ProductSearchWithoutLimitSkipsCount(t *testing.T) {
	store := seeded()
	exec := NewExecutor(nil, store, logger.NewTestLogger(t))

	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionProducts,
		Query:      map[string]interface{}{"name": map[string]interface{}{"$regex": "frying pan", "$options": "i"}},
		Purpose:    "find frying pans",
	}, consumer)

	out, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Returned)
	assert.Nil(t, out.Total)
	assert.Equal(t, "find frying pans", out.Purpose)
	assert.Equal(t, []string{"find:products"}, store.Queries())
	assert.NotContains(t, out.Documents[0]["supplier"], "apiKey")
	assert.Equal(t, "Acme", out.Documents[0]["supplier"].(map[string]interface{})["name"])
}

func TestExecute_SuppliedLimitCountsTotal(t *testing.T) {
	store := seeded()
	exec := NewExecutor(nil, store, logger.NewTestLogger(t))

	limit := 1
	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionProducts,
		Query:      map[string]interface{}{},
		Options:    &models.QueryOptions{Limit: &limit, Sort: map[string]interface{}{"price": -1}},
		Purpose:    "most expensive product",
	}, consumer)

	out, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, out.Documents, 1)
	assert.Equal(t, "Chef Knife", out.Documents[0]["name"])
	require.NotNil(t, out.Total)
	assert.Equal(t, int64(3), *out.Total)
}

func TestExecute_UsersAreScopedAndMasked(t *testing.T) {
	exec := NewExecutor(nil, seeded(), logger.NewTestLogger(t))

	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionUsers,
		Query:      map[string]interface{}{},
		Purpose:    "profile",
	}, consumer)

	out, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, out.Documents, 1)
	doc := out.Documents[0]
	assert.Equal(t, "Ada", doc["name"])
	for _, key := range []string{"password", "passwordHash", "RefreshToken"} {
		assert.NotContains(t, doc, key)
	}
}

func TestExecute_OrdersStripPaymentSecrets(t *testing.T) {
	exec := NewExecutor(nil, seeded(), logger.NewTestLogger(t))

	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionOrders,
		Query:      map[string]interface{}{"status": "shipped"},
		Purpose:    "recent orders",
	}, consumer)

	out, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, out.Documents, 1, "only the caller's own order is visible")
	payment := out.Documents[0]["payment"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"brand": "visa"}, payment)
}

func TestExecute_StoreFailureIsExecutionFailure(t *testing.T) {
	store := seeded()
	store.Fail(errors.New("connection reset"))
	exec := NewExecutor(nil, store, logger.NewTestLogger(t))

	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionOrders,
		Query:      map[string]interface{}{"status": "secret-status-value"},
		Purpose:    "recent orders",
	}, consumer)

	_, err := exec.Execute(context.Background(), q)
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeExecutionFailure, stdErr.Code)
	assert.Contains(t, stdErr.Details, "collection: orders")
	assert.Contains(t, stdErr.Details, "purpose: recent orders")
	assert.NotContains(t, stdErr.Error()+stdErr.Details, "secret-status-value")
}

type countFailStore struct {
	*database.MemoryStore
}

func (countFailStore) Count(context.Context, string, map[string]interface{}) (int64, error) {
	return 0, errors.New("count timeout")
}

func TestExecute_CountFailureOmitsTotal(t *testing.T) {
	exec := NewExecutor(nil, countFailStore{seeded()}, logger.NewTestLogger(t))

	limit := 10
	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionProducts,
		Query:      map[string]interface{}{},
		Options:    &models.QueryOptions{Limit: &limit},
		Purpose:    "catalog page",
	}, consumer)

	out, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Returned)
	assert.Nil(t, out.Total)
}

func TestExecute_LogsMaskedFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	exec := NewExecutor(nil, seeded(), logger.NewZapAdapter(zap.New(core)))

	q := sanitize(t, models.MongoQueryRequest{
		Collection: models.CollectionUsers,
		Query:      map[string]interface{}{"password": "hunter2"},
		Purpose:    "login check",
	}, consumer)

	_, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)

	entries := logs.FilterMessage("executing query").All()
	require.Len(t, entries, 1)
	filter := entries[0].ContextMap()["filter"].(map[string]interface{})
	assert.NotContains(t, filter, "password")
	assert.Equal(t, "u1", filter["_id"])
}

func TestExecute_NilQuery(t *testing.T) {
	exec := NewExecutor(nil, seeded(), nil)

	_, err := exec.Execute(context.Background(), nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestMasker_Masked(t *testing.T) {
	m := NewMasker()
	assert.Contains(t, m.Masked(models.CollectionUsers), "refreshToken")
	assert.Contains(t, m.Masked(models.CollectionOrders), "cvv")
	assert.Equal(t, baseMasked, m.Masked(models.CollectionProducts))
}
