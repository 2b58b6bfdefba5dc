package intentrouter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"
)

type fixedClassifier struct {
	result models.IntentResult
}

func (f fixedClassifier) Classify(string) models.IntentResult { return f.result }

var consumer = models.UserContext{UserID: "u1", IsLoggedIn: true, UserType: models.UserTypeConsumer}
var seller = models.UserContext{SellerID: "s1", IsLoggedIn: true, UserType: models.UserTypeSeller}

func TestRoute_ConsumerIntents(t *testing.T) {
	router := NewRouter(nil, nil, nil, logger.NewTestLogger(t))

	tests := []struct {
		text   string
		intent string
	}{
		{"find a frying pan", "search_product"},
		{"can you recommend a good blender", "recommend_product"},
		{"compare the iPhone 15 vs Galaxy S24", "compare_products"},
		{"add 2 of these mugs to my cart", "add_to_cart"},
		{"I want to check out now", "purchase"},
		{"please cancel my last order", "cancel_order"},
		{"I want a refund for the broken kettle", "request_refund"},
		{"help me write a review for the headphones", "write_review"},
		{"how many reward points do I have", "check_rewards"},
		{"how much did I spend last month", "spend_analysis"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := router.Route(tt.text, consumer)
			assert.Equal(t, tt.intent, d.Result.PrimaryIntent)
			assert.GreaterOrEqual(t, d.Result.Confidence, 0.7)
			assert.False(t, d.Clarify)
		})
	}
}

func TestRoute_SellerIntents(t *testing.T) {
	router := NewRouter(nil, nil, nil, logger.NewNoOpLogger())

	tests := map[string]string{
		"register a new product called ceramic pan": "register_product",
		"show me revenue for this week":             "sales_analytics",
		"which orders still need shipping":          "manage_orders",
		"summarize the latest reviews":              "review_insights",
	}
	for text, intent := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Equal(t, intent, router.Route(text, seller).Result.PrimaryIntent)
		})
	}
}

func TestRoute_FryingPanScenario(t *testing.T) {
	d := NewRouter(nil, nil, nil, logger.NewNoOpLogger()).Route("find a frying pan", consumer)

	assert.Equal(t, "search_product", d.Result.PrimaryIntent)
	assert.GreaterOrEqual(t, d.Result.Confidence, 0.85)
	assert.Equal(t, "frying pan", d.Result.ExtractedSlots["query"])
	assert.False(t, d.Clarify)
}

func TestRoute_UnknownClarifies(t *testing.T) {
	d := NewRouter(nil, nil, nil, logger.NewNoOpLogger()).Route("hmm", consumer)

	assert.Equal(t, IntentUnknown, d.Result.PrimaryIntent)
	assert.Equal(t, 0.5, d.Result.Confidence)
	assert.True(t, d.Clarify)
}

func TestRoute_LowConfidenceAlwaysClarifies(t *testing.T) {
	for _, c := range []float64{0, 0.3, 0.69, 0.6999} {
		router := NewRouter(nil, fixedClassifier{models.IntentResult{PrimaryIntent: "search_product", Confidence: c}}, nil, logger.NewNoOpLogger())
		assert.True(t, router.Route("anything", consumer).Clarify, c)
	}

	router := NewRouter(nil, fixedClassifier{models.IntentResult{PrimaryIntent: "search_product", Confidence: 0.7}}, nil, logger.NewNoOpLogger())
	assert.False(t, router.Route("anything", consumer).Clarify)
}

func TestRoute_ClampsConfidence(t *testing.T) {
	tests := map[string]struct {
		in   float64
		want float64
	}{
		"nan":      {math.NaN(), 0},
		"negative": {-1, 0},
		"above":    {1.7, 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			router := NewRouter(nil, fixedClassifier{models.IntentResult{PrimaryIntent: "x", Confidence: tt.in}}, nil, logger.NewNoOpLogger())
			assert.Equal(t, tt.want, router.Route("t", consumer).Result.Confidence)
		})
	}
}

func TestRoute_ConfigurableThreshold(t *testing.T) {
	router := NewRouter(&Config{ConfidenceThreshold: 0.9}, nil, nil, logger.NewNoOpLogger())
	assert.True(t, router.Route("find a frying pan", consumer).Clarify)
}

func TestClassify_ExtractsQuantity(t *testing.T) {
	res := NewConsumerClassifier().Classify("add 200 of item X to cart")

	assert.Equal(t, "add_to_cart", res.PrimaryIntent)
	assert.Equal(t, 200, res.ExtractedSlots["quantity"])
}

func TestClassify_AlternativesRankedBelowPrimary(t *testing.T) {
	res := NewConsumerClassifier().Classify("find a pan and add it to my cart")

	assert.Equal(t, "add_to_cart", res.PrimaryIntent)
	require.NotEmpty(t, res.AlternativeIntents)
	assert.Contains(t, res.AlternativeIntents, "search_product")
}

func TestTaxonomy(t *testing.T) {
	c, s := NewRouter(nil, nil, nil, logger.NewNoOpLogger()).Taxonomy()
	assert.Len(t, c, 10)
	assert.Equal(t, []string{"register_product", "sales_analytics", "manage_orders", "review_insights"}, s)
}
