// Package intentrouter routes free text to an intent and decides whether the
// confidence is high enough to dispatch to an agent.
package intentrouter

import (
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"
)

const Component = "intent-router"

// Decision is the routing outcome. Clarify is set whenever the intent must
// not reach an agent.
type Decision struct {
	Result  models.IntentResult
	Clarify bool
}

type Router struct {
	config   *Config
	consumer Classifier
	seller   Classifier
	logger   logger.Logger
}

// NewRouter builds a router. Nil classifiers fall back to the pattern tables.
func NewRouter(config *Config, consumer, seller Classifier, log logger.Logger) *Router {
	if config == nil {
		config = LoadConfig()
	}
	if consumer == nil {
		consumer = NewConsumerClassifier()
	}
	if seller == nil {
		seller = NewSellerClassifier()
	}
	return &Router{
		config:   config,
		consumer: consumer,
		seller:   seller,
		logger:   logger.ForComponent(log, Component),
	}
}

// Route classifies text with the classifier of the caller's side.
func (r *Router) Route(text string, user models.UserContext) *Decision {
	classifier := r.consumer
	if user.Role() == models.UserTypeSeller {
		classifier = r.seller
	}

	result := classifier.Classify(text)
	result.Confidence = clamp(result.Confidence)
	if result.PrimaryIntent == "" {
		result.PrimaryIntent = IntentUnknown
	}

	decision := &Decision{
		Result:  result,
		Clarify: result.PrimaryIntent == IntentUnknown || result.Confidence < r.config.ConfidenceThreshold,
	}

	r.logger.Debug("intent routed", map[string]interface{}{
		"userType":   string(user.Role()),
		"intent":     result.PrimaryIntent,
		"confidence": result.Confidence,
		"clarify":    decision.Clarify,
	})
	return decision
}

// Taxonomy returns the intents each classifier can produce, when the
// classifier exposes them.
func (r *Router) Taxonomy() (consumer, seller []string) {
	type lister interface{ Intents() []string }
	if l, ok := r.consumer.(lister); ok {
		consumer = l.Intents()
	}
	if l, ok := r.seller.(lister); ok {
		seller = l.Intents()
	}
	return consumer, seller
}

// clamp keeps a classifier's confidence inside [0,1]. NaN counts as no confidence.
func clamp(c float64) float64 {
	if c != c || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
