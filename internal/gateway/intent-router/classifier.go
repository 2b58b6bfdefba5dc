package intentrouter

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"shopping-agent-gateway/internal/models"
)

const (
	IntentUnknown = "unknown"

	unknownConfidence = 0.5
	boostPerMatch     = 0.03
	maxConfidence     = 0.97
)

// Classifier maps free text to an intent. A learned model can replace the
// pattern tables by implementing this interface.
type Classifier interface {
	Classify(text string) models.IntentResult
}

type family struct {
	intent     string
	confidence float64
	patterns   []*regexp.Regexp
}

func newFamily(intent string, confidence float64, patterns ...string) family {
	f := family{intent: intent, confidence: confidence}
	for _, p := range patterns {
		f.patterns = append(f.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return f
}

var consumerFamilies = []family{
	newFamily("search_product", 0.85,
		`\b(find|search|look(ing)? for|show me|where can i (get|buy)|do you (have|sell))\b`),
	newFamily("recommend_product", 0.86,
		`\b(recommend|suggest|suggestion)`,
		`\bwhat should i (get|buy|choose)\b`,
		`\b(gift ideas?|best .+ for)\b`),
	newFamily("compare_products", 0.87,
		`\b(compare|comparison|versus|vs\.?|difference between)\b`,
		`\bwhich (is|one is) better\b`),
	newFamily("add_to_cart", 0.9,
		`\b(add|put)\b.*\b(cart|basket)\b`),
	newFamily("purchase", 0.88,
		`\b(buy|purchase) (it|this|that|them|now)\b`,
		`\bcheck ?out\b`,
		`\bplace (an |my )?order\b`),
	newFamily("cancel_order", 0.9,
		`\bcancel\b`),
	newFamily("request_refund", 0.9,
		`\b(refund|money back)\b`,
		`\breturn (my|this|the|an?)\b`),
	newFamily("write_review", 0.86,
		`\b(write|leave|post)\b.*\breview\b`,
		`\brate (the|this|my)\b`),
	newFamily("check_rewards", 0.85,
		`\b(reward|points?|coupons?|membership tier)\b`),
	newFamily("spend_analysis", 0.85,
		`\bhow much (did|have) i spen[dt]\b`,
		`\b(my )?(spending|expenses|spent)\b`),
}

var sellerFamilies = []family{
	newFamily("register_product", 0.9,
		`\b(register|list|upload|add)\b.*\bproducts?\b`,
		`\bnew listing\b`),
	newFamily("sales_analytics", 0.88,
		`\b(sales|revenue|analytics|best ?sellers?|conversion)\b`),
	newFamily("manage_orders", 0.86,
		`\b(orders?|shipping|shipment|fulfil+ment|dispatch)\b`),
	newFamily("review_insights", 0.86,
		`\b(reviews?|ratings?|feedback)\b`),
}

var (
	quantityPattern = regexp.MustCompile(`\b(\d{1,6})\b`)
	queryPattern    = regexp.MustCompile(`(?i)^(?:please\s+)?(?:can you\s+)?(?:find|search(?: for)?|look(?:ing)? for|show me|where can i (?:get|buy)|do you (?:have|sell))\s+(?:me\s+)?(?:(?:a|an|the|some)\s+)?(.+?)[\s?.!]*$`)
)

// PatternClassifier scores each intent family by how many of its patterns
// match. Families earlier in the table win ties.
type PatternClassifier struct {
	families []family
}

func NewConsumerClassifier() *PatternClassifier {
	return &PatternClassifier{families: consumerFamilies}
}

func NewSellerClassifier() *PatternClassifier {
	return &PatternClassifier{families: sellerFamilies}
}

type scored struct {
	intent     string
	confidence float64
	order      int
}

func (c *PatternClassifier) Classify(text string) models.IntentResult {
	normalized := strings.TrimSpace(text)
	matches := []scored{}
	for i, f := range c.families {
		hits := 0
		for _, p := range f.patterns {
			if p.MatchString(normalized) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := math.Min(f.confidence+boostPerMatch*float64(hits-1), maxConfidence)
		matches = append(matches, scored{intent: f.intent, confidence: confidence, order: i})
	}

	if len(matches) == 0 {
		return models.IntentResult{
			PrimaryIntent:  IntentUnknown,
			Confidence:     unknownConfidence,
			ExtractedSlots: extractSlots(normalized),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].confidence != matches[j].confidence {
			return matches[i].confidence > matches[j].confidence
		}
		return matches[i].order < matches[j].order
	})

	result := models.IntentResult{
		PrimaryIntent:  matches[0].intent,
		Confidence:     matches[0].confidence,
		ExtractedSlots: extractSlots(normalized),
	}
	for _, m := range matches[1:] {
		result.AlternativeIntents = append(result.AlternativeIntents, m.intent)
	}
	return result
}

// Intents lists the taxonomy this classifier can produce.
func (c *PatternClassifier) Intents() []string {
	out := make([]string, len(c.families))
	for i, f := range c.families {
		out[i] = f.intent
	}
	return out
}

func extractSlots(text string) map[string]interface{} {
	slots := map[string]interface{}{}
	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			slots["quantity"] = n
		}
	}
	if m := queryPattern.FindStringSubmatch(text); m != nil && m[1] != "" {
		slots["query"] = m[1]
	}
	if len(slots) == 0 {
		return nil
	}
	return slots
}
