package policygate

import "regexp"

// Policy identifiers reported in SafetyVerdict.ViolatedPolicies.
const (
	PolicyPII           = "PII_PROTECTION"
	PolicyDarkPatterns  = "NO_DARK_PATTERNS"
	PolicyBulkOrder     = "BULK_ORDER_LIMIT"
	PolicyAgeRestricted = "AGE_RESTRICTED"
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var piiPatterns = compileAll(
	`\b(ssn|social security( number)?|national id( number)?|resident registration( number)?|passport number)\b`,
	`\b(card number|credit card number|cvv|cvc|security code|account number|bank account|password|passcode|pin number)\b`,
	// resident registration number: YYMMDD-GNNNNNN
	`\b\d{6}-?[1-4]\d{6}\b`,
	// payment card digit runs
	`\b(?:\d[ -]?){13,16}\b`,
)

var urgencyPatterns = compileAll(
	`\b(hurry|act now|last chance|limited time( only)?|selling fast|before it'?s gone|don'?t miss out)\b`,
	`\bonly \d+ left\b`,
	`\b(ends|expires?) (today|tonight|soon|in \d+ (minutes?|hours?))\b`,
)

var ageRestrictedPatterns = compileAll(
	`\b(alcohol|liquor|beer|wine|soju|whiske?y|vodka|rum|gin|sake)\b`,
	`\b(cigarettes?|cigars?|tobacco|vape|vaping|e-cigarettes?|nicotine)\b`,
)

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
