package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"shopping-agent-gateway/internal/models"
)

// TemplateSynthesizer lists result documents without calling a model.
type TemplateSynthesizer struct {
	MaxListed int
}

func (s TemplateSynthesizer) Synthesize(_ context.Context, req models.SynthesisRequest) (string, error) {
	if len(req.Documents) == 0 {
		return fmt.Sprintf("I couldn't find any %s matching that. Try a broader search.", req.Collection), nil
	}

	limit := s.MaxListed
	if limit <= 0 || limit > len(req.Documents) {
		limit = len(req.Documents)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d %s:", len(req.Documents), noun(req.Collection, len(req.Documents)))
	for _, doc := range req.Documents[:limit] {
		b.WriteString("\n- ")
		b.WriteString(label(doc))
		if price, ok := doc["price"]; ok {
			fmt.Fprintf(&b, " (%v)", price)
		}
	}
	if rest := len(req.Documents) - limit; rest > 0 {
		fmt.Fprintf(&b, "\n...and %d more.", rest)
	}
	if req.Total != nil && *req.Total > int64(len(req.Documents)) {
		fmt.Fprintf(&b, "\nShowing %d of %d.", len(req.Documents), *req.Total)
	}
	return b.String(), nil
}

func label(doc map[string]interface{}) string {
	for _, key := range []string{"name", "title", "status", "_id"} {
		if v, ok := doc[key]; ok && v != nil && fmt.Sprint(v) != "" {
			return fmt.Sprint(v)
		}
	}
	return "(unnamed)"
}

func noun(collection string, n int) string {
	if n == 1 {
		if strings.HasSuffix(collection, "ies") {
			return strings.TrimSuffix(collection, "ies") + "y"
		}
		return strings.TrimSuffix(collection, "s")
	}
	return collection
}
