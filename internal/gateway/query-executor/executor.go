// Package queryexecutor runs sanitized read queries against the document
// store and masks what comes back.
package queryexecutor

import (
	"context"
	"time"

	"shopping-agent-gateway/internal/common/database"
	apperrors "shopping-agent-gateway/internal/common/errors"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/common/metrics"
	querygate "shopping-agent-gateway/internal/gateway/query-gate"
)

const Component = "query-executor"

// Store is the document store boundary.
type Store interface {
	Find(ctx context.Context, collection string, filter map[string]interface{}, opts database.FindOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, collection string, filter map[string]interface{}) (int64, error)
}

type Executor struct {
	config *Config
	store  Store
	masker *Masker
	logger logger.Logger
}

func NewExecutor(config *Config, store Store, log logger.Logger) *Executor {
	if config == nil {
		config = LoadConfig()
	}
	return &Executor{
		config: config,
		store:  store,
		masker: NewMasker(),
		logger: logger.ForComponent(log, Component),
	}
}

// Execute runs q. Only the query gate can produce q, so the filter is
// already scoped to the caller and capped.
func (e *Executor) Execute(ctx context.Context, q *querygate.Sanitized) (*Output, error) {
	if q == nil {
		return nil, apperrors.NewValidationError("query", "no sanitized query to execute")
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	collection := q.Collection()
	filter := q.Filter()
	opts := database.FindOptions{
		Projection: q.Projection(),
		Skip:       int64(q.Skip()),
		Limit:      int64(q.Limit()),
	}
	for _, key := range q.Sort() {
		opts.Sort = append(opts.Sort, database.SortField{Field: key.Field, Direction: key.Direction})
	}

	start := time.Now()
	defer func() {
		metrics.QueryExecutionDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}()

	e.logger.Info("executing query", map[string]interface{}{
		"collection": collection,
		"purpose":    q.Purpose(),
		"filter":     e.masker.Mask(collection, filter),
		"skip":       opts.Skip,
		"limit":      opts.Limit,
	})

	docs, err := e.store.Find(ctx, collection, filter, opts)
	if err != nil {
		e.logger.WithError(err).Error("query execution failed", map[string]interface{}{
			"collection": collection,
			"purpose":    q.Purpose(),
		})
		return nil, apperrors.NewExecutionFailureError(collection, q.Purpose(), err)
	}

	output := &Output{
		Collection: collection,
		Purpose:    q.Purpose(),
		Documents:  e.masker.MaskAll(collection, docs),
		Returned:   len(docs),
	}

	// Totals cost a second round trip, so only paginating callers pay it.
	if q.LimitSupplied() {
		total, err := e.store.Count(ctx, collection, filter)
		if err != nil {
			e.logger.WithError(err).Warn("count failed, total omitted", map[string]interface{}{
				"collection": collection,
			})
		} else {
			output.Total = &total
		}
	}

	e.logger.Debug("query executed", map[string]interface{}{
		"collection": collection,
		"returned":   output.Returned,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return output, nil
}

// Mask exposes the row masking applied to results, for callers that log
// documents of their own.
func (e *Executor) Mask(collection string, doc map[string]interface{}) map[string]interface{} {
	return e.masker.Mask(collection, doc)
}
