// Package metrics records inkwell operations for Prometheus.
package metrics

import (
	"context"
	"time"
)

// Collector is implemented by the Prometheus collector and the no-op collector.
type Collector interface {
	RecordGeneration(ctx context.Context, style string, status string, duration time.Duration)
	RecordTokens(ctx context.Context, prompt int, completion int)
	RecordError(ctx context.Context, operation string, errorType string)
	SetStorageCount(ctx context.Context, kind string, count int64)
}
