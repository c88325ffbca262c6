package metrics

import (
	"context"
	"time"
)

// NoopCollector discards everything.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (NoopCollector) RecordGeneration(context.Context, string, string, time.Duration) {}

func (NoopCollector) RecordTokens(context.Context, int, int) {}

func (NoopCollector) RecordError(context.Context, string, string) {}

func (NoopCollector) SetStorageCount(context.Context, string, int64) {}
