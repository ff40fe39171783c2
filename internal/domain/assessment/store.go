package assessment

import (
	"context"
	"time"
)

// GenerationCache stores generated text keyed by prompt fingerprint.
type GenerationCache interface {
	Get(ctx context.Context, key string) (Generation, bool, error)
	Set(ctx context.Context, key string, gen Generation, ttl time.Duration) error
}

// CallLogRepository records upstream generation calls.
type CallLogRepository interface {
	Append(ctx context.Context, record CallRecord) error
	Recent(ctx context.Context, limit int) ([]CallRecord, error)
}
