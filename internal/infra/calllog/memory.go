package calllog

import (
	"context"
	"sync"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
)

const defaultCapacity = 500

// MemoryRepository keeps the most recent call records in a bounded slice.
type MemoryRepository struct {
	mu       sync.RWMutex
	records  []assessment.CallRecord
	capacity int
}

// NewMemoryRepository constructs a repository holding at most capacity records.
func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryRepository{capacity: capacity}
}

func (r *MemoryRepository) Append(_ context.Context, record assessment.CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if overflow := len(r.records) - r.capacity; overflow > 0 {
		r.records = append(r.records[:0:0], r.records[overflow:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]assessment.CallRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]assessment.CallRecord, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

var _ assessment.CallLogRepository = (*MemoryRepository)(nil)
