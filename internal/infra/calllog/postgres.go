package calllog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
)

const maxRecentLimit = 500

// PostgresRepository stores call records in the llm_call_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Append(ctx context.Context, record assessment.CallRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO llm_call_logs (id, kind, provider, model, outcome, latency_ms, prompt_tokens, completion_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, string(record.Kind), record.Provider, record.Model, record.Outcome, record.LatencyMs, record.PromptTokens, record.CompletionTokens, record.CreatedAt)
	return err
}

func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]assessment.CallRecord, error) {
	if limit <= 0 || limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, provider, model, outcome, latency_ms, prompt_tokens, completion_tokens, created_at
		FROM llm_call_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []assessment.CallRecord
	for rows.Next() {
		var (
			record assessment.CallRecord
			kind   string
		)
		if err := rows.Scan(&record.ID, &kind, &record.Provider, &record.Model, &record.Outcome, &record.LatencyMs, &record.PromptTokens, &record.CompletionTokens, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.Kind = assessment.PromptKind(kind)
		records = append(records, record)
	}
	return records, rows.Err()
}

var _ assessment.CallLogRepository = (*PostgresRepository)(nil)
