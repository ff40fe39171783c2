package calllog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
)

func TestMemoryRepositoryRecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepository(3)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, repo.Append(ctx, assessment.CallRecord{ID: id, Kind: assessment.KindDietPlan, Outcome: assessment.OutcomeOK}))
	}

	all, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []uuid.UUID{ids[4], ids[3], ids[2]}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	two, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	require.Equal(t, ids[4], two[0].ID)
}

func TestMemoryRepositoryDefaultCapacity(t *testing.T) {
	repo := NewMemoryRepository(0)
	require.Equal(t, defaultCapacity, repo.capacity)

	records, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, records)
}
