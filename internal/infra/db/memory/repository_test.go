package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
)

func TestInvestigationRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewInvestigationRepository(2)
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []domain.ID{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, &domain.Investigation{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute), Status: domain.StatusSuccess}))
	}

	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound, "oldest entry is evicted")

	got, err := repo.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, got.Status)

	latest, err := repo.Latest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, domain.ID("c"), latest[0].ID)
	assert.Equal(t, domain.ID("b"), latest[1].ID)

	latest, err = repo.Latest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestArtifactErrorRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewArtifactErrorRepository(0)
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, &artifacterrors.ArtifactError{InvestigationID: "x", FileName: "a.png", Phase: "parse", Message: "unsupported"}))
	e := &artifacterrors.ArtifactError{InvestigationID: "x", FileName: "b.log", Phase: "empty", Message: "no events"}
	require.NoError(t, repo.Save(ctx, e))
	assert.Equal(t, int64(2), e.ID)

	list, err := repo.ListByInvestigation(ctx, "x", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.png", list[0].FileName)
	assert.False(t, list[1].CreatedAt.IsZero())

	list, err = repo.ListByInvestigation(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
