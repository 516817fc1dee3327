package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	e "github.com/gartstein/consulting/internal/engagement/errors"
	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/gartstein/consulting/internal/engagement/policy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func testEngagement() *models.Engagement {
	return &models.Engagement{
		ID:                  uuid.New(),
		Client:              "Acme",
		Type:                models.TypeUpsell,
		Size:                models.SizeBasic,
		PlannedDurationDays: 15,
		Value:               decimal.NewFromInt(500),
		Status:              models.StatusInProgress,
		CreatedAt:           created,
		UpdatedAt:           created,
		Version:             1,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore(policy.DefaultDeadlinePolicy())
	ctx := context.Background()

	en := testEngagement()
	require.NoError(t, s.CreateEngagement(ctx, en))

	err := s.CreateEngagement(ctx, en)
	assert.ErrorIs(t, err, e.ErrValidation, "duplicate id is rejected")

	got, err := s.GetEngagement(ctx, en.ID)
	require.NoError(t, err)
	assert.Equal(t, *en, *got)

	// Mutating the returned copy must not leak into the store.
	got.Status = models.StatusCancelled
	again, err := s.GetEngagement(ctx, en.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, again.Status)

	_, err = s.GetEngagement(ctx, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStore_SaveEngagement(t *testing.T) {
	s := NewStore(policy.DefaultDeadlinePolicy())
	ctx := context.Background()

	en := testEngagement()
	require.NoError(t, s.CreateEngagement(ctx, en))

	stale, err := s.GetEngagement(ctx, en.ID)
	require.NoError(t, err)

	en.Status = models.StatusPaused
	en.PauseStartedAt = &created
	require.NoError(t, s.SaveEngagement(ctx, en, 1))
	assert.Equal(t, int64(2), en.Version)

	stale.Status = models.StatusCancelled
	err = s.SaveEngagement(ctx, stale, stale.Version)
	assert.ErrorIs(t, err, e.ErrConcurrentModification)

	got, err := s.GetEngagement(ctx, en.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, got.Status)
	assert.Equal(t, int64(2), got.Version)

	err = s.SaveEngagement(ctx, testEngagement(), 1)
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestStore_SaveEngagementConcurrent(t *testing.T) {
	s := NewStore(policy.DefaultDeadlinePolicy())
	ctx := context.Background()

	en := testEngagement()
	require.NoError(t, s.CreateEngagement(ctx, en))

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := en.Clone()
			if err := s.SaveEngagement(ctx, c, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded, "only one writer wins a given version")
}

func TestStore_ListEngagements(t *testing.T) {
	s := NewStore(policy.DefaultDeadlinePolicy())
	ctx := context.Background()

	consultant := uuid.New()
	finalized := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)

	a := testEngagement()
	b := testEngagement()
	b.CreatedAt = created.Add(time.Minute)
	b.ConsultantID = &consultant
	b.Status = models.StatusCompleted
	b.FinalizedAt = &finalized

	require.NoError(t, s.CreateEngagement(ctx, b))
	require.NoError(t, s.CreateEngagement(ctx, a))

	all, err := s.ListEngagements(ctx, models.EngagementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	completed, err := s.ListEngagements(ctx, models.EngagementFilter{Status: models.StatusCompleted, ConsultantID: &consultant})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, b.ID, completed[0].ID)
}

func TestStore_Members(t *testing.T) {
	s := NewStore(policy.DefaultDeadlinePolicy())
	ctx := context.Background()

	bruno := &models.Member{ID: uuid.New(), Name: "bruno"}
	ana := &models.Member{ID: uuid.New(), Name: "Ana"}
	require.NoError(t, s.CreateMember(ctx, bruno))
	require.NoError(t, s.CreateMember(ctx, ana))
	assert.ErrorIs(t, s.CreateMember(ctx, ana), e.ErrValidation)

	got, err := s.GetMember(ctx, bruno.ID)
	require.NoError(t, err)
	assert.Equal(t, "bruno", got.Name)

	_, err = s.GetMember(ctx, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)

	list, err := s.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Equal(t, "bruno", list[1].Name)
}

func TestStore_LoadSizeDeadlinePolicy(t *testing.T) {
	p := policy.DefaultDeadlinePolicy()
	p.Limits[models.SizeBasic] = 12
	s := NewStore(p)

	got, err := s.LoadSizeDeadlinePolicy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, got.LimitFor(models.TypeConsultoria, models.SizeBasic))
	assert.NoError(t, s.Close())
}
