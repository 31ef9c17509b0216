package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloorPlanQuery_GetUsesCache(t *testing.T) {
	f := newEngineFixture(t)
	fp := f.seed(f.admin, room("Room 1", "4", 0, 0))
	query := NewFloorPlanQueryUseCase(f.store, f.cache, time.Hour, time.Hour, testLogger())
	ctx := context.Background()

	first, err := query.Get(ctx, f.standard, fp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Misses)

	f.store.GetErr = errors.New("database unavailable")
	second, err := query.Get(ctx, f.standard, fp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Hits)
	assert.Equal(t, first.Rooms, second.Rooms)
	assert.True(t, first.LastModifiedAt.Equal(second.LastModifiedAt))
}

func TestFloorPlanQuery_TenantIsolation(t *testing.T) {
	f := newEngineFixture(t)
	fp := f.seed(f.admin)
	query := NewFloorPlanQueryUseCase(f.store, f.cache, time.Hour, time.Hour, testLogger())
	ctx := context.Background()
	outsider := domain.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: domain.RoleAdmin}

	_, err := query.Get(ctx, outsider, fp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = query.Get(ctx, f.admin, fp.ID)
	require.NoError(t, err)
	_, err = query.Get(ctx, outsider, fp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "a cached plan is not served across tenants")

	plans, err := query.List(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, plans)

	_, err = query.Versions(ctx, outsider, fp.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFloorPlanQuery_ListAndVersions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	for _, name := range []string{"West", "East"} {
		_, err := f.engine.Create(ctx, f.admin, domain.CreateFloorPlanInput{Name: name, Width: 10, Height: 10})
		require.NoError(t, err)
	}
	query := NewFloorPlanQueryUseCase(f.store, f.cache, time.Hour, time.Hour, testLogger())

	plans, err := query.List(ctx, f.standard)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "East", plans[0].Name)
	assert.True(t, f.cache.Has(domain.FloorPlanListCacheKey(f.standard.TenantID)))

	east := plans[0]
	_, err = f.engine.Update(ctx, f.admin, domain.EditRequest{FloorPlanID: east.ID, ClientLastModifiedAt: east.LastModifiedAt})
	require.NoError(t, err)

	versions, err := query.Versions(ctx, f.standard, east.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].Timestamp.After(versions[1].Timestamp), "newest first")
}
