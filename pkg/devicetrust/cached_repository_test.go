package devicetrust

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedDeviceRepository_ServesFromCacheInsideTTL(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemDeviceRepository()
	cached := NewCachedDeviceRepository(inner, time.Minute)

	created, err := cached.CreateDevice(ctx, newTestDevice(uuid.New()), MaxActiveDevices)
	require.NoError(t, err)

	first, err := cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)

	// Change the store behind the cache's back; inside the TTL the cached
	// profile is returned as-is.
	_, err = inner.AdjustTrustScore(ctx, created.DeviceID, -10)
	require.NoError(t, err)

	stale, err := cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, first.TrustScore, stale.TrustScore)
}

func TestCachedDeviceRepository_ExpiryFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemDeviceRepository()
	cached := NewCachedDeviceRepository(inner, time.Millisecond)

	created, err := cached.CreateDevice(ctx, newTestDevice(uuid.New()), MaxActiveDevices)
	require.NoError(t, err)

	_, err = cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)

	_, err = inner.AdjustTrustScore(ctx, created.DeviceID, -10)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	refreshed, err := cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, InitialTrustScore-10, refreshed.TrustScore)
}

func TestCachedDeviceRepository_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemDeviceRepository()
	cached := NewCachedDeviceRepository(inner, time.Minute)

	created, err := cached.CreateDevice(ctx, newTestDevice(uuid.New()), MaxActiveDevices)
	require.NoError(t, err)

	_, err = cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)

	// A write through the cached repository invalidates the entry, so the
	// next read sees the new state immediately.
	score, err := cached.AdjustTrustScore(ctx, created.DeviceID, -10)
	require.NoError(t, err)
	assert.Equal(t, InitialTrustScore-10, score)

	got, err := cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, InitialTrustScore-10, got.TrustScore)

	require.NoError(t, cached.DeactivateDevice(ctx, created.DeviceID, uuid.New()))
	got, err = cached.GetDeviceByID(ctx, created.DeviceID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestCachedDeviceRepository_MissesPassThrough(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedDeviceRepository(NewInMemDeviceRepository(), time.Minute)

	_, err := cached.GetDeviceByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestCachedDeviceRepository_CountNeverCached(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemDeviceRepository()
	cached := NewCachedDeviceRepository(inner, time.Minute)
	userID := uuid.New()

	count, err := cached.CountActiveDevices(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = inner.CreateDevice(ctx, newTestDevice(userID), MaxActiveDevices)
	require.NoError(t, err)

	count, err = cached.CountActiveDevices(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
