package devicetrust

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL bounds how stale a cached device profile may be.
const DefaultCacheTTL = 30 * time.Second

// defaultCacheMaxEntries bounds cache memory; when full, expired entries are
// purged and new entries are simply not cached.
const defaultCacheMaxEntries = 10000

type cacheEntry struct {
	device    DeviceFingerprint
	expiresAt time.Time
}

// CachedDeviceRepository decorates a DeviceRepository with a bounded TTL read
// cache for device profiles. The underlying store stays the source of truth:
// every write goes straight through and invalidates the cached entry, and
// trust-score reads after an adjustment reflect the store's returned value.
type CachedDeviceRepository struct {
	inner      DeviceRepository
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[uuid.UUID]cacheEntry
}

// NewCachedDeviceRepository wraps a repository with a TTL read cache
func NewCachedDeviceRepository(inner DeviceRepository, ttl time.Duration) *CachedDeviceRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedDeviceRepository{
		inner:      inner,
		ttl:        ttl,
		maxEntries: defaultCacheMaxEntries,
		entries:    make(map[uuid.UUID]cacheEntry),
	}
}

// GetDeviceByID serves from cache inside the TTL, falling back to the store
func (r *CachedDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (DeviceFingerprint, error) {
	r.mu.Lock()
	if entry, ok := r.entries[deviceID]; ok && time.Now().Before(entry.expiresAt) {
		device := entry.device
		r.mu.Unlock()
		return device, nil
	}
	r.mu.Unlock()

	device, err := r.inner.GetDeviceByID(ctx, deviceID)
	if err != nil {
		return DeviceFingerprint{}, err
	}
	r.store(deviceID, device)
	return device, nil
}

func (r *CachedDeviceRepository) store(deviceID uuid.UUID, device DeviceFingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.maxEntries {
		now := time.Now()
		for id, entry := range r.entries {
			if now.After(entry.expiresAt) {
				delete(r.entries, id)
			}
		}
		if len(r.entries) >= r.maxEntries {
			return
		}
	}
	r.entries[deviceID] = cacheEntry{device: device, expiresAt: time.Now().Add(r.ttl)}
}

func (r *CachedDeviceRepository) invalidate(deviceID uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, deviceID)
	r.mu.Unlock()
}

// CreateDevice passes through to the store
func (r *CachedDeviceRepository) CreateDevice(ctx context.Context, device DeviceFingerprint, maxActive int) (DeviceFingerprint, error) {
	return r.inner.CreateDevice(ctx, device, maxActive)
}

// FindActiveDevicesByUser passes through; per-user listings are not cached
func (r *CachedDeviceRepository) FindActiveDevicesByUser(ctx context.Context, userID uuid.UUID) ([]DeviceFingerprint, error) {
	return r.inner.FindActiveDevicesByUser(ctx, userID)
}

// CountActiveDevices passes through; the count feeds the registration policy
// and must always come from a consistent store snapshot.
func (r *CachedDeviceRepository) CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.inner.CountActiveDevices(ctx, userID)
}

// AdjustTrustScore writes through and invalidates the cached profile
func (r *CachedDeviceRepository) AdjustTrustScore(ctx context.Context, deviceID uuid.UUID, delta int) (int, error) {
	score, err := r.inner.AdjustTrustScore(ctx, deviceID, delta)
	if err == nil {
		r.invalidate(deviceID)
	}
	return score, err
}

// RecordVerification writes through and invalidates the cached profile
func (r *CachedDeviceRepository) RecordVerification(ctx context.Context, deviceID uuid.UUID, entry VerificationEntry, updateLastVerified bool) error {
	err := r.inner.RecordVerification(ctx, deviceID, entry, updateLastVerified)
	if err == nil {
		r.invalidate(deviceID)
	}
	return err
}

// DeactivateDevice writes through and invalidates the cached profile
func (r *CachedDeviceRepository) DeactivateDevice(ctx context.Context, deviceID uuid.UUID, deactivatedBy uuid.UUID) error {
	err := r.inner.DeactivateDevice(ctx, deviceID, deactivatedBy)
	if err == nil {
		r.invalidate(deviceID)
	}
	return err
}

// FindStaleActiveDevices passes through to the store
func (r *CachedDeviceRepository) FindStaleActiveDevices(ctx context.Context, cutoff time.Time) ([]DeviceFingerprint, error) {
	return r.inner.FindStaleActiveDevices(ctx, cutoff)
}

// GetStats passes through to the store
func (r *CachedDeviceRepository) GetStats(ctx context.Context) (Stats, error) {
	return r.inner.GetStats(ctx)
}

// WithTx returns the inner repository bound to the transaction; transactional
// work must never be served from cache.
func (r *CachedDeviceRepository) WithTx(tx interface{}) DeviceRepository {
	return r.inner.WithTx(tx)
}
