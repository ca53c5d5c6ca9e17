package devicetrust

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemDeviceRepository implements DeviceRepository using an in-memory map.
// A single mutex covers every operation, which makes the count-then-insert
// and read-modify-write sequences trivially atomic.
type InMemDeviceRepository struct {
	devices map[uuid.UUID]*DeviceFingerprint
	mu      sync.Mutex
}

// NewInMemDeviceRepository creates a new in-memory device repository
func NewInMemDeviceRepository() *InMemDeviceRepository {
	return &InMemDeviceRepository{
		devices: make(map[uuid.UUID]*DeviceFingerprint),
	}
}

// CreateDevice inserts a device after checking the active-device ceiling
// under the repository lock.
func (r *InMemDeviceRepository) CreateDevice(ctx context.Context, device DeviceFingerprint, maxActive int) (DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, d := range r.devices {
		if d.UserID == device.UserID && d.IsActive {
			count++
		}
	}
	if count >= maxActive {
		slog.Debug("active device limit reached", "userID", device.UserID, "activeCount", count, "maxActive", maxActive)
		return DeviceFingerprint{}, DeviceLimitError{ActiveCount: count}
	}

	if device.DeviceID == uuid.Nil {
		device.DeviceID = uuid.New()
	}
	stored := device
	r.devices[stored.DeviceID] = &stored
	slog.Debug("device created", "deviceID", stored.DeviceID, "userID", stored.UserID)
	return copyDevice(&stored), nil
}

// GetDeviceByID retrieves a device by its ID
func (r *InMemDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return DeviceFingerprint{}, ErrDeviceNotFound
	}
	return copyDevice(device), nil
}

// FindActiveDevicesByUser returns the user's active devices
func (r *InMemDeviceRepository) FindActiveDevicesByUser(ctx context.Context, userID uuid.UUID) ([]DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var devices []DeviceFingerprint
	for _, d := range r.devices {
		if d.UserID == userID && d.IsActive {
			devices = append(devices, copyDevice(d))
		}
	}
	return devices, nil
}

// CountActiveDevices counts the user's active devices
func (r *InMemDeviceRepository) CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, d := range r.devices {
		if d.UserID == userID && d.IsActive {
			count++
		}
	}
	return count, nil
}

// AdjustTrustScore applies a clamped delta to the device's trust score under
// the repository lock and returns the new score.
func (r *InMemDeviceRepository) AdjustTrustScore(ctx context.Context, deviceID uuid.UUID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return 0, ErrDeviceNotFound
	}
	device.TrustScore = ClampTrustScore(device.TrustScore + delta)
	slog.Debug("trust score adjusted", "deviceID", deviceID, "delta", delta, "trustScore", device.TrustScore)
	return device.TrustScore, nil
}

// RecordVerification appends a history entry and optionally bumps LastVerified
func (r *InMemDeviceRepository) RecordVerification(ctx context.Context, deviceID uuid.UUID, entry VerificationEntry, updateLastVerified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return ErrDeviceNotFound
	}
	device.VerificationHistory = append(device.VerificationHistory, entry)
	if updateLastVerified {
		device.LastVerified = entry.Timestamp
	}
	return nil
}

// DeactivateDevice marks a device inactive, keeping the record for audit
func (r *InMemDeviceRepository) DeactivateDevice(ctx context.Context, deviceID uuid.UUID, deactivatedBy uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, exists := r.devices[deviceID]
	if !exists {
		return ErrDeviceNotFound
	}
	device.IsActive = false
	actor := deactivatedBy
	device.DeactivatedBy = &actor
	slog.Debug("device deactivated", "deviceID", deviceID, "deactivatedBy", deactivatedBy)
	return nil
}

// FindStaleActiveDevices returns active devices not verified since the cutoff
func (r *InMemDeviceRepository) FindStaleActiveDevices(ctx context.Context, cutoff time.Time) ([]DeviceFingerprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []DeviceFingerprint
	for _, d := range r.devices {
		if d.IsActive && d.LastVerified.Before(cutoff) {
			stale = append(stale, copyDevice(d))
		}
	}
	return stale, nil
}

// GetStats aggregates counts by activity and trust band
func (r *InMemDeviceRepository) GetStats(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	for _, d := range r.devices {
		if !d.IsActive {
			stats.InactiveDevices++
			continue
		}
		stats.ActiveDevices++
		switch TrustBand(d.TrustScore) {
		case "high":
			stats.HighTrust++
		case "medium":
			stats.MediumTrust++
		default:
			stats.LowTrust++
		}
		if d.RegisteredAt.After(dayAgo) {
			stats.RegisteredLastDay++
		}
	}
	return stats, nil
}

// WithTx returns the repository itself since the in-memory implementation
// does not support transactions.
func (r *InMemDeviceRepository) WithTx(tx interface{}) DeviceRepository {
	return r
}

// copyDevice returns a deep-enough copy so callers never alias the stored
// history slice.
func copyDevice(d *DeviceFingerprint) DeviceFingerprint {
	out := *d
	if d.VerificationHistory != nil {
		out.VerificationHistory = make([]VerificationEntry, len(d.VerificationHistory))
		copy(out.VerificationHistory, d.VerificationHistory)
	}
	return out
}
