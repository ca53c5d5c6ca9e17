package devicetrust

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeviceRepository defines the storage operations the trust engine needs: get
// by ID, query by user, insert, and field-level updates. Hard deletes are not
// supported; deactivation is a soft delete.
//
// Two operations carry explicit atomicity contracts:
//
//   - CreateDevice counts the user's active devices and inserts as one atomic
//     unit, so two concurrent registrations can never both slip under the
//     ceiling.
//   - AdjustTrustScore is a single atomic read-modify-write with clamping, so
//     concurrent adjustments to the same device never lose an update.
type DeviceRepository interface {
	// CreateDevice inserts the device if the user currently holds fewer than
	// maxActive active devices. Returns DeviceLimitError otherwise.
	CreateDevice(ctx context.Context, device DeviceFingerprint, maxActive int) (DeviceFingerprint, error)

	GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (DeviceFingerprint, error)
	FindActiveDevicesByUser(ctx context.Context, userID uuid.UUID) ([]DeviceFingerprint, error)
	CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error)

	// AdjustTrustScore atomically adds delta to the device's trust score,
	// clamps the result into [MinTrustScore, MaxTrustScore] and returns the
	// new score. This is the only write path for the trust score.
	AdjustTrustScore(ctx context.Context, deviceID uuid.UUID, delta int) (int, error)

	// RecordVerification appends an entry to the device's verification
	// history and, when updateLastVerified is set, bumps LastVerified to the
	// entry's timestamp.
	RecordVerification(ctx context.Context, deviceID uuid.UUID, entry VerificationEntry, updateLastVerified bool) error

	DeactivateDevice(ctx context.Context, deviceID uuid.UUID, deactivatedBy uuid.UUID) error

	// FindStaleActiveDevices returns active devices whose last verification
	// is older than the cutoff, for retention sweeps.
	FindStaleActiveDevices(ctx context.Context, cutoff time.Time) ([]DeviceFingerprint, error)

	GetStats(ctx context.Context) (Stats, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx interface{}) DeviceRepository
}
