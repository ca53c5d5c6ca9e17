package devicetrust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both a pgx pool and a pgx transaction, so the same
// repository code runs inside or outside an enclosing transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// txBeginner is the subset of pool/tx behavior needed to open the
// registration transaction. Both pgxpool.Pool and pgx.Tx implement it.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresDeviceRepository implements DeviceRepository on PostgreSQL.
// Characteristics snapshots are sealed with the codec before they are written.
type PostgresDeviceRepository struct {
	db    DBTX
	codec *CharacteristicsCodec
}

// NewPostgresDeviceRepository creates a new PostgreSQL device repository
func NewPostgresDeviceRepository(db DBTX, codec *CharacteristicsCodec) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{
		db:    db,
		codec: codec,
	}
}

const deviceColumns = `device_id, user_id, fingerprint_hash, characteristics, device_name,
	trust_score, is_active, registered_at, last_verified, verification_history,
	approved_by, deactivated_by`

// CreateDevice runs the count-then-insert sequence inside a transaction that
// holds a per-user advisory lock, so concurrent registrations for the same
// user serialize and the ceiling cannot be overshot.
func (r *PostgresDeviceRepository) CreateDevice(ctx context.Context, device DeviceFingerprint, maxActive int) (DeviceFingerprint, error) {
	beginner, ok := r.db.(txBeginner)
	if !ok {
		return DeviceFingerprint{}, fmt.Errorf("device creation requires a transaction-capable connection")
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialization point for this user's registrations, released at commit.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		device.UserID.String()); err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to acquire registration lock: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM device_fingerprints WHERE user_id = $1 AND is_active`,
		device.UserID).Scan(&count)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to count active devices: %w", err)
	}
	if count >= maxActive {
		return DeviceFingerprint{}, DeviceLimitError{ActiveCount: count}
	}

	if device.DeviceID == uuid.Nil {
		device.DeviceID = uuid.New()
	}
	sealed, err := r.codec.Seal(device.Characteristics)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to seal characteristics: %w", err)
	}
	history, err := json.Marshal(device.VerificationHistory)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to marshal verification history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO device_fingerprints (`+deviceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		device.DeviceID, device.UserID, device.FingerprintHash, sealed, device.DeviceName,
		device.TrustScore, device.IsActive, device.RegisteredAt, device.LastVerified, history,
		device.ApprovedBy, device.DeactivatedBy)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to insert device: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to commit registration: %w", err)
	}

	slog.Debug("device created", "deviceID", device.DeviceID, "userID", device.UserID)
	return device, nil
}

// GetDeviceByID retrieves a device by its ID
func (r *PostgresDeviceRepository) GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (DeviceFingerprint, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM device_fingerprints WHERE device_id = $1`,
		deviceID)
	return r.scanDevice(row)
}

// FindActiveDevicesByUser returns the user's active devices
func (r *PostgresDeviceRepository) FindActiveDevicesByUser(ctx context.Context, userID uuid.UUID) ([]DeviceFingerprint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+deviceColumns+` FROM device_fingerprints
		 WHERE user_id = $1 AND is_active
		 ORDER BY registered_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices by user: %w", err)
	}
	defer rows.Close()

	var devices []DeviceFingerprint
	for rows.Next() {
		device, err := r.scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// CountActiveDevices counts the user's active devices
func (r *PostgresDeviceRepository) CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM device_fingerprints WHERE user_id = $1 AND is_active`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active devices: %w", err)
	}
	return count, nil
}

// AdjustTrustScore applies the clamped delta in a single UPDATE, so two
// concurrent adjustments against the same device never lose an update.
func (r *PostgresDeviceRepository) AdjustTrustScore(ctx context.Context, deviceID uuid.UUID, delta int) (int, error) {
	var score int
	err := r.db.QueryRow(ctx,
		`UPDATE device_fingerprints
		 SET trust_score = LEAST($3, GREATEST($2, trust_score + $4))
		 WHERE device_id = $1
		 RETURNING trust_score`,
		deviceID, MinTrustScore, MaxTrustScore, delta).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDeviceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust trust score: %w", err)
	}
	return score, nil
}

// RecordVerification appends a history entry and optionally bumps LastVerified
func (r *PostgresDeviceRepository) RecordVerification(ctx context.Context, deviceID uuid.UUID, entry VerificationEntry, updateLastVerified bool) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal verification entry: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE device_fingerprints
		 SET verification_history = COALESCE(verification_history, '[]'::jsonb) || $2::jsonb,
		     last_verified = CASE WHEN $3 THEN $4 ELSE last_verified END
		 WHERE device_id = $1`,
		deviceID, payload, updateLastVerified, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeactivateDevice marks a device inactive, keeping the record for audit
func (r *PostgresDeviceRepository) DeactivateDevice(ctx context.Context, deviceID uuid.UUID, deactivatedBy uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE device_fingerprints
		 SET is_active = false, deactivated_by = $2
		 WHERE device_id = $1`,
		deviceID, deactivatedBy)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// FindStaleActiveDevices returns active devices not verified since the cutoff
func (r *PostgresDeviceRepository) FindStaleActiveDevices(ctx context.Context, cutoff time.Time) ([]DeviceFingerprint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+deviceColumns+` FROM device_fingerprints
		 WHERE is_active AND last_verified < $1`,
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale devices: %w", err)
	}
	defer rows.Close()

	var devices []DeviceFingerprint
	for rows.Next() {
		device, err := r.scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

// GetStats aggregates counts by activity and trust band
func (r *PostgresDeviceRepository) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			COUNT(*) FILTER (WHERE is_active AND trust_score >= $1),
			COUNT(*) FILTER (WHERE is_active AND trust_score >= $2 AND trust_score < $1),
			COUNT(*) FILTER (WHERE is_active AND trust_score < $2),
			COUNT(*) FILTER (WHERE is_active AND registered_at > NOW() - INTERVAL '24 hours')
		 FROM device_fingerprints`,
		HighTrustBandFloor, MediumTrustBandFloor).Scan(
		&stats.ActiveDevices, &stats.InactiveDevices,
		&stats.HighTrust, &stats.MediumTrust, &stats.LowTrust,
		&stats.RegisteredLastDay)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to aggregate device stats: %w", err)
	}
	return stats, nil
}

// WithTx returns a repository bound to the given transaction
func (r *PostgresDeviceRepository) WithTx(tx interface{}) DeviceRepository {
	if dbtx, ok := tx.(DBTX); ok {
		return &PostgresDeviceRepository{db: dbtx, codec: r.codec}
	}
	return r
}

func (r *PostgresDeviceRepository) scanDevice(row pgx.Row) (DeviceFingerprint, error) {
	var device DeviceFingerprint
	var sealed []byte
	var history []byte
	err := row.Scan(&device.DeviceID, &device.UserID, &device.FingerprintHash, &sealed,
		&device.DeviceName, &device.TrustScore, &device.IsActive,
		&device.RegisteredAt, &device.LastVerified, &history,
		&device.ApprovedBy, &device.DeactivatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return DeviceFingerprint{}, ErrDeviceNotFound
	}
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("failed to scan device row: %w", err)
	}

	device.Characteristics, err = r.codec.Open(sealed)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("malformed stored characteristics for device %s: %w", device.DeviceID, err)
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &device.VerificationHistory); err != nil {
			return DeviceFingerprint{}, fmt.Errorf("malformed verification history for device %s: %w", device.DeviceID, err)
		}
	}
	return device, nil
}
