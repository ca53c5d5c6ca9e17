package devicetrust

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/telemetry"
)

// TrustLedger owns trust-score mutation. Every change goes through Adjust,
// which maps a reason onto its fixed delta and delegates to the repository's
// atomic read-modify-write, so concurrent adjustments never lose updates.
//
// The ledger does not decide which reason applies; that is the validation
// decision logic's job.
type TrustLedger struct {
	repository DeviceRepository
}

// NewTrustLedger creates a trust ledger backed by the repository
func NewTrustLedger(repository DeviceRepository) *TrustLedger {
	return &TrustLedger{repository: repository}
}

// Adjust applies the delta for the given reason and returns the new,
// clamped trust score.
func (l *TrustLedger) Adjust(ctx context.Context, deviceID uuid.UUID, reason AdjustmentReason) (int, error) {
	delta := DeltaFor(reason)
	score, err := l.repository.AdjustTrustScore(ctx, deviceID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust trust score for %s: %w", reason, err)
	}

	telemetry.TrustAdjustments.WithLabelValues(string(reason)).Inc()
	slog.Debug("trust score adjusted", "deviceID", deviceID, "reason", reason, "delta", delta, "trustScore", score)
	return score, nil
}
