package devicetrust

import (
	"time"

	"github.com/google/uuid"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/fingerprint"
)

// Validation thresholds. Similarity at or above AutoApproveThreshold approves
// the attempt outright, the band [AdditionalVerificationThreshold,
// AutoApproveThreshold) requires step-up verification and anything below is
// denied. These are policy constants, not runtime configuration.
const (
	AutoApproveThreshold            = 95.0
	AdditionalVerificationThreshold = 85.0
)

// Trust score bounds and adjustment deltas. All adjustments clamp the
// resulting score into [MinTrustScore, MaxTrustScore].
const (
	MinTrustScore     = 0
	MaxTrustScore     = 100
	InitialTrustScore = 100
)

// AdjustmentReason names the cause of a trust-score change. The ledger maps
// each reason to its fixed delta.
type AdjustmentReason string

const (
	ReasonSuccessfulValidation AdjustmentReason = "successful_validation"
	ReasonFailedValidation     AdjustmentReason = "failed_validation"
	ReasonAnomalyDetected      AdjustmentReason = "anomaly_detected"
	ReasonSecurityIncident     AdjustmentReason = "security_incident"
)

// trustDeltas is the fixed adjustment table.
var trustDeltas = map[AdjustmentReason]int{
	ReasonSuccessfulValidation: 5,
	ReasonFailedValidation:     -10,
	ReasonAnomalyDetected:      -15,
	ReasonSecurityIncident:     -25,
}

// DeltaFor returns the trust-score delta for a reason. Unknown reasons map to
// zero so a bad caller cannot move the score.
func DeltaFor(reason AdjustmentReason) int {
	return trustDeltas[reason]
}

// Registration limits. A user may hold at most MaxActiveDevices active
// devices without elevated proof; a fresh MFA proof raises the ceiling to
// MaxActiveDevicesWithMfa, which is absolute.
const (
	MaxActiveDevices        = 3
	MaxActiveDevicesWithMfa = 5
)

// Decision is the terminal state of a validation attempt.
type Decision string

const (
	DecisionAutoApproved   Decision = "AUTO_APPROVED"
	DecisionStepUpRequired Decision = "STEP_UP_REQUIRED"
	DecisionDenied         Decision = "DENIED"
)

// Deny reasons carried on a ValidationResult when Decision is DecisionDenied.
const (
	DenyReasonDeviceNotFound    = "device_not_found"
	DenyReasonOwnershipMismatch = "ownership_mismatch"
	DenyReasonDeviceInactive    = "device_inactive"
	DenyReasonLowSimilarity     = "low_similarity"
)

// Verification history results.
const (
	VerificationResultSuccess = "success"
	VerificationResultFailed  = "failed"
)

// VerificationEntry is one element of a device's append-only verification history.
type VerificationEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Similarity float64   `json:"similarity"`
	Result     string    `json:"result"`
}

// DeviceFingerprint is the durable record for one registered device.
//
// TrustScore is only ever changed through the repository's atomic adjustment,
// and the record is never hard-deleted here: deactivation is a soft delete and
// physical removal belongs to an external retention job.
type DeviceFingerprint struct {
	DeviceID            uuid.UUID                   `json:"device_id"`
	UserID              uuid.UUID                   `json:"user_id"`
	FingerprintHash     string                      `json:"fingerprint_hash"`
	Characteristics     fingerprint.Characteristics `json:"characteristics"`
	DeviceName          string                      `json:"device_name,omitempty"`
	TrustScore          int                         `json:"trust_score"`
	IsActive            bool                        `json:"is_active"`
	RegisteredAt        time.Time                   `json:"registered_at"`
	LastVerified        time.Time                   `json:"last_verified"`
	VerificationHistory []VerificationEntry         `json:"verification_history,omitempty"`
	ApprovedBy          *uuid.UUID                  `json:"approved_by,omitempty"`
	DeactivatedBy       *uuid.UUID                  `json:"deactivated_by,omitempty"`
}

// ValidationResult is the outcome of one validation attempt. Denials and
// step-up requirements are ordinary results, not errors.
type ValidationResult struct {
	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason,omitempty"`
	Similarity float64  `json:"similarity"`
	TrustScore int      `json:"trust_score"`
	Anomalies  []string `json:"anomalies,omitempty"`
}

// RegistrationDecision is the outcome of a registration-policy check.
type RegistrationDecision struct {
	Allowed     bool `json:"allowed"`
	RequiresMfa bool `json:"requires_mfa"`
	ActiveCount int  `json:"active_count"`
}

// Trust-band boundaries for aggregate stats.
const (
	HighTrustBandFloor   = 80
	MediumTrustBandFloor = 50
)

// Stats is the aggregate view served to admin dashboards. It is a derived
// read and never part of the engine's write path.
type Stats struct {
	ActiveDevices       int `json:"active_devices"`
	InactiveDevices     int `json:"inactive_devices"`
	HighTrust           int `json:"high_trust"`
	MediumTrust         int `json:"medium_trust"`
	LowTrust            int `json:"low_trust"`
	RegisteredLastDay   int `json:"registered_last_day"`
}

// DecideFromSimilarity maps a similarity score onto the decision bands. The
// bands neither overlap nor leave gaps.
func DecideFromSimilarity(similarity float64) Decision {
	switch {
	case similarity >= AutoApproveThreshold:
		return DecisionAutoApproved
	case similarity >= AdditionalVerificationThreshold:
		return DecisionStepUpRequired
	default:
		return DecisionDenied
	}
}

// TrustBand classifies a trust score for stats aggregation.
func TrustBand(score int) string {
	switch {
	case score >= HighTrustBandFloor:
		return "high"
	case score >= MediumTrustBandFloor:
		return "medium"
	default:
		return "low"
	}
}

// ClampTrustScore bounds a candidate trust score into [MinTrustScore, MaxTrustScore].
func ClampTrustScore(score int) int {
	if score < MinTrustScore {
		return MinTrustScore
	}
	if score > MaxTrustScore {
		return MaxTrustScore
	}
	return score
}
