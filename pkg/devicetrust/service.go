package devicetrust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/audit"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/fingerprint"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/telemetry"
)

// DefaultRetentionWindow is how long an active device may go unverified
// before a cleanup sweep deactivates it.
const DefaultRetentionWindow = 180 * 24 * time.Hour

// DeviceTrustService composes hashing, similarity scoring, the registration
// policy, the trust ledger and the anomaly heuristic into the engine exposed
// to the HTTP layer. Side effects are confined to repository writes and the
// audit recorder; the service performs no network calls of its own.
type DeviceTrustService struct {
	repository DeviceRepository
	policy     *RegistrationPolicy
	ledger     *TrustLedger
	audit      audit.Recorder
	retention  time.Duration
}

// DeviceTrustServiceOption configures a DeviceTrustService
type DeviceTrustServiceOption func(*DeviceTrustService)

// WithAuditRecorder sets the audit recorder. Defaults to a no-op recorder.
func WithAuditRecorder(recorder audit.Recorder) DeviceTrustServiceOption {
	return func(s *DeviceTrustService) {
		s.audit = recorder
	}
}

// WithRetentionWindow sets how long an unverified active device survives a
// cleanup sweep.
func WithRetentionWindow(window time.Duration) DeviceTrustServiceOption {
	return func(s *DeviceTrustService) {
		if window > 0 {
			s.retention = window
		}
	}
}

// NewDeviceTrustService creates a device trust service backed by the repository
func NewDeviceTrustService(repository DeviceRepository, opts ...DeviceTrustServiceOption) *DeviceTrustService {
	s := &DeviceTrustService{
		repository: repository,
		policy:     NewRegistrationPolicy(repository),
		ledger:     NewTrustLedger(repository),
		audit:      audit.NewNoopRecorder(),
		retention:  DefaultRetentionWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDeviceParams carries a registration request.
type RegisterDeviceParams struct {
	UserID          uuid.UUID
	Characteristics fingerprint.Characteristics
	DeviceName      string
	MfaVerified     bool
	ApprovedBy      *uuid.UUID
}

// Register creates a new device record with a full trust score. The
// registration limit is enforced atomically by the repository; registration-
// time anomalies are logged and audited but never block the registration.
func (s *DeviceTrustService) Register(ctx context.Context, params RegisterDeviceParams) (DeviceFingerprint, error) {
	hash, err := fingerprint.Hash(params.Characteristics)
	if err != nil {
		telemetry.Registrations.WithLabelValues("invalid").Inc()
		return DeviceFingerprint{}, err
	}

	anomalies := fingerprint.DetectAnomalies(params.Characteristics)
	if len(anomalies) > 0 {
		telemetry.Anomalies.Inc()
		slog.Warn("anomalies detected at registration", "userID", params.UserID, "anomalies", anomalies)
	}

	now := time.Now().UTC()
	device := DeviceFingerprint{
		UserID:          params.UserID,
		FingerprintHash: hash,
		Characteristics: params.Characteristics,
		DeviceName:      params.DeviceName,
		TrustScore:      InitialTrustScore,
		IsActive:        true,
		RegisteredAt:    now,
		LastVerified:    now,
		ApprovedBy:      params.ApprovedBy,
	}

	created, err := s.repository.CreateDevice(ctx, device, registrationCeiling(params.MfaVerified))
	var limitErr DeviceLimitError
	if errors.As(err, &limitErr) {
		telemetry.Registrations.WithLabelValues("limit_exceeded").Inc()
		s.recordAudit(ctx, audit.Event{
			EventType: audit.EventDeviceRegistered,
			UserID:    params.UserID,
			Result:    "denied",
			Severity:  audit.SeverityWarning,
			Details:   map[string]interface{}{"active_count": limitErr.ActiveCount, "mfa_verified": params.MfaVerified},
		})
		return DeviceFingerprint{}, RegistrationLimitExceededError{
			ActiveCount: limitErr.ActiveCount,
			RequiresMfa: !params.MfaVerified && limitErr.ActiveCount < MaxActiveDevicesWithMfa,
		}
	}
	if err != nil {
		telemetry.Registrations.WithLabelValues("error").Inc()
		return DeviceFingerprint{}, fmt.Errorf("failed to create device: %w", err)
	}

	telemetry.Registrations.WithLabelValues("success").Inc()
	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventDeviceRegistered,
		UserID:    params.UserID,
		DeviceID:  created.DeviceID,
		Result:    "success",
		Severity:  audit.SeverityInfo,
		Details:   map[string]interface{}{"anomalies": anomalies, "mfa_verified": params.MfaVerified},
	})
	slog.Info("device registered", "deviceID", created.DeviceID, "userID", params.UserID, "trustScore", created.TrustScore)
	return created, nil
}

// CanRegister runs the registration policy pre-check for a user.
func (s *DeviceTrustService) CanRegister(ctx context.Context, userID uuid.UUID, hasFreshMfaProof bool) (RegistrationDecision, error) {
	return s.policy.CanRegister(ctx, userID, hasFreshMfaProof)
}

// Validate scores a presented fingerprint against the stored record for the
// claimed device and produces the terminal decision for this attempt.
// Denials are ordinary results, not errors; only malformed input and
// infrastructure failures surface as errors.
func (s *DeviceTrustService) Validate(ctx context.Context, userID, deviceID uuid.UUID, presented fingerprint.Characteristics) (ValidationResult, error) {
	if err := presented.Validate(); err != nil {
		return ValidationResult{}, err
	}

	device, err := s.repository.GetDeviceByID(ctx, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		return s.deny(ctx, userID, deviceID, DenyReasonDeviceNotFound, audit.SeverityWarning), nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("failed to load device: %w", err)
	}
	if device.UserID != userID {
		return s.deny(ctx, userID, deviceID, DenyReasonOwnershipMismatch, audit.SeverityCritical), nil
	}
	if !device.IsActive {
		return s.deny(ctx, userID, deviceID, DenyReasonDeviceInactive, audit.SeverityWarning), nil
	}

	similarity, err := fingerprint.Similarity(device.Characteristics, presented)
	if err != nil {
		return ValidationResult{}, err
	}
	anomalies := fingerprint.DetectAnomalies(presented)
	decision := DecideFromSimilarity(similarity)

	result := ValidationResult{
		Decision:   decision,
		Similarity: similarity,
		TrustScore: device.TrustScore,
		Anomalies:  anomalies,
	}
	now := time.Now().UTC()

	switch decision {
	case DecisionAutoApproved:
		score, err := s.ledger.Adjust(ctx, deviceID, ReasonSuccessfulValidation)
		if err != nil {
			return ValidationResult{}, err
		}
		result.TrustScore = score
		entry := VerificationEntry{Timestamp: now, Similarity: similarity, Result: VerificationResultSuccess}
		if err := s.repository.RecordVerification(ctx, deviceID, entry, true); err != nil {
			return ValidationResult{}, fmt.Errorf("failed to record verification: %w", err)
		}

	case DecisionStepUpRequired:
		// No adjustment until the secondary factor outcome is known.

	case DecisionDenied:
		result.Reason = DenyReasonLowSimilarity
		score, err := s.ledger.Adjust(ctx, deviceID, ReasonFailedValidation)
		if err != nil {
			return ValidationResult{}, err
		}
		result.TrustScore = score
		entry := VerificationEntry{Timestamp: now, Similarity: similarity, Result: VerificationResultFailed}
		if err := s.repository.RecordVerification(ctx, deviceID, entry, false); err != nil {
			return ValidationResult{}, fmt.Errorf("failed to record verification: %w", err)
		}
	}

	// Anomaly penalty is additive and independent of the similarity decision.
	if len(anomalies) > 0 {
		telemetry.Anomalies.Inc()
		score, err := s.ledger.Adjust(ctx, deviceID, ReasonAnomalyDetected)
		if err != nil {
			return ValidationResult{}, err
		}
		result.TrustScore = score
	}

	telemetry.Validations.WithLabelValues(string(decision)).Inc()
	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventDeviceValidated,
		UserID:    userID,
		DeviceID:  deviceID,
		Result:    string(decision),
		Severity:  validationSeverity(decision, anomalies),
		Details: map[string]interface{}{
			"similarity":  similarity,
			"trust_score": result.TrustScore,
			"anomalies":   anomalies,
		},
	})
	return result, nil
}

// ResolveStepUp settles a STEP_UP_REQUIRED validation once the secondary
// factor outcome is known. A passed factor applies the successful-validation
// adjustment; a failed one applies the failed-validation adjustment.
func (s *DeviceTrustService) ResolveStepUp(ctx context.Context, userID, deviceID uuid.UUID, passed bool) (ValidationResult, error) {
	device, err := s.repository.GetDeviceByID(ctx, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		return s.deny(ctx, userID, deviceID, DenyReasonDeviceNotFound, audit.SeverityWarning), nil
	}
	if err != nil {
		return ValidationResult{}, fmt.Errorf("failed to load device: %w", err)
	}
	if device.UserID != userID {
		return s.deny(ctx, userID, deviceID, DenyReasonOwnershipMismatch, audit.SeverityCritical), nil
	}
	if !device.IsActive {
		return s.deny(ctx, userID, deviceID, DenyReasonDeviceInactive, audit.SeverityWarning), nil
	}

	now := time.Now().UTC()
	result := ValidationResult{}
	if passed {
		result.Decision = DecisionAutoApproved
		score, err := s.ledger.Adjust(ctx, deviceID, ReasonSuccessfulValidation)
		if err != nil {
			return ValidationResult{}, err
		}
		result.TrustScore = score
		entry := VerificationEntry{Timestamp: now, Result: VerificationResultSuccess}
		if err := s.repository.RecordVerification(ctx, deviceID, entry, true); err != nil {
			return ValidationResult{}, fmt.Errorf("failed to record verification: %w", err)
		}
	} else {
		result.Decision = DecisionDenied
		result.Reason = "stepup_failed"
		score, err := s.ledger.Adjust(ctx, deviceID, ReasonFailedValidation)
		if err != nil {
			return ValidationResult{}, err
		}
		result.TrustScore = score
		entry := VerificationEntry{Timestamp: now, Result: VerificationResultFailed}
		if err := s.repository.RecordVerification(ctx, deviceID, entry, false); err != nil {
			return ValidationResult{}, fmt.Errorf("failed to record verification: %w", err)
		}
	}

	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventStepUpResolved,
		UserID:    userID,
		DeviceID:  deviceID,
		Result:    string(result.Decision),
		Severity:  audit.SeverityInfo,
		Details:   map[string]interface{}{"passed": passed, "trust_score": result.TrustScore},
	})
	return result, nil
}

// Deactivate soft-deletes a device. The record stays behind for audit and is
// excluded from matching and limit counting from here on.
func (s *DeviceTrustService) Deactivate(ctx context.Context, deviceID, actorID uuid.UUID) error {
	if err := s.repository.DeactivateDevice(ctx, deviceID, actorID); err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventDeviceDeactivated,
		UserID:    actorID,
		DeviceID:  deviceID,
		Result:    "success",
		Severity:  audit.SeverityInfo,
	})
	slog.Info("device deactivated", "deviceID", deviceID, "actorID", actorID)
	return nil
}

// ListActiveDevices returns the user's active devices.
func (s *DeviceTrustService) ListActiveDevices(ctx context.Context, userID uuid.UUID) ([]DeviceFingerprint, error) {
	devices, err := s.repository.FindActiveDevicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices for user: %w", err)
	}
	return devices, nil
}

// GetDevice returns one device record.
func (s *DeviceTrustService) GetDevice(ctx context.Context, deviceID uuid.UUID) (DeviceFingerprint, error) {
	return s.repository.GetDeviceByID(ctx, deviceID)
}

// ReportSecurityIncident applies the security-incident trust penalty to a
// device, for admin or detection pipelines that confirmed a compromise.
func (s *DeviceTrustService) ReportSecurityIncident(ctx context.Context, deviceID, actorID uuid.UUID) (int, error) {
	score, err := s.ledger.Adjust(ctx, deviceID, ReasonSecurityIncident)
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventSecurityIncident,
		UserID:    actorID,
		DeviceID:  deviceID,
		Result:    "recorded",
		Severity:  audit.SeverityCritical,
		Details:   map[string]interface{}{"trust_score": score},
	})
	return score, nil
}

// Stats returns aggregate device counts for admin dashboards.
func (s *DeviceTrustService) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.repository.GetStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to get device stats: %w", err)
	}
	return stats, nil
}

// CleanupStale deactivates active devices whose last verification is older
// than the retention window and returns how many were swept. Physical
// deletion stays with the external retention job.
func (s *DeviceTrustService) CleanupStale(ctx context.Context, actorID uuid.UUID) (int, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	stale, err := s.repository.FindStaleActiveDevices(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale devices: %w", err)
	}

	swept := 0
	for _, device := range stale {
		if err := s.repository.DeactivateDevice(ctx, device.DeviceID, actorID); err != nil {
			slog.Error("failed to deactivate stale device", "deviceID", device.DeviceID, "error", err)
			continue
		}
		swept++
	}

	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventRetentionSweep,
		UserID:    actorID,
		Result:    "success",
		Severity:  audit.SeverityInfo,
		Details:   map[string]interface{}{"swept": swept, "cutoff": cutoff},
	})
	slog.Info("retention sweep complete", "swept", swept, "cutoff", cutoff)
	return swept, nil
}

// deny records a short-circuit denial that involves no stored adjustment.
func (s *DeviceTrustService) deny(ctx context.Context, userID, deviceID uuid.UUID, reason, severity string) ValidationResult {
	telemetry.Validations.WithLabelValues(string(DecisionDenied)).Inc()
	s.recordAudit(ctx, audit.Event{
		EventType: audit.EventDeviceValidated,
		UserID:    userID,
		DeviceID:  deviceID,
		Result:    string(DecisionDenied),
		Severity:  severity,
		Details:   map[string]interface{}{"reason": reason},
	})
	return ValidationResult{Decision: DecisionDenied, Reason: reason}
}

// recordAudit reports an event; audit failures are logged and swallowed so
// they never fail the primary operation.
func (s *DeviceTrustService) recordAudit(ctx context.Context, event audit.Event) {
	if err := s.audit.Record(ctx, event); err != nil {
		slog.Error("failed to record audit event", "eventType", event.EventType, "error", err)
	}
}

func validationSeverity(decision Decision, anomalies []string) string {
	if decision == DecisionDenied || len(anomalies) > 0 {
		return audit.SeverityWarning
	}
	return audit.SeverityInfo
}
