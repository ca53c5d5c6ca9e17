// Package devicetrust converts raw browser fingerprints into durable,
// scorable device identities and decides whether a presented fingerprint is
// "the same device" within tolerance.
//
// # Overview
//
// The package provides:
//   - Device registration with per-user limits and MFA escalation
//   - Weighted similarity validation with auto-approve / step-up / deny bands
//   - A bounded, atomically adjusted trust score per device
//   - Anomaly-driven trust penalties
//   - Soft deactivation and retention sweeps
//
// # Basic Usage
//
//	repo := devicetrust.NewInMemDeviceRepository()
//	service := devicetrust.NewDeviceTrustService(
//		repo,
//		devicetrust.WithAuditRecorder(audit.NewSlogRecorder(nil)),
//	)
//
//	device, err := service.Register(ctx, devicetrust.RegisterDeviceParams{
//		UserID:          userID,
//		Characteristics: chars,
//		MfaVerified:     false,
//	})
//
//	result, err := service.Validate(ctx, userID, device.DeviceID, presented)
//	switch result.Decision {
//	case devicetrust.DecisionAutoApproved:
//		// session may be trusted
//	case devicetrust.DecisionStepUpRequired:
//		// complete a secondary factor, then service.ResolveStepUp(...)
//	case devicetrust.DecisionDenied:
//		// treat as untrusted
//	}
//
// Validation denials are ordinary results. Only malformed input
// (fingerprint.MissingComponentError) and infrastructure failures surface as
// errors.
//
// # Concurrency
//
// Trust-score adjustment is a single atomic read-modify-write per device, and
// registration counts-then-inserts atomically per user, so the engine is safe
// to call from any number of concurrent requests.
//
// # Related Packages
//
//   - pkg/fingerprint - hashing, similarity and anomaly heuristics
//   - pkg/stepup - secondary-factor resolution of STEP_UP_REQUIRED
//   - pkg/audit - structured audit events
package devicetrust
