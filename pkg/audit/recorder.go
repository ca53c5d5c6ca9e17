// Package audit reports registration, validation and deactivation outcomes as
// structured events. Recording is best-effort: a failing recorder must never
// fail the primary operation, so callers log and swallow its errors.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event types emitted by the device trust engine.
const (
	EventDeviceRegistered   = "device.registered"
	EventDeviceValidated    = "device.validated"
	EventDeviceDeactivated  = "device.deactivated"
	EventStepUpResolved     = "device.stepup_resolved"
	EventSecurityIncident   = "device.security_incident"
	EventRetentionSweep     = "device.retention_sweep"
)

// Event is one structured audit record.
type Event struct {
	EventType string                 `json:"event_type"`
	UserID    uuid.UUID              `json:"user_id"`
	DeviceID  uuid.UUID              `json:"device_id"`
	Result    string                 `json:"result"`
	Severity  string                 `json:"severity"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// SlogRecorder writes audit events to a structured logger.
type SlogRecorder struct {
	logger *slog.Logger
}

// NewSlogRecorder creates a recorder writing to the given logger, or the
// default logger when nil.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger}
}

// Record writes the event as one structured log line
func (r *SlogRecorder) Record(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	r.logger.InfoContext(ctx, "audit event",
		"eventType", event.EventType,
		"userID", event.UserID,
		"deviceID", event.DeviceID,
		"result", event.Result,
		"severity", event.Severity,
		"timestamp", event.Timestamp,
		"details", event.Details,
	)
	return nil
}

// NoopRecorder discards all events. Use it when auditing is not configured.
type NoopRecorder struct{}

// NewNoopRecorder creates a recorder that discards everything
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (r *NoopRecorder) Record(ctx context.Context, event Event) error {
	return nil
}
