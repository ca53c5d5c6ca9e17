package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/devicetrust"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/fingerprint"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/stepup"
)

// DeviceTrustHandler handles HTTP requests for device trust management
type DeviceTrustHandler struct {
	service *devicetrust.DeviceTrustService
	stepup  *stepup.Service
}

// NewDeviceTrustHandler creates a new device trust handler. The step-up
// service may be nil when step-up completion is hosted elsewhere.
func NewDeviceTrustHandler(service *devicetrust.DeviceTrustService, stepupService *stepup.Service) *DeviceTrustHandler {
	return &DeviceTrustHandler{
		service: service,
		stepup:  stepupService,
	}
}

// Routes mounts the device trust endpoints
func (h *DeviceTrustHandler) Routes(r chi.Router) {
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.ListDevices)
		r.Post("/register", h.RegisterDevice)
		r.Post("/validate", h.ValidateDevice)
		r.Get("/can-register", h.CanRegister)
		r.Get("/stats", h.GetStats)
		r.Post("/cleanup", h.CleanupStale)
		r.Delete("/{deviceID}", h.DeactivateDevice)
		r.Post("/{deviceID}/stepup", h.CompleteStepUp)
		r.Post("/{deviceID}/incident", h.ReportIncident)
	})
}

// RegisterDeviceRequest represents the request body for registering a device
type RegisterDeviceRequest struct {
	UserID          string                      `json:"user_id"`
	Characteristics fingerprint.Characteristics `json:"characteristics"`
	DeviceName      string                      `json:"device_name,omitempty"`
	MfaVerified     bool                        `json:"mfa_verified"`
}

// RegisterDeviceResponse represents the response body for registering a device
type RegisterDeviceResponse struct {
	DeviceID   string `json:"device_id"`
	TrustScore int    `json:"trust_score"`
}

// ValidateDeviceRequest represents the request body for validating a device
type ValidateDeviceRequest struct {
	UserID          string                      `json:"user_id"`
	DeviceID        string                      `json:"device_id"`
	Characteristics fingerprint.Characteristics `json:"characteristics"`
}

// ValidateDeviceResponse represents the response body for validating a device
type ValidateDeviceResponse struct {
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason,omitempty"`
	Similarity float64  `json:"similarity"`
	TrustScore int      `json:"trust_score"`
	Anomalies  []string `json:"anomalies,omitempty"`
}

// StepUpRequest represents the request body for completing step-up verification
type StepUpRequest struct {
	UserID   string `json:"user_id"`
	Passcode string `json:"passcode"`
}

// ActorRequest carries the acting principal for admin-mediated operations
type ActorRequest struct {
	ActorID string `json:"actor_id"`
}

// DeviceResponse is the device shape returned by list endpoints. Stored
// characteristics are never exposed over HTTP.
type DeviceResponse struct {
	DeviceID     string `json:"device_id"`
	UserID       string `json:"user_id"`
	DeviceName   string `json:"device_name,omitempty"`
	TrustScore   int    `json:"trust_score"`
	RegisteredAt string `json:"registered_at"`
	LastVerified string `json:"last_verified"`
}

// CanRegisterResponse represents the response body for the policy pre-check
type CanRegisterResponse struct {
	Allowed     bool `json:"allowed"`
	RequiresMfa bool `json:"requires_mfa"`
	ActiveCount int  `json:"active_count"`
}

// CleanupResponse represents the response body for a retention sweep
type CleanupResponse struct {
	Swept int `json:"swept"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	RequiresMfa bool   `json:"requires_mfa,omitempty"`
}

// RegisterDevice handles device registration
func (h *DeviceTrustHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode register request", "error", err)
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid user_id")
		return
	}

	device, err := h.service.Register(r.Context(), devicetrust.RegisterDeviceParams{
		UserID:          userID,
		Characteristics: req.Characteristics,
		DeviceName:      req.DeviceName,
		MfaVerified:     req.MfaVerified,
	})
	if err != nil {
		var limitErr devicetrust.RegistrationLimitExceededError
		var missingErr fingerprint.MissingComponentError
		switch {
		case errors.As(err, &limitErr):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{
				Status:      "error",
				Message:     limitErr.Error(),
				RequiresMfa: limitErr.RequiresMfa,
			})
		case errors.As(err, &missingErr):
			renderErrorResponse(w, r, http.StatusBadRequest, missingErr.Error())
		default:
			slog.Error("failed to register device", "userID", userID, "error", err)
			renderErrorResponse(w, r, http.StatusInternalServerError, "failed to register device")
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RegisterDeviceResponse{
		DeviceID:   device.DeviceID.String(),
		TrustScore: device.TrustScore,
	})
}

// ValidateDevice handles device validation
func (h *DeviceTrustHandler) ValidateDevice(w http.ResponseWriter, r *http.Request) {
	var req ValidateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode validate request", "error", err)
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid user_id")
		return
	}
	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid device_id")
		return
	}

	result, err := h.service.Validate(r.Context(), userID, deviceID, req.Characteristics)
	if err != nil {
		var missingErr fingerprint.MissingComponentError
		if errors.As(err, &missingErr) {
			renderErrorResponse(w, r, http.StatusBadRequest, missingErr.Error())
			return
		}
		slog.Error("failed to validate device", "deviceID", deviceID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to validate device")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ValidateDeviceResponse{
		Decision:   string(result.Decision),
		Reason:     result.Reason,
		Similarity: result.Similarity,
		TrustScore: result.TrustScore,
		Anomalies:  result.Anomalies,
	})
}

// CanRegister handles the registration-policy pre-check
func (h *DeviceTrustHandler) CanRegister(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid user_id")
		return
	}
	hasMfa := r.URL.Query().Get("mfa_verified") == "true"

	decision, err := h.service.CanRegister(r.Context(), userID, hasMfa)
	if err != nil {
		slog.Error("failed to run registration pre-check", "userID", userID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to check registration policy")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, CanRegisterResponse{
		Allowed:     decision.Allowed,
		RequiresMfa: decision.RequiresMfa,
		ActiveCount: decision.ActiveCount,
	})
}

// ListDevices handles listing a user's active devices
func (h *DeviceTrustHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid user_id")
		return
	}

	devices, err := h.service.ListActiveDevices(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list devices", "userID", userID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to list devices")
		return
	}

	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceResponse{
			DeviceID:     d.DeviceID.String(),
			UserID:       d.UserID.String(),
			DeviceName:   d.DeviceName,
			TrustScore:   d.TrustScore,
			RegisteredAt: d.RegisteredAt.Format(timeFormat),
			LastVerified: d.LastVerified.Format(timeFormat),
		})
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, out)
}

// DeactivateDevice handles soft-deactivation of a device
func (h *DeviceTrustHandler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid device ID")
		return
	}
	actorID, err := uuid.Parse(r.URL.Query().Get("actor_id"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid actor_id")
		return
	}

	if err := h.service.Deactivate(r.Context(), deviceID, actorID); err != nil {
		if errors.Is(err, devicetrust.ErrDeviceNotFound) {
			renderErrorResponse(w, r, http.StatusNotFound, "device not found")
			return
		}
		slog.Error("failed to deactivate device", "deviceID", deviceID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to deactivate device")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "success"})
}

// CompleteStepUp handles step-up verification completion with a TOTP passcode
func (h *DeviceTrustHandler) CompleteStepUp(w http.ResponseWriter, r *http.Request) {
	if h.stepup == nil {
		renderErrorResponse(w, r, http.StatusNotFound, "step-up verification not configured")
		return
	}

	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid device ID")
		return
	}
	var req StepUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid user_id")
		return
	}

	result, err := h.stepup.Complete(r.Context(), userID, deviceID, req.Passcode)
	if err != nil {
		slog.Error("failed to complete step-up", "deviceID", deviceID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to complete step-up verification")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ValidateDeviceResponse{
		Decision:   string(result.Decision),
		Reason:     result.Reason,
		TrustScore: result.TrustScore,
	})
}

// ReportIncident handles a confirmed security incident for a device
func (h *DeviceTrustHandler) ReportIncident(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid device ID")
		return
	}
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid actor_id")
		return
	}

	score, err := h.service.ReportSecurityIncident(r.Context(), deviceID, actorID)
	if err != nil {
		if errors.Is(err, devicetrust.ErrDeviceNotFound) {
			renderErrorResponse(w, r, http.StatusNotFound, "device not found")
			return
		}
		slog.Error("failed to report incident", "deviceID", deviceID, "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to report incident")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]int{"trust_score": score})
}

// GetStats handles the admin aggregate stats read
func (h *DeviceTrustHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		slog.Error("failed to get device stats", "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to get device stats")
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, stats)
}

// CleanupStale handles an admin-triggered retention sweep
func (h *DeviceTrustHandler) CleanupStale(w http.ResponseWriter, r *http.Request) {
	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		renderErrorResponse(w, r, http.StatusBadRequest, "invalid actor_id")
		return
	}

	swept, err := h.service.CleanupStale(r.Context(), actorID)
	if err != nil {
		slog.Error("failed to run retention sweep", "error", err)
		renderErrorResponse(w, r, http.StatusInternalServerError, "failed to run retention sweep")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, CleanupResponse{Swept: swept})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

// renderErrorResponse is a helper to render an error response
func renderErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Status:  "error",
		Message: message,
	})
}
