package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/devicetrust"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/fingerprint"
)

func testCharacteristics() fingerprint.Characteristics {
	return fingerprint.Characteristics{
		Canvas: &fingerprint.Canvas{Hash: "a1b2c3d4e5f60718293a4b5c6d7e8f90"},
		WebGL: &fingerprint.WebGL{
			Renderer: "ANGLE (Intel, Intel(R) UHD Graphics 620 Direct3D11 vs_5_0 ps_5_0)",
			Vendor:   "Google Inc. (Intel)",
			Version:  "WebGL 2.0",
		},
		Audio:  &fingerprint.Audio{Hash: "deadbeefcafe01234567", SampleRate: 48000, BufferSize: 4096},
		Screen: &fingerprint.Screen{Width: 1920, Height: 1080, ColorDepth: 24, PixelRatio: 1.0},
		System: &fingerprint.System{
			Platform:            "Win32",
			Language:            "en-US",
			Timezone:            "America/New_York",
			HardwareConcurrency: 8,
			DeviceMemoryGB:      16,
		},
		Fonts: []string{"Arial", "Calibri", "Segoe UI"},
	}
}

func newTestRouter(t *testing.T) (*chi.Mux, *devicetrust.DeviceTrustService) {
	t.Helper()
	service := devicetrust.NewDeviceTrustService(devicetrust.NewInMemDeviceRepository())
	handler := NewDeviceTrustHandler(service, nil)
	r := chi.NewRouter()
	handler.Routes(r)
	return r, service
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterDevice(t *testing.T) {
	router, _ := newTestRouter(t)
	userID := uuid.New()

	rec := postJSON(t, router, "/devices/register", RegisterDeviceRequest{
		UserID:          userID.String(),
		Characteristics: testCharacteristics(),
		DeviceName:      "library kiosk",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RegisterDeviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, devicetrust.InitialTrustScore, resp.TrustScore)
	_, err := uuid.Parse(resp.DeviceID)
	assert.NoError(t, err)
}

func TestRegisterDevice_Errors(t *testing.T) {
	router, _ := newTestRouter(t)
	userID := uuid.New()

	t.Run("invalid user id", func(t *testing.T) {
		rec := postJSON(t, router, "/devices/register", RegisterDeviceRequest{
			UserID:          "not-a-uuid",
			Characteristics: testCharacteristics(),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing component", func(t *testing.T) {
		chars := testCharacteristics()
		chars.Canvas = nil
		rec := postJSON(t, router, "/devices/register", RegisterDeviceRequest{
			UserID:          userID.String(),
			Characteristics: chars,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Message, "canvas")
	})

	t.Run("limit exceeded reports mfa remedy", func(t *testing.T) {
		for i := 0; i < devicetrust.MaxActiveDevices; i++ {
			rec := postJSON(t, router, "/devices/register", RegisterDeviceRequest{
				UserID:          userID.String(),
				Characteristics: testCharacteristics(),
			})
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := postJSON(t, router, "/devices/register", RegisterDeviceRequest{
			UserID:          userID.String(),
			Characteristics: testCharacteristics(),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.RequiresMfa)
	})
}

func TestValidateDevice(t *testing.T) {
	router, service := newTestRouter(t)
	userID := uuid.New()

	device, err := service.Register(context.Background(), devicetrust.RegisterDeviceParams{
		UserID:          userID,
		Characteristics: testCharacteristics(),
	})
	require.NoError(t, err)

	t.Run("auto approved", func(t *testing.T) {
		rec := postJSON(t, router, "/devices/validate", ValidateDeviceRequest{
			UserID:          userID.String(),
			DeviceID:        device.DeviceID.String(),
			Characteristics: testCharacteristics(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ValidateDeviceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(devicetrust.DecisionAutoApproved), resp.Decision)
		assert.Equal(t, 100.0, resp.Similarity)
	})

	t.Run("denial is an ordinary 200", func(t *testing.T) {
		rec := postJSON(t, router, "/devices/validate", ValidateDeviceRequest{
			UserID:          uuid.New().String(),
			DeviceID:        device.DeviceID.String(),
			Characteristics: testCharacteristics(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ValidateDeviceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(devicetrust.DecisionDenied), resp.Decision)
		assert.Equal(t, devicetrust.DenyReasonOwnershipMismatch, resp.Reason)
	})

	t.Run("unknown device is a denial, not a 404", func(t *testing.T) {
		rec := postJSON(t, router, "/devices/validate", ValidateDeviceRequest{
			UserID:          userID.String(),
			DeviceID:        uuid.New().String(),
			Characteristics: testCharacteristics(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ValidateDeviceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, devicetrust.DenyReasonDeviceNotFound, resp.Reason)
	})
}

func TestCanRegister(t *testing.T) {
	router, _ := newTestRouter(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/devices/can-register?user_id="+userID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CanRegisterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Allowed)
	assert.Equal(t, 0, resp.ActiveCount)
}

func TestListDevices_OmitsCharacteristics(t *testing.T) {
	router, service := newTestRouter(t)
	userID := uuid.New()

	_, err := service.Register(context.Background(), devicetrust.RegisterDeviceParams{
		UserID:          userID,
		Characteristics: testCharacteristics(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/devices/?user_id="+userID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var devices []DeviceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, userID.String(), devices[0].UserID)
	// Raw fingerprint material never leaves the service boundary.
	assert.NotContains(t, rec.Body.String(), "characteristics")
	assert.NotContains(t, rec.Body.String(), "Win32")
}

func TestDeactivateDevice(t *testing.T) {
	router, service := newTestRouter(t)
	userID := uuid.New()

	device, err := service.Register(context.Background(), devicetrust.RegisterDeviceParams{
		UserID:          userID,
		Characteristics: testCharacteristics(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete,
		"/devices/"+device.DeviceID.String()+"?actor_id="+userID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete,
		"/devices/"+uuid.New().String()+"?actor_id="+userID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteStepUp_NotConfigured(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/devices/"+uuid.New().String()+"/stepup", StepUpRequest{
		UserID:   uuid.New().String(),
		Passcode: "123456",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportIncident(t *testing.T) {
	router, service := newTestRouter(t)
	userID := uuid.New()

	device, err := service.Register(context.Background(), devicetrust.RegisterDeviceParams{
		UserID:          userID,
		Characteristics: testCharacteristics(),
	})
	require.NoError(t, err)

	rec := postJSON(t, router, "/devices/"+device.DeviceID.String()+"/incident", ActorRequest{
		ActorID: userID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, devicetrust.InitialTrustScore-25, resp["trust_score"])

	rec = postJSON(t, router, "/devices/"+uuid.New().String()+"/incident", ActorRequest{
		ActorID: userID.String(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCleanupStale(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/devices/cleanup", ActorRequest{ActorID: uuid.New().String()})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Swept)
}
