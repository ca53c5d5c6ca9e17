package devicetrust

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound is returned when no device exists for the given ID.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceLimitError is returned by repositories when an insert would exceed
// the active-device ceiling passed to CreateDevice.
type DeviceLimitError struct {
	ActiveCount int
}

func (e DeviceLimitError) Error() string {
	return fmt.Sprintf("active device limit reached: %d devices", e.ActiveCount)
}

// RegistrationLimitExceededError is returned by the service when registration
// is denied by the device-count policy. RequiresMfa tells the caller whether
// prompting for a fresh multi-factor proof and retrying can succeed.
type RegistrationLimitExceededError struct {
	ActiveCount int
	RequiresMfa bool
}

func (e RegistrationLimitExceededError) Error() string {
	if e.RequiresMfa {
		return fmt.Sprintf("registration limit exceeded with %d active devices: multi-factor proof required", e.ActiveCount)
	}
	return fmt.Sprintf("registration limit exceeded with %d active devices: absolute ceiling reached", e.ActiveCount)
}
