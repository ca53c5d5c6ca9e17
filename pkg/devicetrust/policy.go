package devicetrust

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RegistrationPolicy enforces the per-user active-device limits. Deactivated
// devices never count toward the limit.
//
// CanRegister is an advisory pre-check: the binding enforcement happens inside
// the repository's atomic count-then-insert, so two concurrent registrations
// cannot both slip under the ceiling.
type RegistrationPolicy struct {
	repository DeviceRepository
}

// NewRegistrationPolicy creates a registration policy backed by the repository
func NewRegistrationPolicy(repository DeviceRepository) *RegistrationPolicy {
	return &RegistrationPolicy{repository: repository}
}

// CanRegister reports whether the user may register another device and, when
// not, whether supplying a fresh multi-factor proof would change the answer.
func (p *RegistrationPolicy) CanRegister(ctx context.Context, userID uuid.UUID, hasFreshMfaProof bool) (RegistrationDecision, error) {
	count, err := p.repository.CountActiveDevices(ctx, userID)
	if err != nil {
		return RegistrationDecision{}, fmt.Errorf("failed to count active devices: %w", err)
	}
	return decideRegistration(count, hasFreshMfaProof), nil
}

// decideRegistration applies the limit table to an observed active count:
// under MaxActiveDevices registration is free; between MaxActiveDevices and
// MaxActiveDevicesWithMfa it needs a fresh MFA proof; at or above
// MaxActiveDevicesWithMfa it is denied unconditionally.
func decideRegistration(activeCount int, hasFreshMfaProof bool) RegistrationDecision {
	decision := RegistrationDecision{ActiveCount: activeCount}
	switch {
	case activeCount < MaxActiveDevices:
		decision.Allowed = true
	case activeCount < MaxActiveDevicesWithMfa:
		decision.Allowed = hasFreshMfaProof
		decision.RequiresMfa = !hasFreshMfaProof
	default:
		// Absolute ceiling, not bypassable with proof.
	}
	return decision
}

// registrationCeiling is the max-active bound handed to the repository's
// atomic insert for a given proof level.
func registrationCeiling(hasFreshMfaProof bool) int {
	if hasFreshMfaProof {
		return MaxActiveDevicesWithMfa
	}
	return MaxActiveDevices
}
