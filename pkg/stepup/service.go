// Package stepup completes step-up verification for ambiguous device
// validations. When the trust engine returns STEP_UP_REQUIRED, the caller
// collects a TOTP passcode out of band and resolves the attempt here.
package stepup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/devicetrust"
)

// SecretSource provides per-user TOTP secrets. The identity system owns
// enrollment; this package only validates passcodes.
type SecretSource interface {
	TOTPSecret(ctx context.Context, userID uuid.UUID) (string, error)
}

// Resolver settles a pending step-up on the trust engine.
type Resolver interface {
	ResolveStepUp(ctx context.Context, userID, deviceID uuid.UUID, passed bool) (devicetrust.ValidationResult, error)
}

// Service validates TOTP passcodes and resolves pending step-up validations.
type Service struct {
	secrets  SecretSource
	resolver Resolver
}

// NewService creates a step-up service
func NewService(secrets SecretSource, resolver Resolver) *Service {
	return &Service{
		secrets:  secrets,
		resolver: resolver,
	}
}

// Complete validates the passcode for the user and resolves the device's
// pending step-up with the outcome. An invalid passcode is not an error: it
// resolves the attempt as failed.
func (s *Service) Complete(ctx context.Context, userID, deviceID uuid.UUID, passcode string) (devicetrust.ValidationResult, error) {
	secret, err := s.secrets.TOTPSecret(ctx, userID)
	if err != nil {
		return devicetrust.ValidationResult{}, fmt.Errorf("failed to load step-up secret: %w", err)
	}

	valid, err := totp.ValidateCustom(passcode, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return devicetrust.ValidationResult{}, fmt.Errorf("failed to validate passcode: %w", err)
	}
	if !valid {
		slog.Info("step-up passcode rejected", "userID", userID, "deviceID", deviceID)
	}

	return s.resolver.ResolveStepUp(ctx, userID, deviceID, valid)
}

// InMemSecretSource is a SecretSource backed by a map, for tests and the
// inmem deployment mode.
type InMemSecretSource struct {
	mu      sync.Mutex
	secrets map[uuid.UUID]string
}

// NewInMemSecretSource creates an empty in-memory secret source
func NewInMemSecretSource() *InMemSecretSource {
	return &InMemSecretSource{
		secrets: make(map[uuid.UUID]string),
	}
}

// SetSecret stores a user's TOTP secret
func (s *InMemSecretSource) SetSecret(userID uuid.UUID, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[userID] = secret
}

// TOTPSecret returns the user's TOTP secret
func (s *InMemSecretSource) TOTPSecret(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[userID]
	if !ok {
		return "", fmt.Errorf("no step-up secret enrolled for user %s", userID)
	}
	return secret, nil
}
