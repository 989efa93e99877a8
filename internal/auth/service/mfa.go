package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/authlab/authlab/internal/auth/domain"
	"github.com/authlab/authlab/internal/auth/store"
	"github.com/authlab/authlab/pkg/cryptox"
)

const (
	backupCodeCount = 10
	backupCodeBytes = cryptox.TokenSize128
	totpSecretBytes = 20 // 160-bit secret per RFC 4226 recommendation
	totpPeriod      = 30
)

// MFAService manages TOTP enrollment and verification plus the single-use
// backup codes. Enrollment is two-phase: Setup stores a pending secret, and
// only Activate, gated on a valid code, turns MFA on for the account.
type MFAService struct {
	Store store.Store

	// Issuer labels the account in authenticator apps.
	Issuer string

	// Skew is how many 30-second steps on either side of now a code is
	// accepted for, absorbing clock drift between server and device.
	Skew uint
}

// Setup begins TOTP enrollment. It generates a fresh secret, stores it
// disabled, and returns the secret, its otpauth:// provisioning URI, and the
// plaintext backup codes. This is the only time the backup codes exist in
// the clear.
func (s *MFAService) Setup(ctx context.Context, userID, username string) (domain.MFASetup, error) {
	rec, err := s.Store.MFA().GetMFARecord(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.MFASetup{}, fmt.Errorf("failed to read mfa record: %w", err)
	}
	if err == nil && rec.Enabled {
		return domain.MFASetup{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		Period:      totpPeriod,
		SecretSize:  totpSecretBytes,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFASetup{}, fmt.Errorf("failed to generate totp key: %w", err)
	}

	now := time.Now().UTC()
	if err := s.Store.MFA().UpsertMFARecord(ctx, domain.MFARecord{
		UserID:    userID,
		Secret:    key.Secret(),
		CreatedAt: now,
	}); err != nil {
		return domain.MFASetup{}, fmt.Errorf("failed to store mfa record: %w", err)
	}

	codes := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range codes {
		code, err := cryptox.GenerateToken(backupCodeBytes)
		if err != nil {
			return domain.MFASetup{}, fmt.Errorf("failed to generate backup code: %w", err)
		}
		codes[i] = code
		hashes[i] = cryptox.FingerprintToken(code)
	}
	if err := s.Store.BackupCodes().ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return domain.MFASetup{}, fmt.Errorf("failed to store backup codes: %w", err)
	}

	return domain.MFASetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		BackupCodes:     codes,
	}, nil
}

// Activate enables MFA after the user proves their authenticator works by
// submitting one valid code against the pending secret.
func (s *MFAService) Activate(ctx context.Context, userID, code string) error {
	rec, err := s.Store.MFA().GetMFARecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotEnrolled
		}
		return fmt.Errorf("failed to read mfa record: %w", err)
	}
	if rec.Enabled {
		return ErrMFAAlreadyEnabled
	}

	if !s.validateCode(code, rec.Secret) {
		return ErrInvalidMFACode
	}

	now := time.Now().UTC()
	if err := s.Store.MFA().EnableMFA(ctx, userID, now); err != nil {
		return fmt.Errorf("failed to enable mfa: %w", err)
	}
	if err := s.Store.Users().SetMFAEnabled(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to flag user mfa: %w", err)
	}

	return nil
}

// VerifyCode checks a TOTP code against the user's enabled secret.
func (s *MFAService) VerifyCode(ctx context.Context, userID, code string) error {
	rec, err := s.Store.MFA().GetMFARecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotEnabled
		}
		return fmt.Errorf("failed to read mfa record: %w", err)
	}
	if !rec.Enabled {
		return ErrMFANotEnabled
	}

	if !s.validateCode(code, rec.Secret) {
		return ErrInvalidMFACode
	}
	return nil
}

// VerifyBackupCode burns one backup code. Consumption is a single atomic
// store operation: when two requests race on the same code, exactly one
// succeeds and the other gets ErrInvalidBackupCode.
func (s *MFAService) VerifyBackupCode(ctx context.Context, userID, code string) error {
	rec, err := s.Store.MFA().GetMFARecord(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMFANotEnabled
		}
		return fmt.Errorf("failed to read mfa record: %w", err)
	}
	if !rec.Enabled {
		return ErrMFANotEnabled
	}

	ok, err := s.Store.BackupCodes().ConsumeBackupCode(ctx, userID, cryptox.FingerprintToken(code))
	if err != nil {
		return fmt.Errorf("failed to consume backup code: %w", err)
	}
	if !ok {
		return ErrInvalidBackupCode
	}
	return nil
}

// RemainingBackupCodes reports how many backup codes the user has left.
func (s *MFAService) RemainingBackupCodes(ctx context.Context, userID string) (int, error) {
	return s.Store.BackupCodes().CountUnusedBackupCodes(ctx, userID)
}

// Disable turns MFA off after a valid TOTP code, wiping the secret and all
// backup codes.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	if err := s.VerifyCode(ctx, userID, code); err != nil {
		return err
	}

	if err := s.Store.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if err := s.Store.MFA().DeleteMFARecord(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete mfa record: %w", err)
	}
	if err := s.Store.Users().SetMFAEnabled(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to clear user mfa flag: %w", err)
	}
	return nil
}

// validateCode accepts codes from the window [now-Skew*30s, now+Skew*30s].
func (s *MFAService) validateCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      s.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
