package domain

import "time"

// MFARecord holds a user's TOTP enrollment state. The record is created
// during setup but only marked enabled after the user proves their
// authenticator works by submitting a valid code.
type MFARecord struct {
	UserID    string
	Secret    string // base32 TOTP secret
	Enabled   bool
	CreatedAt time.Time
	EnabledAt *time.Time
}

// MFASetup is returned once, at enrollment time. Backup codes are never
// re-displayed; the store keeps only their fingerprints.
type MFASetup struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}
