package domain

import "time"

// OTPChallenge is a pending second-factor check created by a successful
// password login. It is single use.
type OTPChallenge struct {
	Reference string
	CodeHash  string
	AccountID string
	Role      Role
	Email     string
	Attempts  int
	ExpiresAt time.Time
}

// Expired reports whether the challenge is past its expiry at now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ResetToken permits one password change. Only the SHA-256 of the raw token
// is ever stored.
type ResetToken struct {
	TokenHash string
	AccountID string
	Role      Role
	ExpiresAt time.Time
}

// NotificationKind identifies the template used for an outbound message.
type NotificationKind string

const (
	NotificationOTP           NotificationKind = "otp"
	NotificationPasswordReset NotificationKind = "password_reset"
)

// Notification is an out-of-band message to an account holder.
type Notification struct {
	Kind    NotificationKind
	To      string
	Subject string
	Body    string
}
