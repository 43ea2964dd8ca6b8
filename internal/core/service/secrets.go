package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

const (
	otpMin         = 100000
	otpSpan        = 900000
	resetTokenSize = 32
)

// generateOTP returns a six digit code without a leading zero, so it survives
// being sent as a JSON number.
func generateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return 0, err
	}
	return otpMin + int(n.Int64()), nil
}

// hashOTP salts and hashes the code as "<salt>:<sha256>".
func hashOTP(code int) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	return saltStr + ":" + otpDigest(saltStr, code), nil
}

func checkOTP(code int, stored string) bool {
	saltStr, expected, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(otpDigest(saltStr, code)), []byte(expected)) == 1
}

func otpDigest(salt string, code int) string {
	sum := sha256.Sum256([]byte(salt + ":" + strconv.Itoa(code)))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func generateResetToken() (string, error) {
	b := make([]byte, resetTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func otpNotification(to string, code int, expiresAt time.Time) domain.Notification {
	return domain.Notification{
		Kind:    domain.NotificationOTP,
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf("Your verification code is %d.\nIt expires at %s UTC.\n",
			code, expiresAt.UTC().Format(time.RFC3339)),
	}
}

func resetNotification(to, resetURL, token string, expiresAt time.Time) domain.Notification {
	link := token
	if resetURL != "" {
		sep := "?"
		if strings.Contains(resetURL, "?") {
			sep = "&"
		}
		link = resetURL + sep + "token=" + token
	}
	return domain.Notification{
		Kind:    domain.NotificationPasswordReset,
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Use the link below to choose a new password:\n\n%s\n\nThe link expires at %s UTC.\n",
			link, expiresAt.UTC().Format(time.RFC3339)),
	}
}
