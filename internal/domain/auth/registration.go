package auth

import (
	"net/mail"
	"regexp"
	"strings"

	apperrors "github.com/target/principal-auth/internal/errors"
)

const (
	minFullNameLen = 3
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes; reject instead of silently truncating.
	maxPasswordLen = 72
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Profile is the principal data forwarded to the identity peer on creation.
type Profile struct {
	FullName    string `json:"full_name"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
}

// RegistrationInfo is a signup request. Password never leaves this service.
type RegistrationInfo struct {
	Profile
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace from the profile fields.
func (r *RegistrationInfo) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Username = strings.TrimSpace(r.Username)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Validate checks the registration payload.
func (r RegistrationInfo) Validate() error {
	if len(r.FullName) < minFullNameLen {
		return apperrors.ValidationField("full_name", "full name must be at least 3 characters")
	}
	if r.Username == "" {
		return apperrors.ValidationField("username", "username is required")
	}
	if addr, err := mail.ParseAddress(r.Username); err != nil || addr.Address != r.Username {
		return apperrors.ValidationField("username", "username must be a valid email address")
	}
	if !phonePattern.MatchString(r.PhoneNumber) {
		return apperrors.ValidationField("phone_number", "phone number must be exactly 10 digits")
	}
	if len(r.Password) < minPasswordLen {
		return apperrors.ValidationField("password", "password must be at least 6 characters")
	}
	if len(r.Password) > maxPasswordLen {
		return apperrors.ValidationField("password", "password must be at most 72 bytes")
	}
	return nil
}
