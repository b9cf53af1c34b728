package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxNameLen     = 100
	maxEmailLen    = 254
)

// validateEmail normalizes and checks an address. Display names and
// anything else net/mail tolerates beyond a bare address are rejected.
func validateEmail(raw string) (string, error) {
	email := domain.NormalizeEmail(raw)
	if email == "" {
		return "", invalidInput("email", "is required")
	}
	if len(email) > maxEmailLen {
		return "", invalidInput("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalidInput("email", "is not a valid address")
	}
	return email, nil
}

func validatePassword(field, password string) error {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return invalidInput(field, "is required")
	case n < minPasswordLen:
		return invalidInput(field, "must be at least 8 characters")
	case n > maxPasswordLen:
		return invalidInput(field, "must be at most 128 characters")
	}
	return nil
}

func validateName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalidInput(field, "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", invalidInput(field, "is too long")
	}
	return name, nil
}

// emailDomain returns the part after '@' of an already validated address.
func emailDomain(email string) string {
	_, d, _ := strings.Cut(email, "@")
	return d
}
