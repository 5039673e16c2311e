package util

import (
	"errors"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrMissingFields    = errors.New("please fill in all fields")
	ErrInvalidEmail     = errors.New("please enter a valid email address")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password is too short")
	ErrInvalidGender    = errors.New("gender must be one of male, female, other")
)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// RequireFields 任一字段为空白即返回 ErrMissingFields
func RequireFields(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return ErrMissingFields
		}
	}
	return nil
}
