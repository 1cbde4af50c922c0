package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthRequestValidator validates authentication-related requests
type AuthRequestValidator struct{}

// NewAuthRequestValidator creates a new AuthRequestValidator
func NewAuthRequestValidator() *AuthRequestValidator {
	return &AuthRequestValidator{}
}

// ValidateName validates a display name
func (v *AuthRequestValidator) ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name cannot be empty")
	}

	if n := utf8.RuneCountInString(name); n > 100 {
		return fmt.Errorf("name must be at most 100 characters long, got %d", n)
	}

	return nil
}

// ValidatePassword validates a password
func (v *AuthRequestValidator) ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long, got %d", len(password))
	}

	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long, got %d", len(password))
	}

	return nil
}

// ValidateEmail validates an email address (basic validation)
func (v *AuthRequestValidator) ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}

	if !emailRegex.MatchString(email) {
		return errors.New("please enter a valid email address")
	}

	if len(email) > 255 {
		return fmt.Errorf("email must be at most 255 characters long, got %d", len(email))
	}

	return nil
}

// ValidateSignInRequest validates a sign-in request
func (v *AuthRequestValidator) ValidateSignInRequest(email, password string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}

	if password == "" {
		return errors.New("password cannot be empty")
	}

	return nil
}

// ValidateSignUpRequest validates a sign-up request
func (v *AuthRequestValidator) ValidateSignUpRequest(name, email, password string) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}

	if err := v.ValidateEmail(email); err != nil {
		return err
	}

	if err := v.ValidatePassword(password); err != nil {
		return err
	}

	return nil
}

// ValidatePasswordUpdate validates a new password and its confirmation
func (v *AuthRequestValidator) ValidatePasswordUpdate(password, confirm string) error {
	if err := v.ValidatePassword(password); err != nil {
		return err
	}

	if password != confirm {
		return errors.New("passwords do not match")
	}

	return nil
}
