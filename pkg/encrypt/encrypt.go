package encrypt

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt.DefaultCost = 10
const bcryptCost = bcrypt.DefaultCost

// 定義錯誤信息
var (
	ErrWeakPassword     = errors.New("password does not meet strength requirements")
	ErrPasswordMismatch = errors.New("password does not match")
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#\$%\^&\*]`)
)

// ValidatePasswordStrength 驗證密碼強度
func ValidatePasswordStrength(password string) error {
	switch {
	case len(password) < 8:
		return fmt.Errorf("%w: at least 8 characters", ErrWeakPassword)
	case len(password) > 72:
		// bcrypt ignores everything after 72 bytes
		return fmt.Errorf("%w: at most 72 bytes", ErrWeakPassword)
	case !upperRe.MatchString(password):
		return fmt.Errorf("%w: needs an uppercase letter", ErrWeakPassword)
	case !digitRe.MatchString(password):
		return fmt.Errorf("%w: needs a digit", ErrWeakPassword)
	case !specialRe.MatchString(password):
		return fmt.Errorf("%w: needs one of !@#$%%^&*", ErrWeakPassword)
	}
	return nil
}

// HashPassword 將密碼進行加密
func HashPassword(password string) (string, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword 驗證密碼是否匹配
func CheckPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
