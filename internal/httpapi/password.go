package httpapi

import (
	"errors"
	"strings"
	"unicode"
)

// passwordSymbols is the fixed punctuation set a password must draw its
// symbol from.
const passwordSymbols = "@$!%*?&"

// ErrWeakPassword is returned when a password fails the complexity policy.
var ErrWeakPassword = errors.New(
	"password should have a minimum of eight characters, at least one uppercase letter, " +
		"one lowercase letter, one number and one special character")

// ValidatePassword checks the registration password policy: at least 8
// characters, one lowercase, one uppercase, one digit, one symbol from
// passwordSymbols, and nothing outside those character classes.
//
// Postcondition: Returns nil for a conforming password, ErrWeakPassword otherwise.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}

	var lower, upper, digit, symbol bool
	for _, c := range password {
		switch {
		case unicode.IsLower(c) && c <= unicode.MaxASCII:
			lower = true
		case unicode.IsUpper(c) && c <= unicode.MaxASCII:
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, c):
			symbol = true
		default:
			return ErrWeakPassword
		}
	}

	if !lower || !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
