package domain

import (
	"strings"
	"time"
)

// Card format rules per network. CIB numbers are 19 digits starting with the
// interbank issuer prefix; EDAHABIA (Algérie Poste) numbers are 16 digits.
const (
	cibLength      = 19
	cibPrefix      = "6"
	edahabiaLength = 16
)

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateCardNumber checks the number format for the given network.
// Whitespace is stripped before validation.
func ValidateCardNumber(network PaymentMode, number string) error {
	number = stripSpaces(number)
	if !allDigits(number) {
		return ErrValidation("card number must contain only digits")
	}
	switch network {
	case ModeCIB:
		if len(number) != cibLength {
			return ErrValidation("CIB card number must be 19 digits")
		}
		if !strings.HasPrefix(number, cibPrefix) {
			return ErrValidation("CIB card number must start with " + cibPrefix)
		}
	case ModeEdahabia:
		if len(number) != edahabiaLength {
			return ErrValidation("EDAHABIA card number must be 16 digits")
		}
	default:
		return ErrValidation("unsupported card network")
	}
	return nil
}

// ValidateExpiry builds the expiry from a 2-digit year and 1-based month and
// rejects dates strictly before now. The card is valid through the last day
// of its expiry month.
func ValidateExpiry(month, year int, now time.Time) error {
	if month < 1 || month > 12 {
		return ErrValidation("expiry month must be between 1 and 12")
	}
	if year < 0 || year > 99 {
		return ErrValidation("expiry year must be two digits")
	}
	// first day of the month after expiry
	expiry := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if expiry.Before(now) || expiry.Equal(now) {
		return ErrValidation("card is expired")
	}
	return nil
}

// ValidateCVV: 3 digits for CIB, 3 or 4 for EDAHABIA.
func ValidateCVV(network PaymentMode, value string) error {
	if !allDigits(value) {
		return ErrValidation("cvv must contain only digits")
	}
	switch network {
	case ModeCIB:
		if len(value) != 3 {
			return ErrValidation("CIB cvv must be 3 digits")
		}
	case ModeEdahabia:
		if len(value) < 3 || len(value) > 4 {
			return ErrValidation("EDAHABIA cvv must be 3 or 4 digits")
		}
	default:
		return ErrValidation("unsupported card network")
	}
	return nil
}

// CardLast4 returns the last four digits of the (space-stripped) number.
func CardLast4(number string) string {
	number = stripSpaces(number)
	if len(number) < 4 {
		return number
	}
	return number[len(number)-4:]
}
