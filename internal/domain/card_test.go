package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCardNumberCIB(t *testing.T) {
	valid := "6" + strings.Repeat("2", 18)
	assert.NoError(t, ValidateCardNumber(ModeCIB, valid))
	// whitespace stripped before validation
	assert.NoError(t, ValidateCardNumber(ModeCIB, "6280 5810 0000 0000 111"))

	assert.Error(t, ValidateCardNumber(ModeCIB, strings.Repeat("6", 18)), "too short")
	assert.Error(t, ValidateCardNumber(ModeCIB, "4"+strings.Repeat("2", 18)), "wrong prefix")
	assert.Error(t, ValidateCardNumber(ModeCIB, "6280a81000000000011"), "non-digit")
}

func TestValidateCardNumberEdahabia(t *testing.T) {
	assert.NoError(t, ValidateCardNumber(ModeEdahabia, strings.Repeat("9", 16)))
	assert.Error(t, ValidateCardNumber(ModeEdahabia, strings.Repeat("9", 15)))
	assert.Error(t, ValidateCardNumber(ModeEdahabia, strings.Repeat("9", 19)))
}

func TestValidateCardNumberCash(t *testing.T) {
	assert.Error(t, ValidateCardNumber(ModeCash, strings.Repeat("9", 16)))
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateExpiry(6, 26, now), "expires end of current month")
	assert.NoError(t, ValidateExpiry(12, 28, now))
	assert.Error(t, ValidateExpiry(5, 26, now), "expired last month")
	assert.Error(t, ValidateExpiry(12, 20, now), "expired years ago")
	assert.Error(t, ValidateExpiry(13, 27, now), "bad month")
	assert.Error(t, ValidateExpiry(0, 27, now), "bad month")
}

func TestValidateCVV(t *testing.T) {
	assert.NoError(t, ValidateCVV(ModeCIB, "123"))
	assert.Error(t, ValidateCVV(ModeCIB, "1234"))
	assert.NoError(t, ValidateCVV(ModeEdahabia, "123"))
	assert.NoError(t, ValidateCVV(ModeEdahabia, "1234"))
	assert.Error(t, ValidateCVV(ModeEdahabia, "12"))
	assert.Error(t, ValidateCVV(ModeCIB, "12a"))
}

func TestCardLast4(t *testing.T) {
	assert.Equal(t, "1111", CardLast4("6280 5810 0000 0001 111"))
	assert.Equal(t, "4321", CardLast4("9999888877774321"))
}
