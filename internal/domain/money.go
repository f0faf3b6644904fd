package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a DZD amount held in minor units (centimes). All arithmetic and
// persistence uses the integer value; the decimal form exists only at the API
// and gateway boundaries.
type Amount int64

// ParseAmount converts a decimal string such as "1200.00" or "199.99" into
// minor units. At most two fraction digits are accepted; the conversion is
// exact, no floating point is involved.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fraction digits", s)
	}
	if !allDigitsOrEmpty(whole) || !allDigitsOrEmpty(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var f int64
	if frac != "00" {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}
	return Amount(w*100 + f), nil
}

func allDigitsOrEmpty(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// AmountFromMinor wraps a raw minor-unit integer.
func AmountFromMinor(v int64) Amount { return Amount(v) }

// Minor returns the integer minor-unit value sent to the gateway.
func (a Amount) Minor() int64 { return int64(a) }

// String renders the decimal DZD form with two fraction digits.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON emits the decimal string form so API clients never see raw
// centimes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
