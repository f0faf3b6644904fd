package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureRoundTrip(t *testing.T) {
	fields := map[string]string{
		"orderId":    "ORD-2026-0001",
		"amount":     "120000",
		"status":     "success",
		"actionCode": "00",
	}
	sig := Sign(fields, "s3cret")
	assert.True(t, VerifySignature(fields, sig, "s3cret"))
}

func TestSignatureFlipAnyFieldFails(t *testing.T) {
	fields := map[string]string{
		"orderId":    "ORD-2026-0001",
		"amount":     "120000",
		"status":     "success",
		"actionCode": "00",
	}
	sig := Sign(fields, "s3cret")

	for k := range fields {
		mutated := make(map[string]string, len(fields))
		for mk, mv := range fields {
			mutated[mk] = mv
		}
		mutated[k] = mutated[k] + "x"
		assert.False(t, VerifySignature(mutated, sig, "s3cret"), "flipped %s", k)
	}
}

func TestSignatureWrongKeyFails(t *testing.T) {
	fields := map[string]string{"a": "1"}
	sig := Sign(fields, "key-one")
	assert.False(t, VerifySignature(fields, sig, "key-two"))
}

func TestSignatureDeterministicOrdering(t *testing.T) {
	// identical content must always produce the same digest regardless of
	// insertion order
	a := map[string]string{"z": "26", "a": "1", "m": "13"}
	b := map[string]string{"m": "13", "z": "26", "a": "1"}
	assert.Equal(t, Sign(a, "k"), Sign(b, "k"))
}
