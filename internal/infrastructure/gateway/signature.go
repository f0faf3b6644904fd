package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the HMAC-SHA256 signature over the payload fields, keys
// sorted lexicographically and joined as key=value&key=value. The receiver
// recomputes the exact same byte string, so ordering must never depend on map
// iteration.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes and compares in constant time. hmac.Equal never
// short-circuits on the first differing byte.
func VerifySignature(fields map[string]string, signature, secret string) bool {
	expected := Sign(fields, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
