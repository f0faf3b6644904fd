package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeMessageTable(t *testing.T) {
	cases := map[string]string{
		"00": "approved",
		"05": "authorization refused",
		"51": "insufficient funds",
		"54": "card expired",
		"33": "card expired",
		"61": "limit exceeded",
		"65": "limit exceeded",
		"91": "issuer unavailable",
		"96": "system error",
	}
	for code, msg := range cases {
		assert.Equal(t, msg, CodeMessage(code), code)
	}

	assert.Equal(t, "transaction declined", CodeMessage("42"))
	assert.True(t, CodeApproved("00"))
	assert.False(t, CodeApproved("05"))
}
