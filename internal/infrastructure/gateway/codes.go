package gateway

// Gateway action/response codes. The table is wire-compatible with the CIB
// interbank switch; unknown codes map to a generic decline.
const ActionApproved = "00"

var responseMessages = map[string]string{
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

// CodeApproved reports whether the action code means the operation went
// through.
func CodeApproved(code string) bool { return code == ActionApproved }

// CodeMessage returns the human message for a gateway code.
func CodeMessage(code string) string {
	if m, ok := responseMessages[code]; ok {
		return m
	}
	return "transaction declined"
}
