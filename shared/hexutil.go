package shared

import (
	"encoding/hex"
	"strings"
)

// DecodeHex decodes a hex string, tolerating a 0x prefix and surrounding whitespace
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
