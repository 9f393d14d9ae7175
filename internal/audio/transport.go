package audio

import (
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/antoniostano/reelstudio/internal/apperr"
)

// EncodeTransport renders audio bytes in the wire encoding used by the speech capability.
func EncodeTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeTransport is the inverse of EncodeTransport. Line breaks and spaces inside the
// payload are ignored; any other invalid input fails with a malformed-data error rather
// than returning a truncated buffer.
func DecodeTransport(encoded string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, encoded)
	if clean == "" {
		return nil, apperr.MalformedData("empty audio payload", nil)
	}

	enc := base64.StdEncoding.Strict()
	if len(clean)%4 != 0 && !strings.HasSuffix(clean, "=") {
		enc = base64.RawStdEncoding.Strict()
	}
	out, err := enc.DecodeString(clean)
	if err != nil {
		return nil, apperr.MalformedData("invalid base64 audio payload", err)
	}
	if len(out) == 0 {
		return nil, apperr.MalformedData("empty audio payload", nil)
	}
	return out, nil
}
