package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DefaultEncodings is the decode order for uploaded bytes: strict UTF-8
// first, windows-1251 as the fallback.
func DefaultEncodings() []string {
	return []string{"utf-8", "windows-1251"}
}

// DecodeText decodes raw document bytes by attempting each named encoding in
// order and returning the first success. "utf-8" succeeds only when the
// bytes are valid UTF-8; "windows-1251" maps every byte value, so placing it
// last makes it a catch-all fallback.
func DecodeText(data []byte, encodings []string) (string, error) {
	if len(encodings) == 0 {
		encodings = DefaultEncodings()
	}
	for _, name := range encodings {
		switch strings.ToLower(name) {
		case "utf-8", "utf8":
			if utf8.Valid(data) {
				return string(data), nil
			}
		case "windows-1251", "cp1251":
			decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
			if err == nil {
				return string(decoded), nil
			}
		default:
			return "", fmt.Errorf("unsupported encoding %q", name)
		}
	}
	return "", fmt.Errorf("text is not decodable as any of: %s", strings.Join(encodings, ", "))
}
