package utils

import (
	"bytes"
	"unicode/utf8"
)

// sniffLength bounds the prefix searched for NUL bytes when detecting binary content.
const sniffLength = 8000

// IsBinary reports whether the provided byte slice appears to contain binary data:
// either it is not valid UTF-8 or a NUL byte appears within the first sniffLength bytes.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if !utf8.Valid(data) {
		return true
	}
	prefix := data
	if len(prefix) > sniffLength {
		prefix = prefix[:sniffLength]
	}
	return bytes.IndexByte(prefix, 0) >= 0
}
