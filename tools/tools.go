package tools

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CheckSecret compares a submitted password with the configured one. The configured
// value may be plain text or "sha512:<hex>"; comparison is constant time.
func CheckSecret(configured, submitted string) bool {
	if configured == "" {
		return false
	}
	want := configured
	got := submitted
	if h, ok := strings.CutPrefix(configured, "sha512:"); ok {
		want = strings.ToLower(h)
		got = EncryptTextSHA512(submitted)
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
