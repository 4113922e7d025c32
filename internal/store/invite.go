package store

import (
	"crypto/rand"
	"fmt"
)

const (
	codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 8

	// Largest multiple of len(codeAlphabet) below 256, for unbiased
	// byte-to-symbol mapping.
	codeByteCeil = 252
)

// generateCode draws an invite code of codeLength symbols uniformly from
// the lowercase alphanumeric alphabet.
func generateCode() (string, error) {
	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)

	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= codeByteCeil {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}

	return string(out), nil
}
