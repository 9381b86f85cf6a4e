package service

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet leaves out 0/O, 1/I/L to keep codes readable over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

type codeGenerator struct {
	length int
}

func newCodeGenerator(length int) *codeGenerator {
	if length <= 0 {
		length = 6
	}
	return &codeGenerator{length: length}
}

// Generate returns a random uppercase confirmation code with each character
// drawn uniformly from the alphabet. Uniqueness is enforced by the storage
// layer; this only supplies entropy.
func (g *codeGenerator) Generate() (string, error) {
	// Rejection sampling: a byte modulo 31 would favor the first eight
	// characters, so bytes past the largest multiple of 31 are redrawn.
	limit := byte(256 - 256%len(codeAlphabet))

	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length)
	for len(out) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
