package links

import (
	"crypto/rand"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	DefaultCodeLength = 8
	AnonymousIDLength = 12

	// largest multiple of 62 that fits in a byte; bytes at or above it are
	// rejected so every symbol keeps the same probability
	acceptBelow = 248
)

type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() *RandomCodeGenerator { return &RandomCodeGenerator{} }

func (g *RandomCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= acceptBelow {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
