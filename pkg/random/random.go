package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet is the 62-character set short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewRandomString generates a random alphanumeric string of the given length
// using crypto/rand.
func NewRandomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid random string length: %d", length)
	}

	result := make([]byte, length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		result[i] = Alphabet[n.Int64()]
	}

	return string(result), nil
}
