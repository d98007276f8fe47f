package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomString(t *testing.T) {
	t.Run("generates requested length", func(t *testing.T) {
		for _, length := range []int{1, 6, 8, 32} {
			s, err := NewRandomString(length)
			require.NoError(t, err)
			assert.Len(t, s, length)
		}
	})

	t.Run("uses only alphabet characters", func(t *testing.T) {
		s, err := NewRandomString(64)
		require.NoError(t, err)
		for _, c := range s {
			assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected character %q", c)
		}
	})

	t.Run("successive strings differ", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			s, err := NewRandomString(6)
			require.NoError(t, err)
			assert.False(t, seen[s], "duplicate string %q after %d draws", s, i)
			seen[s] = true
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		_, err := NewRandomString(0)
		assert.Error(t, err)
		_, err = NewRandomString(-1)
		assert.Error(t, err)
	})
}
