package auth

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePasswordClasses(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := GeneratePassword(rand.Reader, 12)
		require.NoError(t, err)
		require.Len(t, pw, 12)
		require.True(t, strings.ContainsAny(pw, passwordUpper), "missing uppercase: %q", pw)
		require.True(t, strings.ContainsAny(pw, passwordLower), "missing lowercase: %q", pw)
		require.True(t, strings.ContainsAny(pw, passwordDigits), "missing digit: %q", pw)
	}
}

func TestGeneratePasswordTooShort(t *testing.T) {
	_, err := GeneratePassword(rand.Reader, 2)
	require.Error(t, err)
}
