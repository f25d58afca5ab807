package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	passwordUpper  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLower  = "abcdefghijkmnopqrstuvwxyz"
	passwordDigits = "23456789"
)

// GeneratePassword produces a temporary password of the given length from
// the supplied random source, guaranteed to contain at least one uppercase
// letter, one lowercase letter, and one digit. Callers pass crypto/rand;
// the source is a parameter so tests can supply a deterministic reader.
func GeneratePassword(random io.Reader, length int) (string, error) {
	if length < 3 {
		return "", fmt.Errorf("auth: password length %d too short", length)
	}

	alphabet := passwordUpper + passwordLower + passwordDigits
	buf := make([]byte, length)
	for i := range buf {
		c, err := randIndex(random, len(alphabet))
		if err != nil {
			return "", err
		}
		buf[i] = alphabet[c]
	}

	// Pin one character of each required class to a random position.
	classes := []string{passwordUpper, passwordLower, passwordDigits}
	positions, err := distinctPositions(random, length, len(classes))
	if err != nil {
		return "", err
	}
	for i, class := range classes {
		c, err := randIndex(random, len(class))
		if err != nil {
			return "", err
		}
		buf[positions[i]] = class[c]
	}

	return string(buf), nil
}

func randIndex(random io.Reader, n int) (int, error) {
	v, err := randInt(random, n)
	if err != nil {
		return 0, fmt.Errorf("auth: read random: %w", err)
	}
	return v, nil
}

func randInt(random io.Reader, n int) (int, error) {
	v, err := rand.Int(random, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func distinctPositions(random io.Reader, length, count int) ([]int, error) {
	positions := make([]int, 0, count)
	for len(positions) < count {
		p, err := randIndex(random, length)
		if err != nil {
			return nil, err
		}
		taken := false
		for _, q := range positions {
			if q == p {
				taken = true
				break
			}
		}
		if !taken {
			positions = append(positions, p)
		}
	}
	return positions, nil
}
