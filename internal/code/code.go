// Package code generates the short, human-presentable codes that identify
// invites and visits.
package code

import (
	"crypto/rand"
	"strings"

	"github.com/karibu-campus/karibu/internal/apperr"
)

// Alphabet is the 32-symbol code alphabet. Visually ambiguous characters
// (0/O, 1/I/L) are excluded so codes survive being read aloud at a gate.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultLength is the standard code length.
const DefaultLength = 7

// maxAttempts bounds collision retries before giving up.
const maxAttempts = 50

// Random returns a random code of the given length.
func Random(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Persistence("reading random bytes", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Generate returns a code of the given length that is not in existing.
// Candidates colliding with existing are retried up to a bounded attempt
// count; exhaustion is an explicit failure, never a silent collision.
// Callers must still persist the code under a store uniqueness constraint,
// since existing is only a snapshot.
func Generate(existing map[string]bool, length int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c, err := Random(length)
		if err != nil {
			return "", err
		}
		if !existing[c] {
			return c, nil
		}
	}
	return "", apperr.KeyspaceExhausted("no unique %d-char code after %d attempts", length, maxAttempts)
}

// Normalize prepares a code received at a boundary for lookup: whitespace
// stripped, upper-cased.
func Normalize(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}
