package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// csrfTokenBytes is the entropy of a CSRF token (hex-encoded on the wire).
const csrfTokenBytes = 32

// GenerateCSRFToken returns a fresh random CSRF token. One token is issued
// per session and survives rotation, so a page rendered before a rotation
// keeps submitting successfully after it.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// VerifyCSRFToken compares a submitted token against the session's token in
// constant time. Empty values never match.
func VerifyCSRFToken(sessionToken, providedToken string) bool {
	if sessionToken == "" || providedToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sessionToken), []byte(providedToken)) == 1
}
