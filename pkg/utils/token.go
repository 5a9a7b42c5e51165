package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateAccessToken returns an opaque URL-safe token used for registrant
// self-service lookups.
func GenerateAccessToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}
