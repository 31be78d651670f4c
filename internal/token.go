// Package internal provides shared helpers that are not part of the
// public API surface.
package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const opaqueTokenBytes = 32

// NewOpaqueToken returns a fresh 256-bit random token encoded as
// unpadded base64url. Used for refresh tokens, which carry no claims
// and are looked up verbatim in the store.
func NewOpaqueToken() (string, error) {
	var raw [opaqueTokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
