// Package jwt wraps github.com/golang-jwt/jwt/v5 behind a small Manager that
// issues and verifies the short-lived access tokens used by the engine.
// Tokens are stateless: the server keeps no record of them, and validity is
// decided entirely by signature verification and expiry comparison.
package jwt
