// Package authbackend provides the token and session lifecycle engine for
// an authentication service: signed JWT access tokens, opaque persisted
// refresh tokens, single-use password reset tokens, and periodic sweeps of
// expired rows.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authbackend is the public surface. It exposes [Engine], [Builder],
// [Config], the store interfaces, and value types. Transport concerns
// (HTTP handlers, routing, rate limiting middleware) live in
// internal/httpapi and middleware; persistence implementations live
// under stores/.
//
// # What this package must NOT do
//
//   - Expose database handles, Redis clients, or encoding details in its
//     public API.
//   - Perform I/O during construction (Builder is allocation-only until
//     Build).
//   - Import any sub-package that re-imports authbackend.
package authbackend
