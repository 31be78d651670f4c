// Package middleware exposes HTTP adapters for the engine: per-client
// rate limiting on the guarded authentication paths and bearer-token
// authentication for protected handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It makes no
// authentication or throttling decisions itself; those belong to the
// engine and its limiter.
package middleware
