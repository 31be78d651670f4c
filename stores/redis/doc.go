// Package redisstore implements the store interfaces on Redis.
//
// # Design
//
// Each row is a versioned, binary-encoded record under a prefixed key.
// Token records carry their own expiry instant instead of a Redis TTL:
// expired rows must stay observable until a sweep or a validation
// removes them, which a TTL would not allow. Sweeps SCAN the keyspace
// and delete matching records. Redeem uses a WATCH/MULTI optimistic
// transaction with retry so that exactly one concurrent redemption of a
// token can win.
//
// # What this package must NOT do
//
//   - Make authentication decisions; it persists and mutates records only.
//   - Log or expose password hashes.
package redisstore
