// Package password implements password hashing and verification with Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports when a stored hash was produced with weaker
// parameters than the current configuration, so callers can re-hash on the
// next successful login.
//
// This package owns hashing and verification only. It never stores
// passwords and never logs plaintext or hash parameters.
package password
