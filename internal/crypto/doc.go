// Package crypto provides cryptographic operations for lockmark.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from password via PBKDF2
//   - 16-byte random iv per encryption operation
//   - 16-byte authentication tag kept apart from the ciphertext
//
// Key derivation uses PBKDF2-HMAC-SHA512 with:
//   - 16-byte random salt (stored unencrypted next to the ciphertext)
//   - 210,000 iterations
//
// The sizes and the iteration count are part of the on-disk format and
// are not configurable.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
package crypto
