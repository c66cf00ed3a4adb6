// Package git checks whether decrypted plaintext files are exposed to git.
//
// Checks performed:
//   - Whether decrypted files are tracked by git (should not be)
//   - Whether decrypted files are in .gitignore (should be)
//
// These checks help users avoid accidentally committing the plaintext
// that lockmark decrypt writes next to an envelope.
package git
