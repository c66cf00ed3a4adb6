// Package core provides the lockmark file operations.
//
// Core operations include:
//   - EncryptFile/DecryptFile: whole-file envelopes stored as <file>.locked
//   - SealFile/UnsealFile: inline markers embedded in ordinary text files
//   - Hints: read envelope and marker hints without a password
//   - ChangePassword: re-encrypt an envelope or every marker under a new password
//   - Diff/Status/Compact: inspect protected files and maintain the index
//
// Conflict resolution during decrypt supports multiple strategies:
//   - Keep local version
//   - Use decrypted version (overwrite)
//   - Edit merged (opens $EDITOR with git-style conflict markers)
//   - Keep both (saves decrypted version as .decrypted)
package core
