// Package cache keeps recently entered passwords for a bounded time.
//
// Entries are keyed by scope:
//   - file: one password per file path
//   - folder: one password per directory, relative to its project root
//   - workspace: one password for everything
//
// Expiry is checked lazily on every Get/Has and by a background sweep
// that runs once a minute between Start and Stop. A timeout of zero keeps
// entries until they are cleared.
//
// A Cache is owned by whoever creates it; there is no package-level
// instance.
package cache
