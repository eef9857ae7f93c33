// Package repositories implements SQLite persistence for transfer bookkeeping.
//
// Key Implementations:
//   - [PlaylistLedger] : playlists already created on a target account, keyed by source playlist and target user
//   - [RunRepository] : one row per completed transfer with its counts and full result
//
// Both are optional. Callers open a database with [shared.OpenDatabase] only when a path is configured.
package repositories
