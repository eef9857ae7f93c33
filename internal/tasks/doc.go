// Package tasks moves a Spotify library from one account to another with progress reporting.
//
// # Core Operations
//
// [Engine] provides two operations:
//
//  1. [Engine.FetchLibrary] : Read a complete library snapshot
//     - Playlists, saved tracks, saved albums, followed artists and saved shows are read concurrently
//     - The first failure cancels the remaining reads and is returned
//
//  2. [Engine.Transfer] : Replay a selection against a target account
//     - Bulk types (tracks, albums, artists, podcasts) are written in batches of 50
//     - Playlists are recreated one at a time, their items added in batches of 100
//     - Every batch and playlist produces exactly one entry in the [models.TransferResult]
//     - A failure never stops later batches, types or playlists
//
// # Progress Reporting
//
// Operations call an optional [ProgressFunc] once per completed unit of work. [ProgressUpdate]
// carries the phase, step counters and running attempted/succeeded/failed item counts.
// [ChannelProgress] adapts a channel for callers that prefer one; sends never block.
//
// # Playlist Ledger
//
// The optional [PlaylistLedger] records playlists created on a target account
// (repositories.PlaylistLedger backs it with SQLite). With [TransferOpts.SkipTransferred]
// a playlist already recorded for the same target user is reported as skipped instead of being created again.
package tasks
