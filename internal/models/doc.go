// Package models defines the entities moved between two Spotify accounts.
//
// The package contains three categories of types:
//
// 1. Library projections: the slices of a user's library read from the source account
//   - [LibrarySnapshot] : all five entity sequences of one account
//   - [PlaylistSummary], [SavedTrack], [SavedAlbum], [FollowedArtist], [SavedShow]
//
// 2. Transfer values: what to copy and what happened
//   - [TransferSelection] : entity flags plus the IDs chosen for each type
//   - [TransferResult] : ordered success and failure entries
//
// 3. Persistent records: optional local history
//   - [PlaylistTransfer] : ledger row for a playlist created on a target account
//   - [TransferRun] : one completed transfer
//
// JSON field names follow the web client's wire format so snapshots and results can be served as-is.
package models
