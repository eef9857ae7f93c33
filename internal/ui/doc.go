// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one account-to-account transfer:
//  1. [LoadingView] : read the source library
//  2. [TypesView] : tick the entity types to copy
//  3. [PlaylistsView] : pick playlists, when playlists are ticked
//  4. [ConfirmView] : review counts before any write
//  5. [TransferView] : progress bar fed by [tasks.ProgressUpdate]
//  6. [ResultView] : the transfer result, with restart
//
// Progress flows through a buffered channel filled by [tasks.ChannelProgress]; completion arrives on its own channel.
package ui
