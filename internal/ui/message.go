package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLibraryFetched MsgKind = iota
	MsgProgressUpdate
	MsgTransferComplete
)

type libraryFetched struct {
	snapshot *models.LibrarySnapshot
	err      error
}

type transferComplete struct {
	result *models.TransferResult
	err    error
	warn   error
}

// libraryFetchedMsg is the constructor for [MsgLibraryFetched]
func libraryFetchedMsg(snapshot *models.LibrarySnapshot, err error) Msg {
	return Msg{kind: MsgLibraryFetched, data: libraryFetched{snapshot, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// transferCompleteMsg is the constructor for [MsgTransferComplete].
// warn carries a failure from the completion hook, which does not fail the transfer.
func transferCompleteMsg(result *models.TransferResult, err, warn error) Msg {
	return Msg{kind: MsgTransferComplete, data: transferComplete{result, err, warn}}
}
