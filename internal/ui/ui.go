package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/shared"
	"github.com/desertthunder/sptx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	TypesView
	PlaylistsView
	ConfirmView
	TransferView
	ResultView
)

// Account names one side of the transfer.
type Account struct {
	Name  string
	Token string
}

// Options configures a [Model].
type Options struct {
	Engine   *tasks.Engine
	Source   Account
	Target   Account
	Transfer tasks.TransferOpts
	Logger   *log.Logger

	// OnComplete runs after every transfer, e.g. to record history. Its error is shown as a warning.
	OnComplete func(ctx context.Context, result *models.TransferResult, started time.Time) error
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	opts Options
	view ViewState

	width  int
	height int

	snapshot     *models.LibrarySnapshot
	flags        models.SelectionFlags
	typeCursor   int
	playlistList list.Model
	selected     map[string]bool
	notice       string

	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	bar          progress.Model
	spinner      spinner.Model

	result *models.TransferResult
	warn   error
	err    error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Model{
		ctx:      ctx,
		opts:     opts,
		view:     LoadingView,
		selected: map[string]bool{},
		bar:      progress.New(progress.WithDefaultGradient()),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts reading the source library.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchLibrary())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 20)
		if m.snapshot != nil {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != LoadingView && m.view != TransferView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.err != nil && m.view != ResultView {
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}
		switch m.view {
		case LoadingView, TransferView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case TypesView:
			return m.handleTypesKeys(msg)
		case PlaylistsView:
			return m.handlePlaylistsKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == PlaylistsView {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLibraryFetched:
		data := msg.data.(libraryFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.setSnapshot(data.snapshot)
		m.view = TypesView
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgTransferComplete:
		data := msg.data.(transferComplete)
		m.result, m.err, m.warn = data.result, data.err, data.warn
		m.progressChan, m.doneChan = nil, nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) setSnapshot(snapshot *models.LibrarySnapshot) {
	m.snapshot = snapshot
	m.selected = map[string]bool{}

	items := make([]list.Item, len(snapshot.Playlists))
	for i, p := range snapshot.Playlists {
		items[i] = playlistItem{playlist: p}
	}
	m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.playlistList.Title = "Choose playlists to copy"
	m.playlistList.SetShowHelp(false)
	m.playlistList.SetSize(m.width-4, m.height-8)
}

func (m *Model) handleTypesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		if m.typeCursor > 0 {
			m.typeCursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.typeCursor < len(typeOptions)-1 {
			m.typeCursor++
		}
	case key.Matches(msg, m.keys.toggle):
		if f := flagFor(&m.flags, typeOptions[m.typeCursor].kind); f != nil {
			*f = !*f
		}
	case key.Matches(msg, m.keys.all):
		if m.flags.Any() {
			m.flags = models.SelectionFlags{}
		} else {
			m.flags = models.AllTypes()
		}
	case key.Matches(msg, m.keys.enter):
		switch {
		case !m.flags.Any():
			m.notice = "Select at least one type"
		case m.flags.Playlists && len(m.snapshot.Playlists) > 0:
			m.view = PlaylistsView
		default:
			m.view = ConfirmView
		}
	}
	return m, nil
}

func (m *Model) handlePlaylistsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	m.notice = ""
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.playlistList.FilterState() == list.FilterApplied {
			break
		}
		m.view = TypesView
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.setSelected(item.playlist.ID, !m.selected[item.playlist.ID])
		}
		return m, nil
	case key.Matches(msg, m.keys.all):
		on := len(m.selectedIDs()) < len(m.snapshot.Playlists)
		for _, p := range m.snapshot.Playlists {
			m.setSelected(p.ID, on)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if len(m.selectedIDs()) == 0 {
			m.notice = "Select at least one playlist, or go back and untick Playlists"
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

// setSelected updates the selection and the matching list row.
func (m *Model) setSelected(id string, on bool) {
	if on {
		m.selected[id] = true
	} else {
		delete(m.selected, id)
	}
	for i, it := range m.playlistList.Items() {
		if item, ok := it.(playlistItem); ok && item.playlist.ID == id {
			item.selected = on
			m.playlistList.SetItem(i, item)
			return
		}
	}
}

// selectedIDs returns the chosen playlists in library order.
func (m *Model) selectedIDs() []string {
	ids := []string{}
	for _, p := range m.snapshot.Playlists {
		if m.selected[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Selection is the transfer the current choices describe.
func (m *Model) Selection() models.TransferSelection {
	flags := m.flags
	ids := m.selectedIDs()
	if len(ids) == 0 {
		flags.Playlists = false
	}
	return models.NewSelection(m.snapshot, flags, ids)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		if m.flags.Playlists && len(m.snapshot.Playlists) > 0 {
			m.view = PlaylistsView
		} else {
			m.view = TypesView
		}
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = TransferView
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.startTransfer())
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.result, m.err, m.warn = nil, nil, nil
		m.flags = models.SelectionFlags{}
		m.typeCursor = 0
		m.view = LoadingView
		return m, tea.Batch(m.spinner.Tick, m.fetchLibrary())
	}
	return m, nil
}

func (m *Model) fetchLibrary() tea.Cmd {
	engine, token := m.opts.Engine, m.opts.Source.Token
	return func() tea.Msg {
		snapshot, err := engine.FetchLibrary(m.ctx, token, nil)
		return libraryFetchedMsg(snapshot, err)
	}
}

func (m *Model) startTransfer() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.doneChan = make(chan Msg, 1)

	ctx, opts, sel := m.ctx, m.opts, m.Selection()
	progressChan, doneChan := m.progressChan, m.doneChan
	transferOpts := opts.Transfer
	transferOpts.Progress = tasks.ChannelProgress(progressChan)

	go func() {
		started := time.Now()
		result, err := opts.Engine.Transfer(ctx, opts.Source.Token, opts.Target.Token, sel, transferOpts)

		var warn error
		if opts.OnComplete != nil && result != nil {
			if warn = opts.OnComplete(ctx, result, started); warn != nil {
				opts.Logger.Warn("failed to record transfer", "error", warn)
			}
		}
		doneChan <- transferCompleteMsg(result, err, warn)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if doneChan == nil {
			return nil
		}
		select {
		case update := <-progressChan:
			return progressUpdateMsg(update)
		case msg := <-doneChan:
			return msg
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render("Error: "+m.err.Error()) + "\n\nPress q to quit"
	}

	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case TypesView:
		return m.renderTypes()
	case PlaylistsView:
		return m.renderPlaylists()
	case ConfirmView:
		return m.renderConfirm()
	case TransferView:
		return m.renderTransfer()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}
