package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
)

// mockService is a scripted [services.Service]. Errors keyed by call name fail that call;
// saveErrs fails specific SaveToLibrary calls by their 1-based index per type.
type mockService struct {
	mu sync.Mutex

	user      *models.UserProfile
	playlists map[string]*services.SpotifyPlaylist
	uris      map[string][]string
	library   models.LibrarySnapshot

	errs     map[string]error
	saveErrs map[models.EntityType]map[int]error
	addErrs  map[int]error
	block    chan struct{}

	calls   []string
	saves   map[models.EntityType][][]string
	adds    map[string][][]string
	created []string
	nextID  int
}

func newMockService() *mockService {
	return &mockService{
		user:      &models.UserProfile{ID: "target-user"},
		playlists: map[string]*services.SpotifyPlaylist{},
		uris:      map[string][]string{},
		errs:      map[string]error{},
		saveErrs:  map[models.EntityType]map[int]error{},
		addErrs:   map[int]error{},
		saves:     map[models.EntityType][][]string{},
		adds:      map[string][][]string{},
	}
}

func (m *mockService) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.errs[call]
}

func (m *mockService) Me(ctx context.Context) (*models.UserProfile, error) {
	if err := m.record("me"); err != nil {
		return nil, err
	}
	return m.user, nil
}

func (m *mockService) Playlists(ctx context.Context) ([]models.PlaylistSummary, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.record("playlists"); err != nil {
		return nil, err
	}
	return m.library.Playlists, nil
}

func (m *mockService) SavedTracks(ctx context.Context) ([]models.SavedTrack, error) {
	if err := m.record("tracks"); err != nil {
		return nil, err
	}
	return m.library.SavedTracks, nil
}

func (m *mockService) SavedAlbums(ctx context.Context) ([]models.SavedAlbum, error) {
	if err := m.record("albums"); err != nil {
		return nil, err
	}
	return m.library.SavedAlbums, nil
}

func (m *mockService) FollowedArtists(ctx context.Context) ([]models.FollowedArtist, error) {
	if err := m.record("artists"); err != nil {
		return nil, err
	}
	return m.library.FollowedArtists, nil
}

func (m *mockService) SavedShows(ctx context.Context) ([]models.SavedShow, error) {
	if err := m.record("shows"); err != nil {
		return nil, err
	}
	return m.library.SavedShows, nil
}

func (m *mockService) Playlist(ctx context.Context, id string) (*services.SpotifyPlaylist, error) {
	if err := m.record("playlist:" + id); err != nil {
		return nil, err
	}
	p, ok := m.playlists[id]
	if !ok {
		return nil, errors.New("Not found.")
	}
	return p, nil
}

func (m *mockService) CreatePlaylist(ctx context.Context, userID, name, description string) (*services.SpotifyPlaylist, error) {
	if err := m.record("create:" + name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.created = append(m.created, name)
	return &services.SpotifyPlaylist{ID: fmt.Sprintf("new%d", m.nextID), Name: name}, nil
}

func (m *mockService) PlaylistTrackURIs(ctx context.Context, id string) ([]string, error) {
	if err := m.record("uris:" + id); err != nil {
		return nil, err
	}
	return m.uris[id], nil
}

func (m *mockService) AddPlaylistItems(ctx context.Context, id string, uris []string) error {
	m.record("add:" + id)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds[id] = append(m.adds[id], uris)
	return m.addErrs[len(m.adds[id])]
}

func (m *mockService) SaveToLibrary(ctx context.Context, kind models.EntityType, ids []string) error {
	m.record("save:" + string(kind))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[kind] = append(m.saves[kind], ids)
	return m.saveErrs[kind][len(m.saves[kind])]
}

func (m *mockService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// newTestEngine wires source and target mocks by token.
func newTestEngine(source, target *mockService) *Engine {
	return NewEngine(func(token string) services.Service {
		if token == "target" {
			return target
		}
		return source
	}, nil)
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

// memoryLedger is an in-memory [PlaylistLedger].
type memoryLedger struct {
	records map[string]models.PlaylistTransfer
	findErr error
}

func (l *memoryLedger) Find(ctx context.Context, src, user string) (*models.PlaylistTransfer, error) {
	if l.findErr != nil {
		return nil, l.findErr
	}
	if r, ok := l.records[src+"|"+user]; ok {
		return &r, nil
	}
	return nil, nil
}

func (l *memoryLedger) Record(ctx context.Context, t models.PlaylistTransfer) error {
	if l.records == nil {
		l.records = map[string]models.PlaylistTransfer{}
	}
	l.records[t.SourcePlaylistID+"|"+t.TargetUserID] = t
	return nil
}
