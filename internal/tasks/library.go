package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/sptx/internal/models"
	"github.com/desertthunder/sptx/internal/services"
	"golang.org/x/sync/errgroup"
)

type libraryRead struct {
	name  string
	fetch func(ctx context.Context) (int, error)
}

// FetchLibrary reads the full library of the account behind token.
//
// The five collections are read concurrently. The first failure cancels the other reads and is returned alone.
func (e *Engine) FetchLibrary(ctx context.Context, token string, progress ProgressFunc) (*models.LibrarySnapshot, error) {
	acct := e.connect(token)
	snapshot := &models.LibrarySnapshot{}
	reads := libraryReads(acct, snapshot)

	g, ctx := errgroup.WithContext(ctx)

	var (
		mu   sync.Mutex
		done int
	)

	for _, r := range reads {
		g.Go(func() error {
			n, err := r.fetch(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", r.name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() == nil {
				done++
				progress.send(fetchedUpdate(done, len(reads), r.name, n))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error("library fetch failed", "error", err)
		return nil, err
	}

	e.logger.Info("library fetched",
		"playlists", len(snapshot.Playlists),
		"tracks", len(snapshot.SavedTracks),
		"albums", len(snapshot.SavedAlbums),
		"artists", len(snapshot.FollowedArtists),
		"shows", len(snapshot.SavedShows),
	)
	return snapshot, nil
}

// libraryReads returns one read per collection. Each writes only its own snapshot field.
func libraryReads(acct services.Service, s *models.LibrarySnapshot) []libraryRead {
	return []libraryRead{
		{name: "playlists", fetch: func(ctx context.Context) (n int, err error) {
			s.Playlists, err = acct.Playlists(ctx)
			return len(s.Playlists), err
		}},
		{name: "saved tracks", fetch: func(ctx context.Context) (n int, err error) {
			s.SavedTracks, err = acct.SavedTracks(ctx)
			return len(s.SavedTracks), err
		}},
		{name: "saved albums", fetch: func(ctx context.Context) (n int, err error) {
			s.SavedAlbums, err = acct.SavedAlbums(ctx)
			return len(s.SavedAlbums), err
		}},
		{name: "followed artists", fetch: func(ctx context.Context) (n int, err error) {
			s.FollowedArtists, err = acct.FollowedArtists(ctx)
			return len(s.FollowedArtists), err
		}},
		{name: "saved shows", fetch: func(ctx context.Context) (n int, err error) {
			s.SavedShows, err = acct.SavedShows(ctx)
			return len(s.SavedShows), err
		}},
	}
}
