package services

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultPageSize is the page size used for library reads.
	DefaultPageSize = 50
	// PlaylistItemsPageSize is the page size used for playlist contents.
	PlaylistItemsPageSize = 100

	fetchFallback = "Failed to fetch data"
)

// Page is one response of a cursor-paginated collection.
type Page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
}

// followedArtistsPage nests the cursor under "artists".
type followedArtistsPage struct {
	Artists Page[SpotifyArtist] `json:"artists"`
}

// PageURL appends the limit parameter to a collection URL.
func PageURL(base string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%slimit=%d", base, sep, limit)
}

// FetchAllPages walks a cursor-paginated collection until the server stops returning a next link.
//
// Requests are sequential. Items keep server order and are only returned when every page succeeded.
func FetchAllPages[T any](ctx context.Context, a *Account, base string, limit int) ([]T, error) {
	return walk(ctx, a, PageURL(base, limit), func(p *Page[T]) ([]T, *string) {
		return p.Items, p.Next
	})
}

// FetchFollowedArtists walks the followed-artists collection, whose cursor is nested one level down.
func FetchFollowedArtists(ctx context.Context, a *Account, limit int) ([]SpotifyArtist, error) {
	return walk(ctx, a, PageURL("/me/following?type=artist", limit), func(p *followedArtistsPage) ([]SpotifyArtist, *string) {
		return p.Artists.Items, p.Artists.Next
	})
}

func walk[P any, T any](ctx context.Context, a *Account, next string, unwrap func(*P) ([]T, *string)) ([]T, error) {
	items := []T{}
	for next != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var page P
		if err := a.request(ctx, "GET", next, nil, &page, fetchFallback); err != nil {
			return nil, err
		}

		pageItems, cursor := unwrap(&page)
		items = append(items, pageItems...)

		next = ""
		if cursor != nil {
			next = *cursor
		}
	}
	return items, nil
}
