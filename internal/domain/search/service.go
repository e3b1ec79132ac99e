// Package search provides the track search provider and its query history.
package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

// Searcher performs one outbound track lookup. The YouTube API client
// satisfies this; tests substitute a fake.
type Searcher interface {
	Search(ctx context.Context, query string) ([]player.Track, error)
}

// Service is the search provider: it runs queries through the upstream
// client and maintains the bounded query history.
type Service struct {
	client  Searcher
	history *History
}

// NewService creates a search service.
func NewService(client Searcher, history *History) *Service {
	return &Service{
		client:  client,
		history: history,
	}
}

// Search runs a query. Empty or whitespace-only queries return no results
// and leave the history untouched. A failed lookup returns the error and
// records nothing; the caller surfaces a generic message.
func (s *Service) Search(ctx context.Context, query string) ([]player.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	tracks, err := s.client.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Search failed")
		return nil, err
	}

	category := inferCategory(query, tracks)
	thumbnail := ""
	if len(tracks) > 0 {
		thumbnail = tracks[0].Thumbnail
	}
	s.history.Record(query, category, thumbnail)

	return tracks, nil
}

// History exposes the query history.
func (s *Service) History() *History {
	return s.history
}

// inferCategory makes a best-effort guess at what kind of thing was searched
// for: an artist when a result's channel matches the query exactly, an album
// when the query says so or the top results cluster on few channels, and a
// song otherwise.
func inferCategory(query string, tracks []player.Track) Category {
	for _, t := range tracks {
		if strings.EqualFold(t.ChannelTitle, query) {
			return CategoryArtist
		}
	}

	if strings.Contains(strings.ToLower(query), "album") {
		return CategoryAlbum
	}

	top := tracks
	if len(top) > 5 {
		top = top[:5]
	}
	if len(top) > 0 {
		channels := make(map[string]struct{})
		for _, t := range top {
			channels[t.ChannelTitle] = struct{}{}
		}
		if len(channels) <= 2 {
			return CategoryAlbum
		}
	}

	return CategorySong
}
