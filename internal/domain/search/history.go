package search

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/infra/store"
)

// Category is the inferred kind of a search query.
type Category string

const (
	CategoryArtist Category = "artist"
	CategoryAlbum  Category = "album"
	CategorySong   Category = "song"
)

// MaxHistoryEntries bounds the search history.
const MaxHistoryEntries = 10

// HistoryEntry is one remembered search.
type HistoryEntry struct {
	ID        string   `json:"id"`
	Query     string   `json:"query"`
	Timestamp int64    `json:"timestamp"`
	Category  Category `json:"category,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

// History keeps the bounded most-recent-first search history, deduped by
// exact query string and persisted through the store.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	store   *store.Store
}

// NewHistory creates a history backed by st (nil disables persistence) and
// restores any persisted entries.
func NewHistory(st *store.Store) *History {
	h := &History{store: st}
	if st != nil {
		st.Get(store.KeySearchHistory, &h.entries)
		if len(h.entries) > MaxHistoryEntries {
			h.entries = h.entries[:MaxHistoryEntries]
		}
	}
	return h
}

// Record remembers a query. An existing entry with the same query moves to
// the front; the list never grows past MaxHistoryEntries.
func (h *History) Record(query string, category Category, thumbnail string) {
	h.mu.Lock()

	entry := HistoryEntry{
		ID:        uuid.New().String(),
		Query:     query,
		Timestamp: time.Now().UnixMilli(),
		Category:  category,
		Thumbnail: thumbnail,
	}

	kept := make([]HistoryEntry, 0, len(h.entries)+1)
	kept = append(kept, entry)
	for _, e := range h.entries {
		if e.Query != query {
			kept = append(kept, e)
		}
	}
	if len(kept) > MaxHistoryEntries {
		kept = kept[:MaxHistoryEntries]
	}
	h.entries = kept

	snapshot := make([]HistoryEntry, len(h.entries))
	copy(snapshot, h.entries)
	h.mu.Unlock()

	h.saveAsync(snapshot)
}

// Entries returns a copy of the history, newest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear empties the history and persists the empty list.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()

	log.Info().Msg("Search history cleared")
	h.saveAsync([]HistoryEntry{})
}

// saveAsync persists the history without blocking the caller.
func (h *History) saveAsync(entries []HistoryEntry) {
	if h.store == nil {
		return
	}
	go func() {
		if err := h.store.Set(store.KeySearchHistory, entries); err != nil {
			log.Error().Err(err).Msg("Failed to persist search history")
		}
	}()
}
