package player

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/infra/store"
)

// Manager owns the playback state: current track, play/pause flag, volume,
// position, the queue, the recently-played stack and the favorites set. It is
// safe for concurrent use; intents arrive from transport handlers and the
// adapter's poll loop.
//
// Mutations to volume, queue, recently-played and favorites are written
// through to the store asynchronously. A write failure is logged and the
// in-memory state stays authoritative for the session.
type Manager struct {
	mu sync.RWMutex

	current  *Track
	playing  bool
	volume   int
	position float64
	duration float64
	progress float64

	queue     []Track
	recent    []Track
	favorites []Track

	store    *store.Store
	listener Listener
	onChange func(Change)
}

// NewManager creates a manager with default state. store may be nil, in which
// case nothing is persisted.
func NewManager(st *store.Store) *Manager {
	return &Manager{
		volume: DefaultVolume,
		store:  st,
	}
}

// SetListener registers the playback intent listener. Must be called before
// the manager receives traffic.
func (m *Manager) SetListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// OnChange registers a hook invoked after every state mutation with the kind
// of change. The transport uses it to schedule broadcasts.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// LoadPersisted restores volume, queue, recently-played and favorites from
// the store. Missing or malformed values keep their defaults.
func (m *Manager) LoadPersisted() {
	if m.store == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var vol int
	if m.store.Get(store.KeyVolume, &vol) {
		m.volume = clampVolume(vol)
	}
	m.store.Get(store.KeyQueue, &m.queue)
	m.store.Get(store.KeyRecentlyPlayed, &m.recent)
	m.store.Get(store.KeyFavorites, &m.favorites)

	if len(m.recent) > MaxRecentlyPlayed {
		m.recent = m.recent[:MaxRecentlyPlayed]
	}

	log.Info().
		Int("volume", m.volume).
		Int("queue", len(m.queue)).
		Int("recent", len(m.recent)).
		Int("favorites", len(m.favorites)).
		Msg("Restored persisted state")
}

// Play starts playback of track, displacing the current track onto the
// recently-played stack. Re-invoking with the same track restarts it from
// zero; that is deliberate restart semantics, not a no-op.
func (m *Manager) Play(track Track) {
	m.mu.Lock()
	if m.current != nil {
		m.pushRecentLocked(*m.current)
	}
	t := track
	m.current = &t
	m.playing = true
	m.resetPositionLocked()
	l := m.listener
	m.mu.Unlock()

	log.Info().Str("id", track.ID).Str("title", track.Title).Msg("Play")
	m.persistAsync(store.KeyRecentlyPlayed, m.RecentlyPlayed())
	if l != nil {
		l.TrackChanged(&t, 0, true)
	}
	m.notifyChange(ChangePlayback, ChangeRecent)
}

// Pause stops playback without touching the current track or position.
// No-op when already paused.
func (m *Manager) Pause() {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return
	}
	m.playing = false
	l := m.listener
	m.mu.Unlock()

	log.Info().Msg("Pause")
	if l != nil {
		l.PlayStateChanged(false)
	}
	m.notifyChange(ChangePlayback)
}

// TogglePlay flips the play/pause flag. With no current track this is a
// no-op: flipping would reach playing-with-no-track, which the state machine
// forbids.
func (m *Manager) TogglePlay() {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		log.Debug().Msg("TogglePlay ignored, no current track")
		return
	}
	m.playing = !m.playing
	playing := m.playing
	l := m.listener
	m.mu.Unlock()

	log.Info().Bool("playing", playing).Msg("TogglePlay")
	if l != nil {
		l.PlayStateChanged(playing)
	}
	m.notifyChange(ChangePlayback)
}

// SetVolume clamps v to [0,100], applies it and persists it immediately.
func (m *Manager) SetVolume(v int) {
	v = clampVolume(v)

	m.mu.Lock()
	m.volume = v
	l := m.listener
	m.mu.Unlock()

	log.Info().Int("volume", v).Msg("SetVolume")
	m.persistAsync(store.KeyVolume, v)
	if l != nil {
		l.VolumeChanged(v)
	}
	m.notifyChange(ChangePlayback)
}

// Enqueue appends track to the queue. Duplicates are allowed.
func (m *Manager) Enqueue(track Track) {
	m.mu.Lock()
	m.queue = append(m.queue, track)
	m.mu.Unlock()

	log.Info().Str("id", track.ID).Msg("Enqueue")
	m.persistAsync(store.KeyQueue, m.Queue())
	m.notifyChange(ChangeQueue)
}

// Dequeue removes the first queue entry with the given id. No-op when absent.
func (m *Manager) Dequeue(trackID string) {
	m.mu.Lock()
	removed := false
	for i, t := range m.queue {
		if t.ID == trackID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	if !removed {
		return
	}
	log.Info().Str("id", trackID).Msg("Dequeue")
	m.persistAsync(store.KeyQueue, m.Queue())
	m.notifyChange(ChangeQueue)
}

// ClearQueue empties the queue.
func (m *Manager) ClearQueue() {
	m.mu.Lock()
	m.queue = nil
	m.mu.Unlock()

	log.Info().Msg("ClearQueue")
	m.persistAsync(store.KeyQueue, []Track{})
	m.notifyChange(ChangeQueue)
}

// Advance pops the head of the queue into the current track, displacing the
// previous current track onto the recently-played stack. No-op when the
// queue is empty; the current track keeps playing.
func (m *Manager) Advance() {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}
	if m.current != nil {
		m.pushRecentLocked(*m.current)
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	m.current = &next
	m.playing = true
	m.resetPositionLocked()
	l := m.listener
	m.mu.Unlock()

	log.Info().Str("id", next.ID).Str("title", next.Title).Msg("Advance")
	m.persistAsync(store.KeyQueue, m.Queue())
	m.persistAsync(store.KeyRecentlyPlayed, m.RecentlyPlayed())
	if l != nil {
		l.TrackChanged(&next, 0, true)
	}
	m.notifyChange(ChangePlayback, ChangeQueue, ChangeRecent)
}

// Retreat pops the most recently played track back into the current slot and
// pushes the displaced current track onto the FRONT of the queue, so an
// immediate Advance restores it. No-op when nothing was recently played;
// there is no restart-from-zero fallback.
func (m *Manager) Retreat() {
	m.mu.Lock()
	if len(m.recent) == 0 {
		m.mu.Unlock()
		return
	}
	prev := m.recent[0]
	m.recent = m.recent[1:]
	if m.current != nil {
		m.queue = append([]Track{*m.current}, m.queue...)
	}
	m.current = &prev
	m.playing = true
	m.resetPositionLocked()
	l := m.listener
	m.mu.Unlock()

	log.Info().Str("id", prev.ID).Str("title", prev.Title).Msg("Retreat")
	m.persistAsync(store.KeyQueue, m.Queue())
	m.persistAsync(store.KeyRecentlyPlayed, m.RecentlyPlayed())
	if l != nil {
		l.TrackChanged(&prev, 0, true)
	}
	m.notifyChange(ChangePlayback, ChangeQueue, ChangeRecent)
}

// AddFavorite adds track to the favorites set. Idempotent by track ID.
func (m *Manager) AddFavorite(track Track) {
	m.mu.Lock()
	for _, f := range m.favorites {
		if f.ID == track.ID {
			m.mu.Unlock()
			return
		}
	}
	m.favorites = append(m.favorites, track)
	m.mu.Unlock()

	log.Info().Str("id", track.ID).Msg("AddFavorite")
	m.persistAsync(store.KeyFavorites, m.Favorites())
	m.notifyChange(ChangeFavorites)
}

// RemoveFavorite removes the favorite with the given id. No-op when absent.
func (m *Manager) RemoveFavorite(trackID string) {
	m.mu.Lock()
	removed := false
	for i, f := range m.favorites {
		if f.ID == trackID {
			m.favorites = append(m.favorites[:i], m.favorites[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	if !removed {
		return
	}
	log.Info().Str("id", trackID).Msg("RemoveFavorite")
	m.persistAsync(store.KeyFavorites, m.Favorites())
	m.notifyChange(ChangeFavorites)
}

// SetPosition records a user-initiated seek. Negative values clamp to zero.
func (m *Manager) SetPosition(seconds float64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}

	m.mu.Lock()
	m.position = seconds
	if m.duration > 0 {
		m.progress = seconds / m.duration * 100
	}
	l := m.listener
	m.mu.Unlock()

	if l != nil {
		l.SeekRequested(seconds)
	}
	m.notifyChange(ChangePlayback)
}

// UpdateProgress is the adapter's write-back path for the periodic position
// poll. Progress percent is zero when duration is zero or not a number.
func (m *Manager) UpdateProgress(position, duration float64) {
	m.mu.Lock()
	m.position = position
	m.duration = duration
	if duration > 0 && !math.IsNaN(duration) && !math.IsNaN(position) {
		m.progress = position / duration * 100
	} else {
		m.progress = 0
	}
	m.mu.Unlock()

	m.notifyChange(ChangePlayback)
}

// Current returns a copy of the current track, or nil when idle.
func (m *Manager) Current() *Track {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}
	t := *m.current
	return &t
}

// IsPlaying reports whether playback is active.
func (m *Manager) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.playing
}

// Volume returns the current volume.
func (m *Manager) Volume() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Position returns the current playback position in seconds.
func (m *Manager) Position() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.position
}

// Queue returns a copy of the queue.
func (m *Manager) Queue() []Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyTracks(m.queue)
}

// RecentlyPlayed returns a copy of the recently-played stack, newest first.
func (m *Manager) RecentlyPlayed() []Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyTracks(m.recent)
}

// Favorites returns a copy of the favorites set in insertion order.
func (m *Manager) Favorites() []Track {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyTracks(m.favorites)
}

// IsFavorite reports whether a track id is in the favorites set.
func (m *Manager) IsFavorite(trackID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.favorites {
		if f.ID == trackID {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the playback state for transports.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Status:          StatusIdle,
		IsPlaying:       m.playing,
		Volume:          m.volume,
		PositionSeconds: m.position,
		DurationSeconds: m.duration,
		ProgressPercent: m.progress,
		QueueLength:     len(m.queue),
	}
	if m.current != nil {
		t := *m.current
		snap.CurrentTrack = &t
		if m.playing {
			snap.Status = StatusPlaying
		} else {
			snap.Status = StatusPaused
		}
	}
	return snap
}

// pushRecentLocked applies the dedupe-unshift-truncate rule. Must hold mu.
func (m *Manager) pushRecentLocked(track Track) {
	kept := make([]Track, 0, len(m.recent)+1)
	kept = append(kept, track)
	for _, t := range m.recent {
		if t.ID != track.ID {
			kept = append(kept, t)
		}
	}
	if len(kept) > MaxRecentlyPlayed {
		kept = kept[:MaxRecentlyPlayed]
	}
	m.recent = kept
}

// resetPositionLocked zeroes position whenever the current track changes.
// Must hold mu.
func (m *Manager) resetPositionLocked() {
	m.position = 0
	m.duration = 0
	m.progress = 0
}

// persistAsync writes through to the store without blocking the caller.
func (m *Manager) persistAsync(key string, value interface{}) {
	if m.store == nil {
		return
	}
	go func() {
		if err := m.store.Set(key, value); err != nil {
			log.Error().Err(err).Str("key", key).Msg("Failed to persist state")
		}
	}()
}

func (m *Manager) notifyChange(kinds ...Change) {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()

	if fn == nil {
		return
	}
	for _, k := range kinds {
		fn(k)
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func copyTracks(src []Track) []Track {
	out := make([]Track, len(src))
	copy(out, src)
	return out
}
