// Package player provides the core playback and queue state machine.
package player

// Track is a single playable item returned by search. Immutable once fetched;
// playback position lives in the manager, never on the track.
type Track struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
	Duration     string `json:"duration,omitempty"` // Display label, not authoritative
}

// MaxRecentlyPlayed bounds the recently-played stack.
const MaxRecentlyPlayed = 20

// DefaultVolume is used when no volume has been persisted.
const DefaultVolume = 80

// Status constants for playback state.
const (
	StatusIdle    = "idle"
	StatusPlaying = "playing"
	StatusPaused  = "paused"
)

// Snapshot is a point-in-time copy of the playback state, safe to hand to
// transports and encoders.
type Snapshot struct {
	CurrentTrack    *Track  `json:"currentTrack"`
	Status          string  `json:"status"`
	IsPlaying       bool    `json:"isPlaying"`
	Volume          int     `json:"volume"`
	PositionSeconds float64 `json:"positionSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	ProgressPercent float64 `json:"progressPercent"`
	QueueLength     int     `json:"queueLength"`
}

// Change classifies a state mutation for broadcast scheduling.
type Change string

const (
	ChangePlayback  Change = "playback"
	ChangeQueue     Change = "queue"
	ChangeFavorites Change = "favorites"
	ChangeRecent    Change = "recent"
)

// Listener receives playback intents from the manager. The embedded player
// adapter implements this to drive the underlying engine.
type Listener interface {
	// TrackChanged fires when the current track changes. track is nil when
	// playback becomes idle. position is the offset to resume from.
	TrackChanged(track *Track, position float64, playing bool)

	// PlayStateChanged fires when the play/pause flag flips without a track
	// change.
	PlayStateChanged(playing bool)

	// VolumeChanged fires with the clamped volume.
	VolumeChanged(volume int)

	// SeekRequested fires on a user-initiated position change.
	SeekRequested(seconds float64)
}
