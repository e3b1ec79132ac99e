package player_test

import (
	"fmt"
	"testing"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

func track(id string) player.Track {
	return player.Track{
		ID:           id,
		Title:        "Title " + id,
		ChannelTitle: "Channel " + id,
	}
}

func TestPlaySetsCurrentAndStartsPlayback(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))

	cur := m.Current()
	if cur == nil || cur.ID != "a" {
		t.Fatalf("current = %+v, want track a", cur)
	}
	if !m.IsPlaying() {
		t.Error("expected playback to be active")
	}
	if m.Position() != 0 {
		t.Errorf("position = %v, want 0", m.Position())
	}
}

func TestPlayDisplacesCurrentOntoRecentlyPlayed(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Play(track("b"))

	recent := m.RecentlyPlayed()
	if len(recent) != 1 || recent[0].ID != "a" {
		t.Fatalf("recent = %+v, want [a]", recent)
	}
	if cur := m.Current(); cur.ID != "b" {
		t.Errorf("current = %s, want b", cur.ID)
	}
}

func TestPlaySameTrackRestartsFromZero(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.UpdateProgress(42, 180)
	m.Play(track("a"))

	if m.Position() != 0 {
		t.Errorf("position = %v, want 0 after restart", m.Position())
	}
	// The restarted track also lands on the recently-played stack.
	recent := m.RecentlyPlayed()
	if len(recent) != 1 || recent[0].ID != "a" {
		t.Errorf("recent = %+v, want [a]", recent)
	}
}

func TestPauseIsNoOpWhenAlreadyPaused(t *testing.T) {
	m := player.NewManager(nil)

	m.Pause()
	if m.IsPlaying() {
		t.Error("pause on idle manager should stay not playing")
	}

	m.Play(track("a"))
	m.Pause()
	m.Pause()
	if m.IsPlaying() {
		t.Error("expected playback paused")
	}
	if cur := m.Current(); cur == nil || cur.ID != "a" {
		t.Errorf("pause must not touch the current track, got %+v", cur)
	}
}

func TestTogglePlayWithNoCurrentTrackIsNoOp(t *testing.T) {
	m := player.NewManager(nil)

	m.TogglePlay()

	if m.IsPlaying() {
		t.Error("toggle with no current track must not start playback")
	}
	if m.Current() != nil {
		t.Error("toggle must not invent a current track")
	}
}

func TestTogglePlayFlipsFlag(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.TogglePlay()
	if m.IsPlaying() {
		t.Error("expected paused after first toggle")
	}
	m.TogglePlay()
	if !m.IsPlaying() {
		t.Error("expected playing after second toggle")
	}
}

func TestSetVolumeClampsToRange(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{-10, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{150, 100},
	}

	for _, tc := range cases {
		m := player.NewManager(nil)
		m.SetVolume(tc.in)
		if got := m.Volume(); got != tc.want {
			t.Errorf("SetVolume(%d): volume = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDefaultVolume(t *testing.T) {
	m := player.NewManager(nil)
	if got := m.Volume(); got != player.DefaultVolume {
		t.Errorf("volume = %d, want %d", got, player.DefaultVolume)
	}
}

func TestQueueIsStrictFIFO(t *testing.T) {
	m := player.NewManager(nil)

	m.Enqueue(track("a"))
	m.Enqueue(track("b"))
	m.Enqueue(track("c"))

	var played []string
	for i := 0; i < 3; i++ {
		m.Advance()
		played = append(played, m.Current().ID)
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if played[i] != want[i] {
			t.Fatalf("played = %v, want %v", played, want)
		}
	}
	if len(m.Queue()) != 0 {
		t.Errorf("queue should be drained, got %d entries", len(m.Queue()))
	}
}

func TestAdvanceOnEmptyQueueIsNoOp(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Advance()

	if cur := m.Current(); cur == nil || cur.ID != "a" {
		t.Errorf("current = %+v, want a to keep playing", cur)
	}
	if !m.IsPlaying() {
		t.Error("expected playback still active")
	}
	if len(m.RecentlyPlayed()) != 0 {
		t.Error("no-op advance must not touch recently played")
	}
}

func TestRetreatOnEmptyRecentIsNoOp(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Retreat()

	if cur := m.Current(); cur == nil || cur.ID != "a" {
		t.Errorf("current = %+v, want a unchanged", cur)
	}
	if len(m.Queue()) != 0 {
		t.Error("no-op retreat must not touch the queue")
	}
}

func TestRetreatPrependsCurrentToQueue(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Play(track("b"))
	m.Enqueue(track("c"))

	m.Retreat()

	if cur := m.Current(); cur.ID != "a" {
		t.Errorf("current = %s, want a", cur.ID)
	}
	queue := m.Queue()
	if len(queue) != 2 || queue[0].ID != "b" || queue[1].ID != "c" {
		t.Errorf("queue = %+v, want [b c]", queue)
	}
}

func TestRetreatThenAdvanceRoundTrips(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Play(track("b"))
	m.Enqueue(track("c"))

	beforeCurrent := m.Current().ID
	beforeQueueLen := len(m.Queue())

	m.Retreat()
	m.Advance()

	if cur := m.Current(); cur.ID != beforeCurrent {
		t.Errorf("current = %s, want %s after round trip", cur.ID, beforeCurrent)
	}
	if got := len(m.Queue()); got != beforeQueueLen {
		t.Errorf("queue length = %d, want %d after round trip", got, beforeQueueLen)
	}
}

func TestRecentlyPlayedIsBoundedAndNewestFirst(t *testing.T) {
	m := player.NewManager(nil)

	for i := 0; i < player.MaxRecentlyPlayed+5; i++ {
		m.Play(track(fmt.Sprintf("t%02d", i)))
	}

	recent := m.RecentlyPlayed()
	if len(recent) != player.MaxRecentlyPlayed {
		t.Fatalf("recent length = %d, want %d", len(recent), player.MaxRecentlyPlayed)
	}
	// The newest displaced track is the one played just before the last.
	if recent[0].ID != fmt.Sprintf("t%02d", player.MaxRecentlyPlayed+3) {
		t.Errorf("recent[0] = %s", recent[0].ID)
	}
}

func TestRecentlyPlayedDedupesByID(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.Play(track("b"))
	m.Play(track("a")) // displaces b
	m.Play(track("c")) // displaces a again, a moves to front

	recent := m.RecentlyPlayed()
	if len(recent) != 2 {
		t.Fatalf("recent = %+v, want 2 unique entries", recent)
	}
	if recent[0].ID != "a" || recent[1].ID != "b" {
		t.Errorf("recent = [%s %s], want [a b]", recent[0].ID, recent[1].ID)
	}
}

func TestDequeueRemovesFirstMatchOnly(t *testing.T) {
	m := player.NewManager(nil)

	m.Enqueue(track("a"))
	m.Enqueue(track("b"))
	m.Enqueue(track("a"))

	m.Dequeue("a")

	queue := m.Queue()
	if len(queue) != 2 || queue[0].ID != "b" || queue[1].ID != "a" {
		t.Errorf("queue = %+v, want [b a]", queue)
	}

	m.Dequeue("missing") // no-op
	if len(m.Queue()) != 2 {
		t.Error("dequeue of missing id must not change the queue")
	}
}

func TestClearQueue(t *testing.T) {
	m := player.NewManager(nil)

	m.Enqueue(track("a"))
	m.Enqueue(track("b"))
	m.ClearQueue()

	if len(m.Queue()) != 0 {
		t.Errorf("queue = %+v, want empty", m.Queue())
	}
}

func TestFavoritesAreIdempotentByID(t *testing.T) {
	m := player.NewManager(nil)

	m.AddFavorite(track("a"))
	m.AddFavorite(track("b"))
	m.AddFavorite(track("a"))

	favs := m.Favorites()
	if len(favs) != 2 {
		t.Fatalf("favorites = %+v, want 2 entries", favs)
	}
	if favs[0].ID != "a" || favs[1].ID != "b" {
		t.Errorf("favorites order = [%s %s], want insertion order [a b]", favs[0].ID, favs[1].ID)
	}
	if !m.IsFavorite("a") || m.IsFavorite("z") {
		t.Error("IsFavorite lookup wrong")
	}

	m.RemoveFavorite("a")
	if m.IsFavorite("a") {
		t.Error("expected a removed from favorites")
	}
	m.RemoveFavorite("a") // no-op
	if len(m.Favorites()) != 1 {
		t.Error("removing an absent favorite must not change the set")
	}
}

func TestPositionResetsOnTrackChange(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.UpdateProgress(90, 180)
	m.Enqueue(track("b"))
	m.Advance()

	if m.Position() != 0 {
		t.Errorf("position = %v, want 0 after advance", m.Position())
	}
	snap := m.Snapshot()
	if snap.ProgressPercent != 0 || snap.DurationSeconds != 0 {
		t.Errorf("progress = %v duration = %v, want both 0", snap.ProgressPercent, snap.DurationSeconds)
	}
}

func TestSetPositionClampsNegative(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.SetPosition(-5)

	if m.Position() != 0 {
		t.Errorf("position = %v, want 0", m.Position())
	}
}

func TestProgressPercentZeroWhenDurationUnknown(t *testing.T) {
	m := player.NewManager(nil)

	m.Play(track("a"))
	m.UpdateProgress(30, 0)

	if snap := m.Snapshot(); snap.ProgressPercent != 0 {
		t.Errorf("progress = %v, want 0 for unknown duration", snap.ProgressPercent)
	}

	m.UpdateProgress(30, 120)
	if snap := m.Snapshot(); snap.ProgressPercent != 25 {
		t.Errorf("progress = %v, want 25", snap.ProgressPercent)
	}
}

func TestSnapshotStatus(t *testing.T) {
	m := player.NewManager(nil)

	if got := m.Snapshot().Status; got != player.StatusIdle {
		t.Errorf("status = %s, want idle", got)
	}

	m.Play(track("a"))
	if got := m.Snapshot().Status; got != player.StatusPlaying {
		t.Errorf("status = %s, want playing", got)
	}

	m.Pause()
	if got := m.Snapshot().Status; got != player.StatusPaused {
		t.Errorf("status = %s, want paused", got)
	}
}

func TestOnChangeReportsKinds(t *testing.T) {
	m := player.NewManager(nil)

	var kinds []player.Change
	m.OnChange(func(c player.Change) { kinds = append(kinds, c) })

	m.Play(track("a"))
	m.AddFavorite(track("a"))
	m.Enqueue(track("b"))

	seen := make(map[player.Change]bool)
	for _, k := range kinds {
		seen[k] = true
	}
	for _, want := range []player.Change{player.ChangePlayback, player.ChangeRecent, player.ChangeFavorites, player.ChangeQueue} {
		if !seen[want] {
			t.Errorf("expected change kind %q to be reported, got %v", want, kinds)
		}
	}
}

func TestQueueAccessorReturnsCopy(t *testing.T) {
	m := player.NewManager(nil)

	m.Enqueue(track("a"))
	q := m.Queue()
	q[0].ID = "mutated"

	if m.Queue()[0].ID != "a" {
		t.Error("mutating the returned slice must not affect manager state")
	}
}
