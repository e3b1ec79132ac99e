package recommend_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
	"github.com/Malay-Mete/musicsync-11/internal/domain/recommend"
)

func TestSuggestCurrentTrackBasis(t *testing.T) {
	a := recommend.NewAdvisor()

	current := &player.Track{ID: "x", Title: "Comfortably Numb"}
	s := a.Suggest(current, nil, nil)

	if s.Query == "" {
		t.Fatal("query must never be empty")
	}
	if !strings.Contains(s.Query, "Comfortably Numb") {
		t.Errorf("query %q should reference the current track title", s.Query)
	}
	if s.Title != "Because you listened to Comfortably Numb" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestSuggestRecentBasis(t *testing.T) {
	a := recommend.NewAdvisor()

	recent := []player.Track{{ID: "r", ChannelTitle: "Pink Floyd"}}
	s := a.Suggest(nil, recent, nil)

	if !strings.Contains(s.Query, "Pink Floyd") {
		t.Errorf("query %q should reference the most recent channel", s.Query)
	}
	if s.Title != "Based on your recently played" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestSuggestFavoritesBasis(t *testing.T) {
	a := recommend.NewAdvisor()

	favorites := []player.Track{{ID: "f"}}
	s := a.Suggest(nil, nil, favorites)

	if s.Query == "" {
		t.Fatal("query must never be empty")
	}
	if s.Title != "Recommended for you" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestSuggestFallsBackToTrending(t *testing.T) {
	a := recommend.NewAdvisor()

	s := a.Suggest(nil, nil, nil)

	if s.Query != "popular trending music" {
		t.Errorf("query = %q, want the trending fallback", s.Query)
	}
	if s.Title != "Discover Music" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestSuggestQueryNeverEmpty(t *testing.T) {
	a := recommend.NewAdvisor()

	current := &player.Track{ID: "x", Title: "Song"}
	for i := 0; i < 100; i++ {
		if s := a.Suggest(current, nil, nil); strings.TrimSpace(s.Query) == "" {
			t.Fatal("query must never be empty")
		}
	}
}

func TestRunFiresImmediatelyAndStopsOnCancel(t *testing.T) {
	a := recommend.NewAdvisor()

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.Run(ctx, time.Hour, func() { atomic.AddInt32(&calls, 1) })
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want exactly the immediate refresh", atomic.LoadInt32(&calls))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunTicksOnInterval(t *testing.T) {
	a := recommend.NewAdvisor()

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.Run(ctx, 20*time.Millisecond, func() { atomic.AddInt32(&calls, 1) })

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&calls); got < 3 {
		t.Errorf("calls = %d, want at least 3 (immediate plus ticks)", got)
	}
}
