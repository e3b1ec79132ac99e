// Package recommend derives follow-up search queries from listening context.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

// DefaultInterval is how often recommendations refresh.
const DefaultInterval = 2 * time.Minute

var genres = []string{
	"pop", "rock", "hip hop", "jazz", "electronic", "classical", "indie",
}

var descriptors = []string{
	"similar to", "like", "in the style of", "with the same energy as",
}

// Suggestion is a derived search query with a human-readable title
// describing its basis.
type Suggestion struct {
	Query string
	Title string
}

// Advisor derives exploratory search queries. Selection is deliberately
// randomized; the only guarantee is a non-empty query.
type Advisor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewAdvisor creates an advisor seeded from the clock.
func NewAdvisor() *Advisor {
	return &Advisor{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Suggest builds a follow-up query from whichever context is available:
// the current track, then recent plays, then favorites, then a generic
// trending query.
func (a *Advisor) Suggest(current *player.Track, recent, favorites []player.Track) Suggestion {
	a.mu.Lock()
	genre := genres[a.rng.Intn(len(genres))]
	descriptor := descriptors[a.rng.Intn(len(descriptors))]
	a.mu.Unlock()

	switch {
	case current != nil:
		return Suggestion{
			Query: fmt.Sprintf("%s music %s %s", genre, descriptor, current.Title),
			Title: fmt.Sprintf("Because you listened to %s", current.Title),
		}
	case len(recent) > 0:
		return Suggestion{
			Query: fmt.Sprintf("popular %s music similar to %s", genre, recent[0].ChannelTitle),
			Title: "Based on your recently played",
		}
	case len(favorites) > 0:
		return Suggestion{
			Query: fmt.Sprintf("best %s music", genre),
			Title: "Recommended for you",
		}
	default:
		return Suggestion{
			Query: "popular trending music",
			Title: "Discover Music",
		}
	}
}

// Run fires refresh once immediately and then on every interval tick until
// ctx is cancelled. Refresh failures are the callback's problem; the loop
// never stops on its own.
func (a *Advisor) Run(ctx context.Context, interval time.Duration, refresh func()) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	log.Info().Dur("interval", interval).Msg("Recommendation loop started")

	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Recommendation loop stopped")
			return
		case <-ticker.C:
			refresh()
		}
	}
}
