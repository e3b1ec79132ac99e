// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
	"github.com/Malay-Mete/musicsync-11/internal/domain/recommend"
	"github.com/Malay-Mete/musicsync-11/internal/domain/search"
)

// debounceWindow collapses bursts of manager changes into one broadcast.
const debounceWindow = 50 * time.Millisecond

// maxExternalClients caps concurrent non-localhost connections.
const maxExternalClients = 8

// searchTimeout bounds a single upstream search on behalf of a client.
const searchTimeout = 10 * time.Second

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	manager   *player.Manager
	searchSvc *search.Service
	searcher  search.Searcher
	advisor   *recommend.Advisor
	debouncer *BroadcastDebouncer
	limiter   *ConnectionLimiter

	// searchGen tags search requests so late completions of superseded
	// searches are discarded instead of broadcast.
	searchGen atomic.Uint64

	mu      sync.RWMutex
	clients map[string]*socket.Socket
}

// NewServer creates a new Socket.io server wired to the playback manager
// and search service. searcher runs recommendation lookups without touching
// the search history.
func NewServer(manager *player.Manager, searchSvc *search.Service, searcher search.Searcher, advisor *recommend.Advisor) (*Server, error) {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, opts)

	s := &Server{
		io:        server,
		manager:   manager,
		searchSvc: searchSvc,
		searcher:  searcher,
		advisor:   advisor,
		limiter:   NewConnectionLimiter(maxExternalClients),
		clients:   make(map[string]*socket.Socket),
	}

	s.debouncer = NewBroadcastDebouncer(debounceWindow, BroadcastCallbacks{
		State:     s.BroadcastState,
		Queue:     s.BroadcastQueue,
		Favorites: s.BroadcastFavorites,
		Recent:    s.BroadcastRecentlyPlayed,
	})
	manager.OnChange(s.debouncer.Trigger)

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())

		remoteIP := handshakeIP(client)
		_, evicted := s.limiter.TryAdd(clientID, remoteIP)
		if evicted != "" {
			s.mu.RLock()
			old := s.clients[evicted]
			s.mu.RUnlock()
			if old != nil {
				log.Warn().Str("id", evicted).Msg("Evicting oldest external client")
				old.Disconnect(true)
			}
		}

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushQueue(client)
			s.pushFavorites(client)
			s.pushRecentlyPlayed(client)
		}()

		// Handle disconnect
		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		// Playback events
		client.On("getState", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getState")
			s.pushState(client)
		})

		client.On("play", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("play")

			track, ok := decodeTrack(firstArg(args))
			if !ok {
				// A bare play with no track resumes whatever is loaded.
				if len(args) == 0 || args[0] == nil {
					s.manager.TogglePlay()
					return
				}
				log.Warn().Interface("data", args).Msg("Malformed play payload")
				return
			}
			s.manager.Play(track)
		})

		client.On("pause", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("pause")
			s.manager.Pause()
		})

		client.On("toggle", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("toggle")
			s.manager.TogglePlay()
		})

		client.On("next", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("next")
			s.manager.Advance()
		})

		client.On("prev", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("prev")
			s.manager.Retreat()
		})

		client.On("seek", func(args ...any) {
			if pos, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("pos", pos).Msg("seek")
				s.manager.SetPosition(pos)
			}
		})

		client.On("volume", func(args ...any) {
			if vol, ok := floatArg(args); ok {
				log.Debug().Str("id", clientID).Float64("vol", vol).Msg("volume")
				s.manager.SetVolume(int(vol))
			}
		})

		// Queue events
		client.On("getQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getQueue")
			s.pushQueue(client)
		})

		client.On("addToQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("addToQueue")
			track, ok := decodeTrack(firstArg(args))
			if !ok {
				log.Warn().Interface("data", args).Msg("Malformed addToQueue payload")
				return
			}
			s.manager.Enqueue(track)
		})

		client.On("removeFromQueue", func(args ...any) {
			if id, ok := idArg(args); ok {
				log.Debug().Str("id", clientID).Str("track", id).Msg("removeFromQueue")
				s.manager.Dequeue(id)
			}
		})

		client.On("clearQueue", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("clearQueue")
			s.manager.ClearQueue()
		})

		// Favorites events
		client.On("getFavorites", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getFavorites")
			s.pushFavorites(client)
		})

		client.On("addToFavorites", func(args ...any) {
			track, ok := decodeTrack(firstArg(args))
			if !ok {
				log.Warn().Interface("data", args).Msg("Malformed addToFavorites payload")
				return
			}
			s.manager.AddFavorite(track)
		})

		client.On("removeFromFavorites", func(args ...any) {
			if id, ok := idArg(args); ok {
				s.manager.RemoveFavorite(id)
			}
		})

		client.On("getRecentlyPlayed", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getRecentlyPlayed")
			s.pushRecentlyPlayed(client)
		})

		// Search events
		client.On("search", func(args ...any) {
			query, ok := queryArg(args)
			if !ok {
				return
			}
			log.Debug().Str("id", clientID).Str("query", query).Msg("search")
			s.runSearch(client, query)
		})

		client.On("getSearchHistory", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getSearchHistory")
			s.pushSearchHistory(client)
		})

		client.On("clearSearchHistory", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("clearSearchHistory")
			s.searchSvc.History().Clear()
			s.pushSearchHistory(client)
		})
	})
}

// runSearch executes a search off the event loop. A completion whose
// generation is no longer the latest is dropped so a slow earlier search
// cannot overwrite results of a newer one.
func (s *Server) runSearch(client *socket.Socket, query string) {
	gen := s.searchGen.Add(1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()

		tracks, err := s.searchSvc.Search(ctx, query)
		if gen != s.searchGen.Load() {
			log.Debug().Str("query", query).Msg("Discarding stale search result")
			return
		}
		if err != nil {
			client.Emit("pushError", map[string]interface{}{
				"message": "Search failed. Please try again.",
			})
			return
		}

		client.Emit("pushSearchResults", map[string]interface{}{
			"query":  query,
			"tracks": tracks,
		})
		s.pushSearchHistory(client)
	}()
}

// RefreshRecommendations derives a suggestion from the current listening
// context, runs it through the upstream search client and broadcasts the
// results. Failures are logged and skipped; the next cycle tries again.
func (s *Server) RefreshRecommendations(ctx context.Context) {
	suggestion := s.advisor.Suggest(
		s.manager.Current(),
		s.manager.RecentlyPlayed(),
		s.manager.Favorites(),
	)

	cctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	tracks, err := s.searcher.Search(cctx, suggestion.Query)
	if err != nil {
		log.Warn().Err(err).Str("query", suggestion.Query).Msg("Recommendation lookup failed")
		return
	}

	s.io.Emit("pushRecommendations", map[string]interface{}{
		"title":  suggestion.Title,
		"query":  suggestion.Query,
		"tracks": tracks,
	})
}

// pushState sends current playback state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.manager.Snapshot())
}

// pushQueue sends the current queue to a client.
func (s *Server) pushQueue(client *socket.Socket) {
	client.Emit("pushQueue", s.manager.Queue())
}

func (s *Server) pushFavorites(client *socket.Socket) {
	client.Emit("pushFavorites", s.manager.Favorites())
}

func (s *Server) pushRecentlyPlayed(client *socket.Socket) {
	client.Emit("pushRecentlyPlayed", s.manager.RecentlyPlayed())
}

func (s *Server) pushSearchHistory(client *socket.Socket) {
	client.Emit("pushSearchHistory", s.searchSvc.History().Entries())
}

// BroadcastState sends playback state to all connected clients.
func (s *Server) BroadcastState() {
	snapshot := s.manager.Snapshot()
	s.io.Emit("pushState", snapshot)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(snapshot)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastQueue sends the queue to all connected clients.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", s.manager.Queue())
}

// BroadcastFavorites sends the favorites list to all connected clients.
func (s *Server) BroadcastFavorites() {
	s.io.Emit("pushFavorites", s.manager.Favorites())
}

// BroadcastRecentlyPlayed sends the recently played list to all connected clients.
func (s *Server) BroadcastRecentlyPlayed() {
	s.io.Emit("pushRecentlyPlayed", s.manager.RecentlyPlayed())
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.debouncer.Stop()
	s.io.Close(nil)
	return nil
}

// handshakeIP extracts the peer IP from the socket handshake, stripping any
// port suffix.
func handshakeIP(client *socket.Socket) string {
	hs := client.Handshake()
	if hs == nil {
		return ""
	}
	addr := hs.Address
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// firstArg returns the first event argument, or nil.
func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// decodeTrack converts a raw event payload into a Track. A track needs at
// least a non-empty id; everything else is display data.
func decodeTrack(raw any) (player.Track, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return player.Track{}, false
	}

	id, _ := m["id"].(string)
	if id == "" {
		return player.Track{}, false
	}

	track := player.Track{ID: id}
	track.Title, _ = m["title"].(string)
	track.Thumbnail, _ = m["thumbnail"].(string)
	track.ChannelTitle, _ = m["channelTitle"].(string)
	track.PublishedAt, _ = m["publishedAt"].(string)
	track.Duration, _ = m["duration"].(string)
	return track, true
}

// floatArg accepts either a bare number or a {"value": n} wrapper.
func floatArg(args []any) (float64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	if v, ok := args[0].(float64); ok {
		return v, true
	}
	if m, ok := args[0].(map[string]interface{}); ok {
		if v, ok := m["value"].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

// idArg accepts either a bare string or a {"id": s} wrapper.
func idArg(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	if v, ok := args[0].(string); ok && v != "" {
		return v, true
	}
	if m, ok := args[0].(map[string]interface{}); ok {
		if v, ok := m["id"].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// queryArg accepts either a bare string or a {"query": s} wrapper.
func queryArg(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	if v, ok := args[0].(string); ok {
		return v, true
	}
	if m, ok := args[0].(map[string]interface{}); ok {
		if v, ok := m["query"].(string); ok {
			return v, true
		}
	}
	return "", false
}
