// Package main is the entry point for the MusicSync music discovery backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
	"github.com/Malay-Mete/musicsync-11/internal/domain/recommend"
	"github.com/Malay-Mete/musicsync-11/internal/domain/search"
	"github.com/Malay-Mete/musicsync-11/internal/infra/mpd"
	"github.com/Malay-Mete/musicsync-11/internal/infra/store"
	"github.com/Malay-Mete/musicsync-11/internal/infra/ytapi"
	"github.com/Malay-Mete/musicsync-11/internal/transport/socketio"
	"github.com/Malay-Mete/musicsync-11/internal/version"
)

func main() {
	// Command line flags
	port := flag.String("port", "3001", "HTTP server port")
	mpdHost := flag.String("mpd-host", "localhost", "MPD host")
	mpdPort := flag.Int("mpd-port", 6600, "MPD port")
	mpdPassword := flag.String("mpd-password", "", "MPD password")
	streamBase := flag.String("stream-base", "", "Base URL tracks are streamed from (track id is appended)")
	dbPath := flag.String("db", store.DefaultDBPath, "Path to the SQLite state database")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Environment overrides (.env is optional)
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Music Discovery & Playback Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("mpd_host", *mpdHost).
		Int("mpd_port", *mpdPort).
		Str("db", *dbPath).
		Bool("password_set", *mpdPassword != "").
		Msg("Configuration")

	apiKey := os.Getenv("YOUTUBE_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("YOUTUBE_API_KEY not set, searches will fail")
	}

	// Open the state store. Persistence is best effort: a store failure
	// degrades to in-memory defaults.
	st, err := store.Open(*dbPath)
	if err != nil {
		log.Error().Err(err).Str("path", *dbPath).Msg("Failed to open state store, running without persistence")
		st = nil
	} else {
		defer st.Close()
	}

	// Playback state manager
	manager := player.NewManager(st)
	manager.LoadPersisted()

	// Playback engine. A failed bootstrap leaves the adapter permanently
	// not ready; state management keeps working without audio.
	mpdClient := mpd.NewClient(*mpdHost, *mpdPort, *mpdPassword)
	engine := mpd.NewEngine(mpdClient, *streamBase)
	adapter := player.NewAdapter(manager, engine)
	adapter.Start()
	defer adapter.Close()

	// Search and recommendations
	ytClient := ytapi.NewClient(apiKey)
	history := search.NewHistory(st)
	searchSvc := search.NewService(ytClient, history)
	advisor := recommend.NewAdvisor()

	// Create Socket.io server
	socketServer, err := socketio.NewServer(manager, searchSvc, ytClient, advisor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recommendation loop
	go advisor.Run(ctx, recommend.DefaultInterval, func() {
		socketServer.RefreshRecommendations(ctx)
	})

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := mpdClient.Ping(); err != nil {
			w.Write([]byte(`{"status":"ok","playback":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","playback":"connected"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// Basic state endpoint (REST fallback)
	mux.HandleFunc("/api/v1/getState", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(manager.Snapshot())
	})

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
