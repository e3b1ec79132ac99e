package mpd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

// Engine adapts the MPD client to the player.Engine interface. Track ids are
// mapped to stream URIs through a base URL template, so MPD only ever sees
// opaque audio streams.
type Engine struct {
	client     *Client
	streamBase string
}

// NewEngine creates an engine that resolves track ids against streamBase.
// A trailing slash on streamBase is optional.
func NewEngine(client *Client, streamBase string) *Engine {
	return &Engine{
		client:     client,
		streamBase: strings.TrimSuffix(streamBase, "/"),
	}
}

// Connect implements player.Engine.
func (e *Engine) Connect() error {
	if err := e.client.Connect(); err != nil {
		return err
	}
	return e.client.Ping()
}

// Load implements player.Engine. The start offset is truncated to whole
// seconds; MPD seeks at second granularity.
func (e *Engine) Load(trackID string, startSeconds float64) error {
	uri := fmt.Sprintf("%s/%s", e.streamBase, trackID)
	return e.client.ReplaceAndPlay(uri, int(startSeconds))
}

// Play implements player.Engine.
func (e *Engine) Play() error {
	return e.client.Play()
}

// Pause implements player.Engine.
func (e *Engine) Pause() error {
	return e.client.Pause(true)
}

// Seek implements player.Engine.
func (e *Engine) Seek(seconds float64) error {
	return e.client.Seek(int(seconds))
}

// SetVolume implements player.Engine.
func (e *Engine) SetVolume(volume int) error {
	return e.client.SetVolume(volume)
}

// Progress implements player.Engine, reading position and duration from the
// MPD status fields.
func (e *Engine) Progress() (float64, float64, player.EngineState, error) {
	status, err := e.client.Status()
	if err != nil {
		return 0, 0, player.EngineStateStopped, err
	}

	pos, _ := strconv.ParseFloat(status["elapsed"], 64)
	dur, _ := strconv.ParseFloat(status["duration"], 64)

	state := player.EngineStateStopped
	switch status["state"] {
	case "play":
		state = player.EngineStatePlaying
	case "pause":
		state = player.EngineStatePaused
	}

	return pos, dur, state, nil
}

// Close implements player.Engine.
func (e *Engine) Close() error {
	return e.client.Close()
}
