package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EngineState is the playback state reported by the underlying engine.
type EngineState string

const (
	EngineStatePlaying EngineState = "playing"
	EngineStatePaused  EngineState = "paused"
	EngineStateStopped EngineState = "stopped"
)

// Engine is the playback widget the adapter drives. It is treated as an
// opaque external dependency: it decodes and renders the media, nothing else.
type Engine interface {
	// Connect bootstraps the engine. Called exactly once per process.
	Connect() error

	// Load loads the track with the given id at a start offset in seconds.
	Load(trackID string, startSeconds float64) error

	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume int) error

	// Progress reports the live position and duration in seconds along with
	// the engine's own playback state.
	Progress() (position, duration float64, state EngineState, err error)

	Close() error
}

// pollInterval is how often the adapter reads the engine's live position
// while playback is active.
const pollInterval = time.Second

// Adapter bridges the manager's playback intents to an Engine and translates
// engine progress back into manager updates. If the engine fails to
// bootstrap, the adapter stays permanently not ready: intents are silently
// deferred or dropped and the manager keeps working without playback.
type Adapter struct {
	mgr *Manager
	eng Engine

	bootstrap sync.Once

	mu          sync.Mutex
	ready       bool
	pendingSeek *float64 // single slot, last write wins
	pollStop    chan struct{}
	lastState   EngineState
}

// NewAdapter creates an adapter and registers it as the manager's listener.
func NewAdapter(mgr *Manager, eng Engine) *Adapter {
	a := &Adapter{
		mgr:       mgr,
		eng:       eng,
		lastState: EngineStateStopped,
	}
	mgr.SetListener(a)
	return a
}

// Start bootstraps the engine asynchronously. Safe to call more than once;
// only the first call connects.
func (a *Adapter) Start() {
	a.bootstrap.Do(func() {
		go a.connect()
	})
}

func (a *Adapter) connect() {
	if err := a.eng.Connect(); err != nil {
		log.Error().Err(err).Msg("Playback engine bootstrap failed, playback disabled")
		return
	}

	a.mu.Lock()
	a.ready = true
	pending := a.pendingSeek
	a.pendingSeek = nil
	a.mu.Unlock()

	log.Info().Msg("Playback engine ready")

	// Apply current state: volume first, then the track if one exists.
	if err := a.eng.SetVolume(a.mgr.Volume()); err != nil {
		log.Warn().Err(err).Msg("Failed to apply volume on ready")
	}

	if cur := a.mgr.Current(); cur != nil {
		pos := a.mgr.Position()
		if err := a.eng.Load(cur.ID, pos); err != nil {
			log.Error().Err(err).Str("id", cur.ID).Msg("Failed to load track on ready")
			return
		}
		a.applyPlayState(a.mgr.IsPlaying())
	}

	if pending != nil {
		if err := a.eng.Seek(*pending); err != nil {
			log.Warn().Err(err).Float64("seconds", *pending).Msg("Failed to replay deferred seek")
		}
	}
}

// TrackChanged implements Listener.
func (a *Adapter) TrackChanged(track *Track, position float64, playing bool) {
	if !a.isReady() {
		return
	}

	if track == nil {
		if err := a.eng.Pause(); err != nil {
			log.Warn().Err(err).Msg("Failed to pause engine")
		}
		a.stopPoll()
		return
	}

	if err := a.eng.Load(track.ID, position); err != nil {
		log.Error().Err(err).Str("id", track.ID).Msg("Failed to load track")
		return
	}
	a.setLastState(EngineStatePlaying)
	a.applyPlayState(playing)
}

// PlayStateChanged implements Listener.
func (a *Adapter) PlayStateChanged(playing bool) {
	if !a.isReady() {
		return
	}
	a.applyPlayState(playing)
}

// VolumeChanged implements Listener. When not ready the value is picked up
// by the on-ready volume application instead.
func (a *Adapter) VolumeChanged(volume int) {
	if !a.isReady() {
		return
	}
	if err := a.eng.SetVolume(volume); err != nil {
		log.Warn().Err(err).Int("volume", volume).Msg("Failed to set engine volume")
	}
}

// SeekRequested implements Listener. Seeks before readiness are parked in a
// single pending slot and replayed once the engine comes up.
func (a *Adapter) SeekRequested(seconds float64) {
	a.mu.Lock()
	if !a.ready {
		s := seconds
		a.pendingSeek = &s
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	if err := a.eng.Seek(seconds); err != nil {
		log.Warn().Err(err).Float64("seconds", seconds).Msg("Failed to seek engine")
	}
}

// Close stops the poll loop and shuts down the engine.
func (a *Adapter) Close() error {
	a.stopPoll()
	return a.eng.Close()
}

func (a *Adapter) isReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

func (a *Adapter) setLastState(s EngineState) {
	a.mu.Lock()
	a.lastState = s
	a.mu.Unlock()
}

func (a *Adapter) applyPlayState(playing bool) {
	if playing {
		if err := a.eng.Play(); err != nil {
			log.Warn().Err(err).Msg("Failed to start engine playback")
			return
		}
		a.startPoll()
	} else {
		if err := a.eng.Pause(); err != nil {
			log.Warn().Err(err).Msg("Failed to pause engine")
		}
		a.stopPoll()
	}
}

// startPoll begins the periodic progress read. Only one loop runs at a time.
func (a *Adapter) startPoll() {
	a.mu.Lock()
	if a.pollStop != nil {
		a.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	a.pollStop = stop
	a.mu.Unlock()

	go a.pollLoop(stop)
}

func (a *Adapter) stopPoll() {
	a.mu.Lock()
	if a.pollStop != nil {
		close(a.pollStop)
		a.pollStop = nil
	}
	a.mu.Unlock()
}

// pollLoop reads the engine position once a second, writes it back into the
// manager, and advances the queue when the engine reports the track ended.
func (a *Adapter) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pos, dur, state, err := a.eng.Progress()
			if err != nil {
				log.Warn().Err(err).Msg("Failed to read engine progress")
				continue
			}

			a.mgr.UpdateProgress(pos, dur)

			a.mu.Lock()
			ended := state == EngineStateStopped && a.lastState == EngineStatePlaying
			a.lastState = state
			a.mu.Unlock()

			if ended {
				log.Debug().Msg("Track ended")
				a.stopPoll()
				a.mgr.Advance()
				return
			}
		}
	}
}
