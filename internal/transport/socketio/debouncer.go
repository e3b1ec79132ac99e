package socketio

import (
	"sync"
	"time"

	"github.com/Malay-Mete/musicsync-11/internal/domain/player"
)

// BroadcastCallbacks holds one broadcast function per change kind. Nil
// entries are skipped.
type BroadcastCallbacks struct {
	State     func()
	Queue     func()
	Favorites func()
	Recent    func()
}

// BroadcastDebouncer collapses rapid manager changes into batched broadcasts.
// Multiple changes within the debounce window result in a single broadcast
// for each affected kind.
type BroadcastDebouncer struct {
	window    time.Duration
	callbacks BroadcastCallbacks

	mu               sync.Mutex
	pendingState     bool
	pendingQueue     bool
	pendingFavorites bool
	pendingRecent    bool
	timer            *time.Timer
	stopped          bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
func NewBroadcastDebouncer(window time.Duration, callbacks BroadcastCallbacks) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:    window,
		callbacks: callbacks,
	}
}

// Trigger records that the given change kind occurred. The actual broadcast
// callbacks are deferred until the debounce window elapses without further
// triggers.
func (d *BroadcastDebouncer) Trigger(kind player.Change) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch kind {
	case player.ChangePlayback:
		d.pendingState = true
	case player.ChangeQueue:
		d.pendingState = true
		d.pendingQueue = true
	case player.ChangeFavorites:
		d.pendingFavorites = true
	case player.ChangeRecent:
		d.pendingRecent = true
	}

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doState := d.pendingState
	doQueue := d.pendingQueue
	doFavorites := d.pendingFavorites
	doRecent := d.pendingRecent
	d.pendingState = false
	d.pendingQueue = false
	d.pendingFavorites = false
	d.pendingRecent = false
	d.mu.Unlock()

	if doState && d.callbacks.State != nil {
		d.callbacks.State()
	}
	if doQueue && d.callbacks.Queue != nil {
		d.callbacks.Queue()
	}
	if doFavorites && d.callbacks.Favorites != nil {
		d.callbacks.Favorites()
	}
	if doRecent && d.callbacks.Recent != nil {
		d.callbacks.Recent()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingQueue = false
	d.pendingFavorites = false
	d.pendingRecent = false
}
