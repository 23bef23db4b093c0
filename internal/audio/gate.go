package audio

import (
	"os"
	"sync"

	"github.com/gen2brain/beeep"
)

// Tone frequencies and durations for the two cue kinds, in Hz and ms.
const (
	incidentFreq     = 660.0
	incidentDuration = 200
	alertFreq        = 880.0
	alertDuration    = 450
)

// Gate guards sound playback behind a one-way Locked -> Unlocked latch.
// Playback requests made while locked are silently dropped, never queued:
// a cue that arrives before the user has interacted is carried by the
// other channels instead. The gate is a process-wide singleton resource;
// overlapping Play calls restart the cue rather than queue it.
type Gate struct {
	mu       sync.Mutex
	unlocked bool
	enabled  bool

	// playTone is swappable for tests; defaults to beeep.Beep.
	playTone func(freq float64, duration int) error
}

// NewGate creates a locked gate. enabled reflects the sound config toggle;
// a disabled gate drops every request even after unlock.
func NewGate(enabled bool) *Gate {
	return &Gate{
		enabled:  enabled,
		playTone: beeep.Beep,
	}
}

// Unlock transitions the gate to Unlocked. The first qualifying user
// input calls this; further calls are no-ops. There is no way back to
// Locked.
func (g *Gate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = true
}

// Unlocked reports whether a user gesture has been observed.
func (g *Gate) Unlocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unlocked
}

// PlayIncident plays the short incident-notification cue.
func (g *Gate) PlayIncident() {
	g.play(incidentFreq, incidentDuration)
}

// PlayAlert plays the longer escalation-alert cue.
func (g *Gate) PlayAlert() {
	g.play(alertFreq, alertDuration)
}

// play emits a tone if the gate is open. Idempotent and safe to call
// concurrently. Playback failure falls back to the terminal bell; no
// error ever reaches the caller.
func (g *Gate) play(freq float64, duration int) {
	g.mu.Lock()
	if !g.unlocked || !g.enabled {
		g.mu.Unlock()
		return
	}
	tone := g.playTone
	g.mu.Unlock()

	if err := tone(freq, duration); err != nil {
		// Synthesized fallback: the terminal bell.
		os.Stderr.WriteString("\a")
	}
}
