package audio

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockedGateDropsPlayback(t *testing.T) {
	g := NewGate(true)

	var plays int
	g.playTone = func(_ float64, _ int) error {
		plays++
		return nil
	}

	g.PlayIncident()
	g.PlayAlert()
	assert.Zero(t, plays, "locked gate must drop requests, not queue them")
}

func TestSingleGestureUnlocks(t *testing.T) {
	g := NewGate(true)

	var plays int
	g.playTone = func(_ float64, _ int) error {
		plays++
		return nil
	}

	g.Unlock()
	assert.True(t, g.Unlocked())

	g.PlayIncident()
	assert.Equal(t, 1, plays)

	// Unlock is one-way and idempotent.
	g.Unlock()
	g.PlayAlert()
	assert.Equal(t, 2, plays)
}

func TestDisabledGateDropsEvenWhenUnlocked(t *testing.T) {
	g := NewGate(false)

	var plays int
	g.playTone = func(_ float64, _ int) error {
		plays++
		return nil
	}

	g.Unlock()
	g.PlayIncident()
	assert.Zero(t, plays)
}

func TestPlaybackFailureDoesNotPropagate(t *testing.T) {
	g := NewGate(true)
	g.playTone = func(_ float64, _ int) error {
		return errors.New("decoder error")
	}
	g.Unlock()

	// Must not panic or surface the error.
	g.PlayIncident()
}

func TestConcurrentPlayIsSafe(t *testing.T) {
	g := NewGate(true)

	var mu sync.Mutex
	plays := 0
	g.playTone = func(_ float64, _ int) error {
		mu.Lock()
		plays++
		mu.Unlock()
		return nil
	}
	g.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.PlayIncident()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 16, plays)
}
