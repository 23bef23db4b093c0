package escalate

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/audio"
	"github.com/hannysoft/mesa-client/internal/model"
)

// Engine cadences and the acknowledgment grace delay.
const (
	defaultPollInterval   = 10 * time.Second
	defaultRepeatInterval = 30 * time.Minute
	rearmGraceDelay       = 3 * time.Second
	fetchTimeout          = 8 * time.Second
)

// State is the engine's presentation state.
type State int

const (
	// Idle means no unacknowledged alert is being presented.
	Idle State = iota
	// Presenting means an alert modal is up and the repeat chime is armed.
	Presenting
)

// AlertFeed is the slice of the backend API the engine consumes. The
// engine never creates or dismisses alerts; MarkAlertRead is its only
// write.
type AlertFeed interface {
	MyAlerts(ctx context.Context) (*api.MyAlertsResult, error)
	InSupervision(ctx context.Context) ([]model.Incident, error)
	MarkAlertRead(ctx context.Context, alertID int) error
}

// EngineMsg is a tea.Msg sent after each engine poll cycle. Alert is
// non-nil only on the cycle that starts a Presenting episode.
type EngineMsg struct {
	Alert            *model.Alert
	SupervisionCount int
	Err              error
}

// Engine polls server-held alerts for supervisory roles and latches into a
// Presenting episode when an active alert appears. At most one episode is
// ever live regardless of how many polls overlap or how many alerts are
// active; the episode ends only through explicit acknowledgment. While
// Presenting, a single shared repeat timer re-plays the alert cue on a
// fixed period.
type Engine struct {
	feed AlertFeed
	role model.Role
	gate *audio.Gate

	pollInterval   time.Duration
	repeatInterval time.Duration

	resultCh chan EngineMsg
	stopCh   chan struct{}

	mu         sync.Mutex
	running    bool
	state      State
	presenting *model.Alert
	rearmAt    time.Time
	repeatStop chan struct{}
}

// NewEngine creates an escalation engine for the given actor role.
// pollInterval zero selects the 10-second default.
func NewEngine(
	feed AlertFeed,
	role model.Role,
	gate *audio.Gate,
	pollInterval time.Duration,
) *Engine {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Engine{
		feed:           feed,
		role:           role,
		gate:           gate,
		pollInterval:   pollInterval,
		repeatInterval: defaultRepeatInterval,
		resultCh:       make(chan EngineMsg, 16),
		stopCh:         make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a subscription command.
// Returns nil for non-supervisory roles and when already running.
func (e *Engine) Start() tea.Cmd {
	if !e.role.Supervisory() {
		return nil
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.mu.Unlock()

	go e.loop()

	return e.waitForResult()
}

// Stop halts the poll loop and any live repeat timer.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	close(e.stopCh)
	e.running = false
	e.stopRepeatLocked()
}

// CurrentState returns the engine's presentation state.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PresentingAlert returns the alert of the live episode, nil when idle.
func (e *Engine) PresentingAlert() *model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presenting
}

// Acknowledge ends the live episode by marking the alert read on the
// server. On success the repeat timer stops and the engine re-arms after a
// short grace delay. On failure the episode stays live, the repeat timer
// keeps running, and the error is returned for the UI to surface.
func (e *Engine) Acknowledge(ctx context.Context) error {
	e.mu.Lock()
	alert := e.presenting
	e.mu.Unlock()

	if alert == nil {
		return nil
	}

	if err := e.feed.MarkAlertRead(ctx, alert.ID); err != nil {
		return err
	}

	e.mu.Lock()
	e.stopRepeatLocked()
	e.state = Idle
	e.presenting = nil
	e.rearmAt = time.Now().Add(rearmGraceDelay)
	e.mu.Unlock()

	return nil
}

// loop runs the fixed-cadence poll until stopped.
func (e *Engine) loop() {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.sendResult(e.cycle())
		}
	}
}

// cycle fetches alerts and the supervision count, then latches into
// Presenting if an active alert exists and no episode is live.
func (e *Engine) cycle() EngineMsg {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	alerts, err := e.feed.MyAlerts(ctx)
	if err != nil {
		return EngineMsg{Err: err}
	}

	supervision, err := e.feed.InSupervision(ctx)
	if err != nil {
		return EngineMsg{Err: err}
	}

	msg := EngineMsg{SupervisionCount: len(supervision)}

	var active *model.Alert
	for i := range alerts.Alerts {
		if alerts.Alerts[i].IsActive() {
			active = &alerts.Alerts[i]
			break
		}
	}
	if active == nil {
		return msg
	}

	e.mu.Lock()
	if e.state == Presenting || time.Now().Before(e.rearmAt) {
		e.mu.Unlock()
		return msg
	}
	e.state = Presenting
	e.presenting = active
	e.startRepeatLocked()
	e.mu.Unlock()

	e.gate.PlayAlert()
	msg.Alert = active
	return msg
}

// startRepeatLocked arms the shared repeat chime for the live episode.
// Caller holds e.mu.
func (e *Engine) startRepeatLocked() {
	stop := make(chan struct{})
	e.repeatStop = stop

	go func() {
		ticker := time.NewTicker(e.repeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.gate.PlayAlert()
			}
		}
	}()
}

// stopRepeatLocked tears down the repeat chime. Caller holds e.mu.
func (e *Engine) stopRepeatLocked() {
	if e.repeatStop != nil {
		close(e.repeatStop)
		e.repeatStop = nil
	}
}

// sendResult sends an EngineMsg on the result channel without blocking.
func (e *Engine) sendResult(msg EngineMsg) {
	select {
	case e.resultCh <- msg:
	default:
	}
}

// waitForResult returns a tea.Cmd that waits for the next engine result.
func (e *Engine) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-e.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next engine
// result. Call after processing an EngineMsg to keep listening.
func (e *Engine) WaitForNextResult() tea.Cmd {
	return e.waitForResult()
}
