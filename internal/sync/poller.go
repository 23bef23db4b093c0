package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/model"
)

// fetchTimeout is the maximum time allowed for a single poll cycle's
// network calls.
const fetchTimeout = 25 * time.Second

// IncidentFeed is the slice of the backend API the poller consumes.
type IncidentFeed interface {
	MyIncidents(ctx context.Context) ([]model.Incident, error)
	IncidentsByStatus(ctx context.Context, status string) ([]model.Incident, error)
}

// DeltaMsg is a tea.Msg sent after a poll cycle. Assigned holds incidents
// whose assignment changed since the watermark; Pending holds incidents
// newly awaiting attention. On a failed cycle Err is set and both slices
// are empty; the same window is re-examined next tick.
type DeltaMsg struct {
	Assigned []model.Incident
	Pending  []model.Incident
	Err      error
}

// Poller watches the two incident feeds and emits the delta past a
// monotonically advancing watermark. Delivery is at-least-once: the
// watermark only moves after both fetches in a cycle succeed, so a failed
// cycle replays its window and downstream consumers must tolerate
// duplicates.
//
// Incident polling exists for technicians only; for any other role Start
// is a no-op.
type Poller struct {
	feed     IncidentFeed
	role     model.Role
	interval time.Duration

	resultCh chan DeltaMsg
	stopCh   chan struct{}
	mu       gosync.Mutex
	running  bool

	watermark time.Time
	now       func() time.Time
}

// New creates a Poller for the given actor role. interval is the poll
// cadence; zero selects the 30-second default.
func New(feed IncidentFeed, role model.Role, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		feed:     feed,
		role:     role,
		interval: interval,
		resultCh: make(chan DeltaMsg, 16),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the polling goroutine and returns a command that
// subscribes the Bubble Tea runtime to poll results. Returns nil for
// non-technician roles and when already running.
func (p *Poller) Start() tea.Cmd {
	if p.role != model.RoleTecnico {
		return nil
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.watermark = p.now()
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine. Safe to call more than once and
// before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Watermark returns the current reconciliation boundary.
func (p *Poller) Watermark() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

// loop runs the fixed-cadence poll cycle until stopped.
func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sendResult(p.cycle())
		}
	}
}

// cycle runs one reconciliation pass: fetch both feeds, compute the delta
// past the watermark, and advance the watermark only if both fetches
// succeeded. A failure leaves the watermark untouched so the next cycle
// re-examines the same window.
func (p *Poller) cycle() DeltaMsg {
	cycleStart := p.now()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	assigned, err := p.feed.MyIncidents(ctx)
	if err != nil {
		return DeltaMsg{Err: err}
	}

	pending, err := p.feed.IncidentsByStatus(ctx, model.StatusPendiente)
	if err != nil {
		return DeltaMsg{Err: err}
	}

	p.mu.Lock()
	watermark := p.watermark
	// Both fetches succeeded; the watermark may advance. It never rolls back.
	if cycleStart.After(p.watermark) {
		p.watermark = cycleStart
	}
	p.mu.Unlock()

	var delta DeltaMsg
	for _, inc := range assigned {
		// Assignment transitions move UpdatedAt.
		if inc.UpdatedAt.After(watermark) {
			delta.Assigned = append(delta.Assigned, inc)
		}
	}
	for _, inc := range pending {
		// New pending items are detected by creation time.
		if inc.CreatedAt.After(watermark) {
			delta.Pending = append(delta.Pending, inc)
		}
	}

	return delta
}

// sendResult sends a DeltaMsg on the result channel without blocking.
func (p *Poller) sendResult(msg DeltaMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next poll result.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call after processing a DeltaMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
