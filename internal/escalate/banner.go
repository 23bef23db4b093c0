package escalate

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/api"
)

// defaultBannerInterval is the passive banner's poll cadence.
const defaultBannerInterval = 15 * time.Second

// BannerFeed is the read-only alert slice the banner consumes.
type BannerFeed interface {
	MyAlerts(ctx context.Context) (*api.MyAlertsResult, error)
}

// BannerMsg carries the unread alert count for the always-visible banner.
type BannerMsg struct {
	UnreadCount int
	Err         error
}

// Banner independently polls the unread alert count. It is deliberately
// separate from the Engine's modal state machine: acknowledging or
// dismissing the modal never suppresses this lower-severity channel.
type Banner struct {
	feed     BannerFeed
	interval time.Duration

	resultCh chan BannerMsg
	stopCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewBanner creates a banner poller. interval zero selects the
// 15-second default.
func NewBanner(feed BannerFeed, interval time.Duration) *Banner {
	if interval <= 0 {
		interval = defaultBannerInterval
	}
	return &Banner{
		feed:     feed,
		interval: interval,
		resultCh: make(chan BannerMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the banner poll loop and returns a subscription command.
func (b *Banner) Start() tea.Cmd {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.mu.Unlock()

	go b.loop()

	return b.waitForResult()
}

// Stop halts the banner poll loop.
func (b *Banner) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	close(b.stopCh)
	b.running = false
}

func (b *Banner) loop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.sendResult(b.cycle())
		}
	}
}

func (b *Banner) cycle() BannerMsg {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	result, err := b.feed.MyAlerts(ctx)
	if err != nil {
		return BannerMsg{Err: err}
	}
	return BannerMsg{UnreadCount: result.UnreadCount}
}

func (b *Banner) sendResult(msg BannerMsg) {
	select {
	case b.resultCh <- msg:
	default:
	}
}

func (b *Banner) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-b.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next banner
// count. Call after processing a BannerMsg to keep listening.
func (b *Banner) WaitForNextResult() tea.Cmd {
	return b.waitForResult()
}
