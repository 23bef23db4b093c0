package notify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/audio"
	"github.com/hannysoft/mesa-client/internal/model"
)

// newTestDispatcher returns a dispatcher whose desktop channel records
// deliveries instead of touching the platform.
func newTestDispatcher(desktop bool) (*Dispatcher, *[]string) {
	gate := audio.NewGate(true)
	d := NewDispatcher(gate, desktop)

	var delivered []string
	d.notifyDesktop = func(title, _ string, _ any) error {
		delivered = append(delivered, title)
		return nil
	}
	return d, &delivered
}

func incidents(n int) []model.Incident {
	out := make([]model.Incident, n)
	for i := range out {
		out[i] = model.Incident{
			ID:    i + 1,
			Folio: fmt.Sprintf("INC-%03d", i+1),
			Title: "impresora",
		}
	}
	return out
}

func TestDispatchCreatesRecordsNewestFirst(t *testing.T) {
	d, _ := newTestDispatcher(false)

	d.Dispatch(incidents(2), nil)
	d.Dispatch(nil, []model.Incident{{ID: 99, Folio: "INC-099"}})

	list := d.Notifications()
	require.Len(t, list, 3)
	assert.Equal(t, 99, list[0].IncidentID, "newest record is first")
	assert.Equal(t, 3, d.UnreadCount())
}

func TestListIsCappedAtTen(t *testing.T) {
	d, _ := newTestDispatcher(false)

	d.Dispatch(incidents(14), nil)

	list := d.Notifications()
	require.Len(t, list, 10)
	// FIFO eviction: the oldest four fell off the end.
	assert.Equal(t, 14, list[0].IncidentID)
	assert.Equal(t, 5, list[9].IncidentID)
	assert.Equal(t, 10, d.UnreadCount(), "evicted records leave the counter")
}

func TestMarkAsRead(t *testing.T) {
	d, _ := newTestDispatcher(false)
	d.Dispatch(incidents(3), nil)

	target := d.Notifications()[1]
	d.MarkAsRead(target.ID)

	assert.Equal(t, 2, d.UnreadCount())
	for _, n := range d.Notifications() {
		if n.ID == target.ID {
			assert.True(t, n.Read)
		}
	}

	t.Run("repeat mark is a no-op", func(t *testing.T) {
		d.MarkAsRead(target.ID)
		assert.Equal(t, 2, d.UnreadCount())
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		d.MarkAsRead("no-such-id")
		assert.Equal(t, 2, d.UnreadCount())
	})
}

func TestMarkAllAsRead(t *testing.T) {
	d, _ := newTestDispatcher(false)
	d.Dispatch(incidents(5), nil)

	d.MarkAllAsRead()

	assert.Zero(t, d.UnreadCount())
	for _, n := range d.Notifications() {
		assert.True(t, n.Read)
	}
}

func TestClear(t *testing.T) {
	d, _ := newTestDispatcher(false)
	d.Dispatch(incidents(5), nil)

	d.Clear()

	assert.Empty(t, d.Notifications())
	assert.Zero(t, d.UnreadCount())
}

func TestDesktopChannelDelivers(t *testing.T) {
	d, delivered := newTestDispatcher(true)

	d.Dispatch(incidents(2), nil)
	assert.Len(t, *delivered, 2)
}

func TestDesktopChannelDegradesSilentlyOnFailure(t *testing.T) {
	gate := audio.NewGate(true)
	d := NewDispatcher(gate, true)

	attempts := 0
	d.notifyDesktop = func(_, _ string, _ any) error {
		attempts++
		return errors.New("no notification daemon")
	}

	d.Dispatch(incidents(3), nil)

	// The first failure switches the channel off; the in-app list still
	// receives every record.
	assert.Equal(t, 1, attempts)
	assert.Len(t, d.Notifications(), 3)
	assert.Equal(t, 3, d.UnreadCount())
}
