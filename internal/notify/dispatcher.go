package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"github.com/hannysoft/mesa-client/internal/audio"
	"github.com/hannysoft/mesa-client/internal/model"
)

// maxNotifications caps the in-app list; the oldest record is evicted
// when a new one arrives.
const maxNotifications = 10

// Dispatcher turns incident deltas into notification records and fans them
// out to the in-app list, the desktop notification channel, and the audio
// gate. The list is ephemeral client state: newest first, capped, and the
// read flag on each record only moves false -> true.
type Dispatcher struct {
	mu            sync.Mutex
	notifications []model.Notification
	unread        int

	gate    *audio.Gate
	desktop bool

	// notifyDesktop is swappable for tests; defaults to beeep.Notify.
	notifyDesktop func(title, message string, icon any) error
}

// NewDispatcher creates a dispatcher. desktop reflects the configured
// desktop-notification toggle; the first delivery failure switches the
// channel off for the rest of the session without surfacing an error.
func NewDispatcher(gate *audio.Gate, desktop bool) *Dispatcher {
	return &Dispatcher{
		gate:          gate,
		desktop:       desktop,
		notifyDesktop: beeep.Notify,
	}
}

// Dispatch records one notification per delta incident and fans out to the
// remaining channels. Assigned transitions and new pending items get
// distinct wording; both count as unread.
func (d *Dispatcher) Dispatch(assigned, pending []model.Incident) {
	for _, inc := range assigned {
		d.add(model.Notification{
			IncidentID: inc.ID,
			Title:      "Incidente actualizado",
			Message:    fmt.Sprintf("%s: %s (%s)", inc.Folio, inc.Title, inc.Status),
		})
	}
	for _, inc := range pending {
		d.add(model.Notification{
			IncidentID: inc.ID,
			Title:      "Nuevo incidente pendiente",
			Message:    fmt.Sprintf("%s: %s", inc.Folio, inc.Title),
		})
	}

	if len(assigned)+len(pending) > 0 {
		d.gate.PlayIncident()
	}
}

// add prepends a record, evicting the oldest past the cap, and raises the
// desktop notification when that channel is still on.
func (d *Dispatcher) add(n model.Notification) {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	d.mu.Lock()
	d.notifications = append([]model.Notification{n}, d.notifications...)
	d.unread++
	for len(d.notifications) > maxNotifications {
		last := len(d.notifications) - 1
		if !d.notifications[last].Read {
			d.unread--
		}
		d.notifications = d.notifications[:last]
	}
	desktop := d.desktop
	sink := d.notifyDesktop
	d.mu.Unlock()

	if !desktop {
		return
	}
	if err := sink(n.Title, n.Message, ""); err != nil {
		// Permission denial or missing notification daemon: degrade to
		// the in-app list and audio for the rest of the session.
		slog.Warn("desktop notifications unavailable", "error", err)
		d.mu.Lock()
		d.desktop = false
		d.mu.Unlock()
	}
}

// Notifications returns a snapshot of the list, newest first.
func (d *Dispatcher) Notifications() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Notification, len(d.notifications))
	copy(out, d.notifications)
	return out
}

// UnreadCount returns the number of unread records in the list.
func (d *Dispatcher) UnreadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

// MarkAsRead marks one record as read. Unknown or already-read IDs are
// no-ops.
func (d *Dispatcher) MarkAsRead(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.notifications {
		if d.notifications[i].ID == id && !d.notifications[i].Read {
			d.notifications[i].Read = true
			d.unread--
			break
		}
	}
}

// MarkAllAsRead marks every record as read and zeroes the counter.
func (d *Dispatcher) MarkAllAsRead() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.notifications {
		d.notifications[i].Read = true
	}
	d.unread = 0
}

// Clear empties the list and zeroes the counter.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = nil
	d.unread = 0
}

// TestSound plays the incident cue so the user can verify their setup.
func (d *Dispatcher) TestSound() {
	d.gate.PlayIncident()
}
