package escalate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/audio"
	"github.com/hannysoft/mesa-client/internal/model"
)

type fakeAlertFeed struct {
	alerts      []model.Alert
	unread      int
	supervision []model.Incident

	alertsErr      error
	supervisionErr error
	ackErr         error

	acked []int
}

func (f *fakeAlertFeed) MyAlerts(context.Context) (*api.MyAlertsResult, error) {
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return &api.MyAlertsResult{Alerts: f.alerts, UnreadCount: f.unread}, nil
}

func (f *fakeAlertFeed) InSupervision(context.Context) ([]model.Incident, error) {
	if f.supervisionErr != nil {
		return nil, f.supervisionErr
	}
	return f.supervision, nil
}

func (f *fakeAlertFeed) MarkAlertRead(_ context.Context, alertID int) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.acked = append(f.acked, alertID)
	return nil
}

func activeAlert(id int) model.Alert {
	return model.Alert{
		ID:         id,
		Message:    "revisar folio INC-042",
		SentByName: "Laura",
		SentByRole: "coordinador",
		Status:     model.AlertActive,
		CreatedAt:  time.Now(),
	}
}

func newTestEngine(feed AlertFeed) *Engine {
	return NewEngine(feed, model.RoleAdmin, audio.NewGate(false), time.Second)
}

func TestStartIsNoOpForNonSupervisoryRoles(t *testing.T) {
	feed := &fakeAlertFeed{}
	for _, role := range []model.Role{model.RoleTecnico, model.RoleUsuario} {
		e := NewEngine(feed, role, audio.NewGate(false), time.Second)
		assert.Nil(t, e.Start(), "role %s must not poll alerts", role)
	}
}

func TestCycleLatchesSinglePresentingEpisode(t *testing.T) {
	feed := &fakeAlertFeed{
		alerts:      []model.Alert{activeAlert(7)},
		supervision: []model.Incident{{ID: 1}, {ID: 2}},
	}
	e := newTestEngine(feed)

	msg := e.cycle()
	require.NotNil(t, msg.Alert)
	assert.Equal(t, 7, msg.Alert.ID)
	assert.Equal(t, 2, msg.SupervisionCount)
	assert.Equal(t, Presenting, e.CurrentState())

	t.Run("further cycles do not restack the episode", func(t *testing.T) {
		feed.alerts = append(feed.alerts, activeAlert(8))

		msg := e.cycle()
		assert.Nil(t, msg.Alert)
		assert.Equal(t, Presenting, e.CurrentState())
		require.NotNil(t, e.PresentingAlert())
		assert.Equal(t, 7, e.PresentingAlert().ID, "live episode keeps its alert")
	})
}

func TestNonActiveAlertsAreIgnored(t *testing.T) {
	feed := &fakeAlertFeed{alerts: []model.Alert{
		{ID: 3, Status: model.AlertAcknowledged},
		{ID: 4, Status: model.AlertDismissed},
	}}
	e := newTestEngine(feed)

	msg := e.cycle()
	assert.Nil(t, msg.Alert)
	assert.Equal(t, Idle, e.CurrentState())
}

func TestAcknowledgeEndsEpisode(t *testing.T) {
	feed := &fakeAlertFeed{alerts: []model.Alert{activeAlert(7)}}
	e := newTestEngine(feed)
	e.cycle()
	require.Equal(t, Presenting, e.CurrentState())

	err := e.Acknowledge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Idle, e.CurrentState())
	assert.Nil(t, e.PresentingAlert())
	assert.Equal(t, []int{7}, feed.acked)
	assert.Nil(t, e.repeatStop, "repeat chime stops with the episode")
}

func TestAcknowledgeFailureKeepsEpisodeLive(t *testing.T) {
	feed := &fakeAlertFeed{
		alerts: []model.Alert{activeAlert(7)},
		ackErr: errors.New("503"),
	}
	e := newTestEngine(feed)
	e.cycle()

	err := e.Acknowledge(context.Background())
	require.Error(t, err)

	assert.Equal(t, Presenting, e.CurrentState())
	require.NotNil(t, e.PresentingAlert())
	assert.NotNil(t, e.repeatStop, "repeat chime keeps running")

	t.Run("retry after recovery succeeds", func(t *testing.T) {
		feed.ackErr = nil
		require.NoError(t, e.Acknowledge(context.Background()))
		assert.Equal(t, Idle, e.CurrentState())
	})
}

func TestAcknowledgeWhenIdleIsNoOp(t *testing.T) {
	feed := &fakeAlertFeed{}
	e := newTestEngine(feed)

	assert.NoError(t, e.Acknowledge(context.Background()))
	assert.Empty(t, feed.acked)
}

func TestRearmGraceSuppressesImmediateRelatch(t *testing.T) {
	feed := &fakeAlertFeed{alerts: []model.Alert{activeAlert(7)}}
	e := newTestEngine(feed)
	e.cycle()
	require.NoError(t, e.Acknowledge(context.Background()))

	// The same alert may still be reported for a poll or two until the
	// server-side read state propagates.
	msg := e.cycle()
	assert.Nil(t, msg.Alert)
	assert.Equal(t, Idle, e.CurrentState())

	t.Run("past the grace window a new episode latches", func(t *testing.T) {
		e.mu.Lock()
		e.rearmAt = time.Now().Add(-time.Second)
		e.mu.Unlock()

		msg := e.cycle()
		require.NotNil(t, msg.Alert)
		assert.Equal(t, Presenting, e.CurrentState())
	})
}

func TestFetchFailureKeepsEpisodeLive(t *testing.T) {
	feed := &fakeAlertFeed{alerts: []model.Alert{activeAlert(7)}}
	e := newTestEngine(feed)
	e.cycle()

	feed.alertsErr = errors.New("timeout")
	msg := e.cycle()

	assert.Error(t, msg.Err)
	assert.Equal(t, Presenting, e.CurrentState())
	assert.NotNil(t, e.PresentingAlert())
}

func TestSupervisionFetchFailureIsReported(t *testing.T) {
	feed := &fakeAlertFeed{supervisionErr: errors.New("timeout")}
	e := newTestEngine(feed)

	msg := e.cycle()
	assert.Error(t, msg.Err)
}

func TestEngineStopIsIdempotent(t *testing.T) {
	e := newTestEngine(&fakeAlertFeed{})
	require.NotNil(t, e.Start())

	e.Stop()
	assert.NotPanics(t, func() { e.Stop() })
}

func TestBannerCycleReportsUnreadCount(t *testing.T) {
	feed := &fakeAlertFeed{unread: 4}
	b := NewBanner(feed, time.Second)

	msg := b.cycle()
	assert.NoError(t, msg.Err)
	assert.Equal(t, 4, msg.UnreadCount)
}

func TestBannerCycleReportsFetchError(t *testing.T) {
	feed := &fakeAlertFeed{alertsErr: errors.New("timeout")}
	b := NewBanner(feed, time.Second)

	msg := b.cycle()
	assert.Error(t, msg.Err)
}

func TestBannerStopIsIdempotent(t *testing.T) {
	b := NewBanner(&fakeAlertFeed{}, time.Second)
	require.NotNil(t, b.Start())

	b.Stop()
	assert.NotPanics(t, func() { b.Stop() })
}
