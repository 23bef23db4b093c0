package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hannysoft/mesa-client/internal/model"
)

// fakeFeed is a scriptable IncidentFeed.
type fakeFeed struct {
	assigned    []model.Incident
	pending     []model.Incident
	assignedErr error
	pendingErr  error
}

func (f *fakeFeed) MyIncidents(_ context.Context) ([]model.Incident, error) {
	return f.assigned, f.assignedErr
}

func (f *fakeFeed) IncidentsByStatus(_ context.Context, _ string) ([]model.Incident, error) {
	return f.pending, f.pendingErr
}

func TestStartIsNoOpForNonTechnicians(t *testing.T) {
	p := New(&fakeFeed{}, model.RoleAdmin, time.Second)
	assert.Nil(t, p.Start())
}

func TestCycleComputesDeltaPastWatermark(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &fakeFeed{
		assigned: []model.Incident{
			{ID: 42, Folio: "INC-042", Status: model.StatusEnProceso, UpdatedAt: base.Add(time.Second)},
			{ID: 41, Folio: "INC-041", Status: model.StatusEnProceso, UpdatedAt: base.Add(-time.Hour)},
		},
		pending: []model.Incident{
			{ID: 50, Folio: "INC-050", Status: model.StatusPendiente, CreatedAt: base.Add(2 * time.Second)},
			{ID: 49, Folio: "INC-049", Status: model.StatusPendiente, CreatedAt: base.Add(-time.Minute)},
		},
	}

	p := New(feed, model.RoleTecnico, time.Second)
	p.watermark = base
	p.now = func() time.Time { return base.Add(30 * time.Second) }

	delta := p.cycle()
	require.NoError(t, delta.Err)

	require.Len(t, delta.Assigned, 1)
	assert.Equal(t, 42, delta.Assigned[0].ID)
	require.Len(t, delta.Pending, 1)
	assert.Equal(t, 50, delta.Pending[0].ID)
}

func TestWatermarkAdvancesOnlyWhenBothFetchesSucceed(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("second fetch fails", func(t *testing.T) {
		feed := &fakeFeed{pendingErr: errors.New("boom")}
		p := New(feed, model.RoleTecnico, time.Second)
		p.watermark = base
		p.now = func() time.Time { return base.Add(30 * time.Second) }

		delta := p.cycle()
		require.Error(t, delta.Err)
		assert.Equal(t, base, p.Watermark(), "failed cycle must not advance the watermark")
	})

	t.Run("first fetch fails", func(t *testing.T) {
		feed := &fakeFeed{assignedErr: errors.New("boom")}
		p := New(feed, model.RoleTecnico, time.Second)
		p.watermark = base
		p.now = func() time.Time { return base.Add(30 * time.Second) }

		delta := p.cycle()
		require.Error(t, delta.Err)
		assert.Equal(t, base, p.Watermark())
	})

	t.Run("both succeed", func(t *testing.T) {
		p := New(&fakeFeed{}, model.RoleTecnico, time.Second)
		p.watermark = base
		p.now = func() time.Time { return base.Add(30 * time.Second) }

		delta := p.cycle()
		require.NoError(t, delta.Err)
		assert.Equal(t, base.Add(30*time.Second), p.Watermark())
	})
}

func TestFailedWindowIsReplayedExactlyOnce(t *testing.T) {
	// Incident 42 transitions at T+1; the first cycle fails, the second
	// succeeds. The delta must contain incident 42 exactly once overall,
	// and the watermark must end at or past the successful cycle's start.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	feed := &fakeFeed{
		assigned: []model.Incident{
			{ID: 42, Status: model.StatusEnProceso, UpdatedAt: base.Add(time.Second)},
		},
		pendingErr: errors.New("transient"),
	}

	p := New(feed, model.RoleTecnico, time.Second)
	p.watermark = base

	p.now = func() time.Time { return base.Add(30 * time.Second) }
	first := p.cycle()
	require.Error(t, first.Err)
	assert.Empty(t, first.Assigned)

	feed.pendingErr = nil
	p.now = func() time.Time { return base.Add(60 * time.Second) }
	second := p.cycle()
	require.NoError(t, second.Err)
	require.Len(t, second.Assigned, 1)
	assert.Equal(t, 42, second.Assigned[0].ID)

	assert.False(t, p.Watermark().Before(base.Add(60*time.Second)))

	// A third clean cycle sees nothing new.
	p.now = func() time.Time { return base.Add(90 * time.Second) }
	third := p.cycle()
	require.NoError(t, third.Err)
	assert.Empty(t, third.Assigned)
}

func TestWatermarkIsMonotonic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := New(&fakeFeed{}, model.RoleTecnico, time.Second)
	p.watermark = base.Add(time.Hour)
	p.now = func() time.Time { return base }

	delta := p.cycle()
	require.NoError(t, delta.Err)
	assert.Equal(t, base.Add(time.Hour), p.Watermark(), "watermark never rolls back")
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(&fakeFeed{}, model.RoleTecnico, time.Second)

	// Stop before Start, then twice after.
	p.Stop()
	cmd := p.Start()
	require.NotNil(t, cmd)
	p.Stop()
	p.Stop()
}
