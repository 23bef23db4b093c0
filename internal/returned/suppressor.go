package returned

import (
	"context"
	"fmt"

	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/store"
)

// feature is the viewed-flag key for the returned-incidents badge.
const feature = "returned_incidents"

// CountFeed is the slice of the backend API the suppressor consumes.
type CountFeed interface {
	ReturnedIncidents(ctx context.Context) ([]model.Incident, error)
}

// Suppressor collapses the returned-incidents badge to zero once the agent
// has visited the relevant screen. The flag lives in the local store and
// survives restarts; it is presentation suppression only and says nothing
// about whether the items were resolved. The true count is still fetched
// from the server every time so staleness is bounded by the caller's poll
// interval.
type Suppressor struct {
	feed   CountFeed
	store  store.Store
	userID int
}

// NewSuppressor creates a suppressor for the given user.
func NewSuppressor(feed CountFeed, st store.Store, userID int) *Suppressor {
	return &Suppressor{feed: feed, store: st, userID: userID}
}

// Count returns the badge value: the server-side count of returned
// incidents, or zero when the viewed flag is set.
func (s *Suppressor) Count(ctx context.Context) (int, error) {
	incidents, err := s.feed.ReturnedIncidents(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching returned incidents: %w", err)
	}

	viewed, err := s.store.IsViewed(ctx, s.userID, feature)
	if err != nil {
		return 0, fmt.Errorf("reading viewed flag: %w", err)
	}
	if viewed {
		return 0, nil
	}
	return len(incidents), nil
}

// MarkAsViewed persists the suppression flag. It never mutates server
// state.
func (s *Suppressor) MarkAsViewed(ctx context.Context) error {
	return s.store.SetViewed(ctx, s.userID, feature)
}
