package api

import (
	"context"
	"fmt"

	"github.com/hannysoft/mesa-client/internal/model"
)

// MyAlertsResult is the envelope returned by the alerts endpoint.
type MyAlertsResult struct {
	Alerts      []model.Alert `json:"alerts"`
	UnreadCount int           `json:"unread_count"`
}

// MyAlerts fetches the supervisory alerts addressed to the signed-in agent
// along with the server-side unread count.
func (c *Client) MyAlerts(ctx context.Context) (*MyAlertsResult, error) {
	var result MyAlertsResult
	if err := c.Get(ctx, "/api/alerts/mine", &result); err != nil {
		return nil, fmt.Errorf("fetching my alerts: %w", err)
	}
	return &result, nil
}

// MarkAlertRead acknowledges an alert on the server. The alert transitions
// to acknowledged and will not be re-delivered.
func (c *Client) MarkAlertRead(ctx context.Context, alertID int) error {
	path := fmt.Sprintf("/api/alerts/%d/read", alertID)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("acknowledging alert %d: %w", alertID, err)
	}
	return nil
}

// DismissAlert dismisses an alert without acknowledging it.
func (c *Client) DismissAlert(ctx context.Context, alertID int) error {
	path := fmt.Sprintf("/api/alerts/%d/dismiss", alertID)
	if err := c.Post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("dismissing alert %d: %w", alertID, err)
	}
	return nil
}
