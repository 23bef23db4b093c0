package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hannysoft/mesa-client/internal/model"
)

// MyIncidents fetches the incidents assigned to the signed-in agent.
func (c *Client) MyIncidents(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := c.Get(ctx, "/api/incidents/mine", &incidents); err != nil {
		return nil, fmt.Errorf("fetching my incidents: %w", err)
	}
	return incidents, nil
}

// IncidentsByStatus fetches all incidents with the given status.
func (c *Client) IncidentsByStatus(
	ctx context.Context,
	status string,
) ([]model.Incident, error) {
	var incidents []model.Incident
	path := "/api/incidents?status=" + url.QueryEscape(status)
	if err := c.Get(ctx, path, &incidents); err != nil {
		return nil, fmt.Errorf("fetching incidents with status %s: %w", status, err)
	}
	return incidents, nil
}

// InSupervision fetches the incidents currently awaiting supervisor review.
func (c *Client) InSupervision(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := c.Get(ctx, "/api/incidents/supervision", &incidents); err != nil {
		return nil, fmt.Errorf("fetching incidents in supervision: %w", err)
	}
	return incidents, nil
}

// ReturnedIncidents fetches the incidents returned to the signed-in agent
// for rework.
func (c *Client) ReturnedIncidents(ctx context.Context) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := c.Get(ctx, "/api/incidents/returned", &incidents); err != nil {
		return nil, fmt.Errorf("fetching returned incidents: %w", err)
	}
	return incidents, nil
}
