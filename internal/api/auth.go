package api

import (
	"context"
	"fmt"

	"github.com/hannysoft/mesa-client/internal/model"
)

// LoginResult carries the session token and the signed-in actor.
type LoginResult struct {
	Token string      `json:"token"`
	Actor model.Actor `json:"actor"`
}

// Login authenticates with username and password. On success the returned
// token is installed on the client for subsequent requests.
func (c *Client) Login(
	ctx context.Context,
	username string,
	password string,
) (*LoginResult, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}
	var result LoginResult
	if err := c.Post(ctx, "/api/auth/login", payload, &result); err != nil {
		return nil, fmt.Errorf("logging in as %s: %w", username, err)
	}

	c.SetToken(result.Token)
	return &result, nil
}

// Me fetches the actor for the installed session token. Used to validate a
// token restored from the keyring before starting any pollers.
func (c *Client) Me(ctx context.Context) (*model.Actor, error) {
	var actor model.Actor
	if err := c.Get(ctx, "/api/auth/me", &actor); err != nil {
		return nil, fmt.Errorf("fetching current actor: %w", err)
	}
	return &actor, nil
}
