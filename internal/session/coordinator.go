// Package session wires the per-sign-in worth of shared state: one push
// channel, one tracker, one API client. Screens receive references from the
// coordinator and never construct or tear down the connection themselves,
// so navigating away from a tracking screen cannot drop an in-flight job.
package session

import (
	"context"
	"time"

	"github.com/fablecraft/appcore/internal/client"
	"github.com/fablecraft/appcore/internal/config"
	"github.com/fablecraft/appcore/internal/generation"
	"github.com/fablecraft/appcore/internal/progress"
	"github.com/fablecraft/appcore/internal/story"
)

// Coordinator owns the channel and tracker for one authenticated session.
// Its lifetime matches the sign-in: re-created on logout/login.
type Coordinator struct {
	creds   client.CredentialSource
	api     *client.API
	channel *progress.Channel
	tracker *progress.Tracker
}

// New builds a coordinator from config and a credential source.
func New(cfg *config.Config, creds client.CredentialSource) *Coordinator {
	channel := progress.NewChannel(
		cfg.Push.URL,
		time.Duration(cfg.Push.RetryBackoff)*time.Second,
		time.Duration(cfg.Push.PingInterval)*time.Second,
	)
	tracker := progress.NewTracker(channel)
	channel.SetEventHandler(tracker.HandleEvent)

	return &Coordinator{
		creds:   creds,
		api:     client.NewAPI(&cfg.API, creds),
		channel: channel,
		tracker: tracker,
	}
}

// Connect opens the push stream. Safe to call again on an open session.
func (c *Coordinator) Connect(ctx context.Context) error {
	return c.channel.Connect(ctx, c.creds.Token())
}

// Disconnect ends the session: tears down the stream and drops all
// tracking state. Called once, by the top-level owner, on sign-out.
func (c *Coordinator) Disconnect() {
	c.tracker.Clear()
	c.channel.Disconnect()
}

// API returns the HTTP client for this session.
func (c *Coordinator) API() *client.API {
	return c.api
}

// Tracker returns the shared job tracker.
func (c *Coordinator) Tracker() *progress.Tracker {
	return c.tracker
}

// Channel returns the push channel, for diagnostics observers.
func (c *Coordinator) Channel() *progress.Channel {
	return c.channel
}

// NewImageFlow creates a fresh generation machine for one submission slot.
func (c *Coordinator) NewImageFlow() *generation.Machine {
	return generation.NewMachine(c.tracker)
}

// NewStoryFlow creates a fresh draft wizard.
func (c *Coordinator) NewStoryFlow() *story.Lifecycle {
	return story.New(c.api, c.api, c.tracker)
}
