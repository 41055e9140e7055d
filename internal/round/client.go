package round

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for the tournament rounds API.
type Client struct {
	client       *resty.Client
	tournamentID int
}

// ClientConfig configures the rounds API client.
type ClientConfig struct {
	BaseURL      string
	TournamentID int
	Timeout      time.Duration
}

// NewClient creates a new rounds API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "tourneyd")

	return &Client{client: client, tournamentID: cfg.TournamentID}
}

// CurrentRoundDetails fetches the current round's number and close time.
func (c *Client) CurrentRoundDetails(ctx context.Context) (Info, error) {
	var info Info
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("tournament", fmt.Sprintf("%d", c.tournamentID)).
		SetResult(&info).
		Get("/v1/rounds/current")
	if err != nil {
		return Info{}, fmt.Errorf("fetch round details: %w", err)
	}
	if resp.IsError() {
		return Info{}, fmt.Errorf("fetch round details: unexpected status %s", resp.Status())
	}
	if info.Number <= 0 {
		return Info{}, fmt.Errorf("fetch round details: invalid round number %d", info.Number)
	}
	return info, nil
}

// CurrentRoundNumber fetches just the current round number.
func (c *Client) CurrentRoundNumber(ctx context.Context) (Number, error) {
	info, err := c.CurrentRoundDetails(ctx)
	if err != nil {
		return 0, err
	}
	return info.Number, nil
}
