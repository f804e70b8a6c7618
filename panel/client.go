// Package panel drives the check-in sequence against one API gateway
// panel through a browser-backed session.
package panel

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/panel-tools/checkin/browser"
	cerrors "github.com/panel-tools/checkin/internal/errors"
	"github.com/panel-tools/checkin/internal/utils"
)

const (
	// QuotaDivisor converts raw panel quota units to dollars.
	QuotaDivisor = 500000

	selfEndpoint  = "/api/user/self"
	apiUserHeader = "new-api-user"

	bodyPreviewLen = 100
)

// Fetcher issues HTTP calls through a browser session so panel
// cookies and origin checks are satisfied.
type Fetcher interface {
	FetchJSON(method, url string, headers map[string]string) (*browser.FetchResult, error)
}

// Balance is a panel quota reading, in dollars.
type Balance struct {
	Quota float64
	Used  float64
}

// Client calls one panel's API as one user.
type Client struct {
	session  Fetcher
	domain   string
	apiUser  string
	endpoint string
	log      zerolog.Logger
}

// NewClient builds a panel client. endpoint is the check-in path.
func NewClient(session Fetcher, domain, apiUser, endpoint string, logger zerolog.Logger) *Client {
	return &Client{
		session:  session,
		domain:   strings.TrimRight(domain, "/"),
		apiUser:  apiUser,
		endpoint: endpoint,
		log:      logger,
	}
}

// Quota fetches the panel's self-info endpoint and returns the
// remaining and used balance. Malformed responses surface as
// classified HTTP errors, never as panics or raw unmarshal errors.
func (c *Client) Quota() (Balance, error) {
	res, err := c.session.FetchJSON(http.MethodGet, c.domain+selfEndpoint, c.headers())
	if err != nil {
		return Balance{}, err
	}
	if !res.OK() {
		return Balance{}, cerrors.NewHTTPError(selfEndpoint, res.Status, "%s", utils.Truncate(res.Body, bodyPreviewLen))
	}

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Quota     float64 `json:"quota"`
			UsedQuota float64 `json:"used_quota"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Body), &payload); err != nil {
		return Balance{}, cerrors.NewHTTPError(selfEndpoint, res.Status, "invalid JSON response: %v", err)
	}
	if !payload.Success {
		return Balance{}, cerrors.NewHTTPError(selfEndpoint, res.Status, "failed to get user info: %s", utils.Truncate(res.Body, bodyPreviewLen))
	}

	balance := Balance{
		Quota: roundCents(payload.Data.Quota / QuotaDivisor),
		Used:  roundCents(payload.Data.UsedQuota / QuotaDivisor),
	}
	c.log.Info().Float64("balance", balance.Quota).Float64("used", balance.Used).Msg("Balance")
	return balance, nil
}

// CheckIn triggers the panel's check-in action and returns the raw
// response body.
func (c *Client) CheckIn() (string, error) {
	res, err := c.session.FetchJSON(http.MethodPost, c.domain+c.endpoint, c.headers())
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", cerrors.NewHTTPError(c.endpoint, res.Status, "%s", utils.Truncate(res.Body, bodyPreviewLen))
	}

	c.log.Info().Str("result", utils.Truncate(res.Body, bodyPreviewLen)).Msg("Checkin result")
	return res.Body, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{apiUserHeader: c.apiUser}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
