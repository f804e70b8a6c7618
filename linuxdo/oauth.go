package linuxdo

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/panel-tools/checkin/browser"
	"github.com/panel-tools/checkin/cache"
	"github.com/panel-tools/checkin/internal/config"
	cerrors "github.com/panel-tools/checkin/internal/errors"
)

const (
	approveSelector = `a[href*="/oauth2/approve/"]`
	approveTimeout  = 5 * time.Second
	redirectTimeout = 15 * time.Second
)

// AuthorizeURL builds the LinuxDo Connect authorize URL for a panel's
// client id and state token.
func AuthorizeURL(clientID, state string) string {
	conf := oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{AuthURL: ConnectAuthorizeURL},
	}
	return conf.AuthCodeURL(state)
}

// flowPage is the page surface the authorize flow drives.
type flowPage interface {
	Goto(url string) error
	FetchJSON(method, url string, headers map[string]string) (*browser.FetchResult, error)
	URL() string
	Click(selector string, timeout time.Duration) error
	LocalStorageItem(key string) (string, error)
	DomainCookies(url string) (map[string]string, error)
	Close() error
}

// Authorize runs the authorize, approve, redirect sequence for one
// account inside the provider context and returns the resulting panel
// session. Failures never yield a partial session.
func (m *Manager) Authorize(account config.Account) (cache.Entry, error) {
	if !m.active || m.ctx == nil {
		return cache.Entry{}, errors.Wrap(cerrors.ErrNoSession, "[Manager.Authorize]")
	}

	page, err := m.ctx.NewPage("", nil)
	if err != nil {
		return cache.Entry{}, errors.Wrap(err, "[Manager.Authorize] NewPage")
	}
	defer page.Close()

	return m.authorize(page, account)
}

func (m *Manager) authorize(page flowPage, account config.Account) (cache.Entry, error) {
	log := m.log.With().Str("account", account.DisplayName()).Logger()
	domain := strings.TrimRight(account.Domain, "/")

	if err := page.Goto(account.Domain); err != nil {
		return cache.Entry{}, err
	}

	log.Info().Msg("Fetching OAuth state")
	res, err := page.FetchJSON(http.MethodGet, domain+"/api/oauth/state", nil)
	if err != nil {
		return cache.Entry{}, err
	}

	var stateResp struct {
		Data string `json:"data"`
	}
	// Malformed state responses fall through as an empty state.
	_ = json.Unmarshal([]byte(res.Body), &stateResp)
	if stateResp.Data == "" {
		return cache.Entry{}, errors.Wrapf(cerrors.ErrEmptyOAuthState, "[Manager.authorize] %s", domain)
	}

	log.Info().Msg("Opening LinuxDo Connect authorize")
	if err := page.Goto(AuthorizeURL(account.ClientID, stateResp.Data)); err != nil {
		return cache.Entry{}, err
	}

	if strings.Contains(page.URL(), "connect.linux.do") {
		log.Info().Msg("Clicking authorize")
		if err := page.Click(approveSelector, approveTimeout); err != nil {
			log.Warn().Err(err).Msg("No authorize button found")
		}
		waitForRedirect(page, domain, redirectTimeout)
	}

	if !strings.Contains(page.URL(), domain) {
		return cache.Entry{}, errors.Wrapf(cerrors.ErrNoAuthRedirect, "[Manager.authorize] ended at %s", page.URL())
	}

	entry, err := sessionFromPage(page, account.Domain)
	if err != nil {
		return cache.Entry{}, err
	}

	log.Info().Str("api_user", entry.APIUser).Msg("OAuth success")
	return entry, nil
}

// sessionFromPage extracts the panel user id and cookies after the
// redirect back to the panel.
func sessionFromPage(page flowPage, domain string) (cache.Entry, error) {
	userJSON, err := page.LocalStorageItem("user")
	if err != nil {
		return cache.Entry{}, err
	}

	var user struct {
		ID json.Number `json:"id"`
	}
	if userJSON == "" || json.Unmarshal([]byte(userJSON), &user) != nil || user.ID.String() == "" {
		return cache.Entry{}, errors.Wrap(cerrors.ErrEmptySession, "[sessionFromPage] no user in localStorage")
	}

	cookies, err := page.DomainCookies(domain)
	if err != nil {
		return cache.Entry{}, err
	}

	entry := cache.Entry{APIUser: user.ID.String(), Cookies: cookies}
	if err := entry.Validate(); err != nil {
		return cache.Entry{}, err
	}
	return entry, nil
}

// waitForRedirect polls the page URL until it lands on the panel
// domain or the timeout passes. Grounded on callback polling rather
// than load events because the approve click navigates cross-origin.
func waitForRedirect(page flowPage, domain string, timeout time.Duration) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			if strings.Contains(page.URL(), domain) {
				return
			}
		}
	}
}
