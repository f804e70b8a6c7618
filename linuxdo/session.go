// Package linuxdo manages the LinuxDo identity-provider browser
// session and runs the Connect OAuth authorize flow that bootstraps
// panel sessions.
package linuxdo

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/panel-tools/checkin/browser"
	"github.com/panel-tools/checkin/internal/config"
	cerrors "github.com/panel-tools/checkin/internal/errors"
	"github.com/panel-tools/checkin/notify"
)

const (
	// BaseURL is the identity provider.
	BaseURL = "https://linux.do"

	// ConnectAuthorizeURL is the LinuxDo Connect OAuth endpoint.
	ConnectAuthorizeURL = "https://connect.linux.do/oauth2/authorize"

	// DefaultStateFile holds the persisted browser storage state.
	DefaultStateFile = "linuxdo_state.json"

	loginURL = BaseURL + "/login"

	currentUserSelector = "#current-user"
	usernameSelector    = "#login-account-name"
	passwordSelector    = "#login-account-password"
	loginButtonSelector = "#login-button"

	probeTimeout = 5 * time.Second
	loginTimeout = 20 * time.Second
)

// Manager restores or creates the provider session and keeps its
// browser context alive for OAuth flows during the run.
type Manager struct {
	browser   *browser.Browser
	statePath string
	alerts    notify.Alerter
	log       zerolog.Logger

	ctx    *browser.Context
	page   *browser.Page
	active bool
}

// NewManager wires a manager against a launched browser.
func NewManager(b *browser.Browser, statePath string, alerts notify.Alerter, logger zerolog.Logger) *Manager {
	if statePath == "" {
		statePath = DefaultStateFile
	}
	return &Manager{
		browser:   b,
		statePath: statePath,
		alerts:    alerts,
		log:       logger,
	}
}

// Ensure makes the provider session usable: first by restoring the
// persisted storage state, then by a full login with credentials. A
// nil or incomplete credential set limits Ensure to restore-only.
func (m *Manager) Ensure(creds *config.Credentials) error {
	if err := m.restore(); err == nil {
		m.log.Info().Msg("[linuxDo] Session restored from saved state")
		m.active = true
		return nil
	} else if !cerrors.Is(err, cerrors.ErrStateNotFound) {
		m.log.Info().Err(err).Msg("[linuxDo] Saved state unusable, will login again")
	}

	if !creds.Complete() {
		return errors.Wrap(cerrors.ErrNoSession, "[Manager.Ensure] no credentials configured")
	}

	if err := m.login(creds); err != nil {
		m.log.Error().Err(err).Msg("[linuxDo] Login failed")
		m.alerts.Notify("!! LinuxDo Login Error !!", "[linuxDo] Login failed: "+err.Error())
		return err
	}

	m.active = true
	m.log.Info().Msg("[linuxDo] Login success")
	m.alerts.Notify("!! LinuxDo Login Success !!", "[linuxDo] Login success")
	return nil
}

// Active reports whether a provider session is available.
func (m *Manager) Active() bool {
	return m.active
}

// restore rebuilds a context from the storage-state file and probes
// whether the session is still logged in.
func (m *Manager) restore() error {
	state, err := LoadState(m.statePath)
	if err != nil {
		return err
	}
	m.log.Info().Msg("[linuxDo] Found saved state, attempting to restore session")

	ctx, page, err := m.newSessionPage()
	if err != nil {
		return err
	}

	if err := ctx.SetCookies(state.Cookies); err != nil {
		m.discard(ctx, page)
		return err
	}
	if err := page.Goto(BaseURL); err != nil {
		m.discard(ctx, page)
		return err
	}
	if items := state.Origins[BaseURL]; len(items) > 0 {
		if err := page.SetLocalStorage(items); err != nil {
			m.discard(ctx, page)
			return err
		}
	}

	if err := page.WaitVisible(currentUserSelector, probeTimeout); err != nil {
		m.discard(ctx, page)
		return errors.Wrap(cerrors.ErrSessionExpired, "[Manager.restore] no logged-in marker")
	}

	m.ctx, m.page = ctx, page
	return nil
}

// login performs the interactive provider login in a fresh context.
func (m *Manager) login(creds *config.Credentials) error {
	ctx, page, err := m.newSessionPage()
	if err != nil {
		return err
	}

	m.log.Info().Str("url", loginURL).Msg("[linuxDo] Accessing login page")
	if err := page.Goto(loginURL); err != nil {
		m.discard(ctx, page)
		return err
	}

	// A redirect away from /login means the browser profile is already
	// authenticated.
	if page.URL() != loginURL {
		m.log.Info().Msg("[linuxDo] Already logged in")
		m.ctx, m.page = ctx, page
		return m.SaveState()
	}

	m.log.Info().Msg("[linuxDo] Attempting login")
	if err := page.Fill(usernameSelector, creds.Username); err != nil {
		m.discard(ctx, page)
		return err
	}
	if err := page.Fill(passwordSelector, creds.Password); err != nil {
		m.discard(ctx, page)
		return err
	}
	if err := page.Click(loginButtonSelector, probeTimeout); err != nil {
		m.discard(ctx, page)
		return err
	}
	if err := page.WaitVisible(currentUserSelector, loginTimeout); err != nil {
		m.discard(ctx, page)
		return errors.Wrap(cerrors.ErrNotLoggedIn, "[Manager.login] no logged-in marker after submit")
	}

	// Let the session cookies settle before persisting.
	time.Sleep(2 * time.Second)

	m.ctx, m.page = ctx, page
	if err := m.SaveState(); err != nil {
		return err
	}
	m.log.Info().Str("path", m.statePath).Msg("[linuxDo] State saved")
	return nil
}

// SaveState captures the context cookies and the provider origin's
// localStorage into the state file.
func (m *Manager) SaveState() error {
	if m.ctx == nil {
		return nil
	}

	cookies, err := m.ctx.Cookies()
	if err != nil {
		return errors.Wrap(err, "[Manager.SaveState] Cookies")
	}

	state := &StorageState{
		Cookies: cookieParams(cookies),
		Origins: map[string]map[string]string{},
	}
	if m.page != nil {
		if items, err := m.page.LocalStorage(); err == nil && len(items) > 0 {
			state.Origins[BaseURL] = items
		}
	}

	return state.Save(m.statePath)
}

// Close releases the provider context.
func (m *Manager) Close() {
	if m.ctx != nil {
		_ = m.ctx.Close()
		m.ctx, m.page = nil, nil
	}
	m.active = false
}

func (m *Manager) newSessionPage() (*browser.Context, *browser.Page, error) {
	ctx, err := m.browser.NewContext()
	if err != nil {
		return nil, nil, err
	}
	page, err := ctx.NewPage("", nil)
	if err != nil {
		_ = ctx.Close()
		return nil, nil, err
	}
	return ctx, page, nil
}

func (m *Manager) discard(ctx *browser.Context, page *browser.Page) {
	_ = page.Close()
	_ = ctx.Close()
}
