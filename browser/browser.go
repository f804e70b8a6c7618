// Package browser wraps go-rod with the launch flags, stealth setup
// and cookie plumbing the check-in flows need. Higher layers consume
// narrow interfaces satisfied by Page rather than rod types.
package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"
)

// UserAgent is pinned so cached cookies stay tied to one fingerprint.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// DefaultTimeout bounds individual page operations.
const DefaultTimeout = 30 * time.Second

// Options configures the browser launch.
type Options struct {
	Headless bool
	Bin      string        // browser binary override, empty for managed download
	Timeout  time.Duration // per-operation timeout, DefaultTimeout when zero
}

// Browser owns the launched Chromium process.
type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

// New launches Chromium and connects to it.
func New(opts Options) (*Browser, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "[browser.New] Launch")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, errors.Wrap(err, "[browser.New] Connect")
	}

	return &Browser{rod: b, launcher: l, timeout: opts.Timeout}, nil
}

// NewContext opens an isolated incognito context. Each account runs in
// its own context so sessions never bleed into each other.
func (b *Browser) NewContext() (*Context, error) {
	incognito, err := b.rod.Incognito()
	if err != nil {
		return nil, errors.Wrap(err, "[Browser.NewContext] Incognito")
	}
	return &Context{browser: incognito, timeout: b.timeout}, nil
}

// Close shuts the browser down and releases the launcher.
func (b *Browser) Close() {
	_ = b.rod.Close()
	b.launcher.Cleanup()
}

// Context is one isolated browser context.
type Context struct {
	browser *rod.Browser
	timeout time.Duration
}

// SetCookies installs cookies into the context.
func (c *Context) SetCookies(cookies []*proto.NetworkCookieParam) error {
	if len(cookies) == 0 {
		return nil
	}
	if err := c.browser.SetCookies(cookies); err != nil {
		return errors.Wrap(err, "[Context.SetCookies] SetCookies")
	}
	return nil
}

// Cookies returns every cookie held by the context.
func (c *Context) Cookies() ([]*proto.NetworkCookie, error) {
	cookies, err := c.browser.GetCookies()
	if err != nil {
		return nil, errors.Wrap(err, "[Context.Cookies] GetCookies")
	}
	return cookies, nil
}

// Close disposes the incognito context and every page in it.
func (c *Context) Close() error {
	return proto.TargetDisposeBrowserContext{
		BrowserContextID: c.browser.BrowserContextID,
	}.Call(c.browser)
}

// DomainCookieParams maps name/value cookies onto a host for
// installation into a context.
func DomainCookieParams(host string, cookies map[string]string) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for name, value := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   name,
			Value:  value,
			Domain: host,
			Path:   "/",
		})
	}
	return params
}
