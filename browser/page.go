package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/pkg/errors"
)

// fetchJS bridges API calls through the page so cookies and origin
// headers ride along with every request.
const fetchJS = `async (method, url, headers) => {
	const resp = await fetch(url, { method, headers });
	const body = await resp.text();
	return { status: resp.status, body };
}`

// FetchResult is the status and raw body of a bridged fetch call.
type FetchResult struct {
	Status int
	Body   string
}

// OK reports whether the status is in the 2xx range.
func (r *FetchResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Page is a stealth page pinned to the fixed user agent and viewport.
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

// NewPage opens a stealth page in the context, optionally pre-loading
// cookies for the given host.
func (c *Context) NewPage(host string, cookies map[string]string) (*Page, error) {
	page, err := stealth.Page(c.browser)
	if err != nil {
		return nil, errors.Wrap(err, "[Context.NewPage] stealth.Page")
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: UserAgent}); err != nil {
		return nil, errors.Wrap(err, "[Context.NewPage] SetUserAgent")
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             800,
		Height:            600,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, errors.Wrap(err, "[Context.NewPage] SetViewport")
	}

	if len(cookies) > 0 {
		if err := page.SetCookies(DomainCookieParams(host, cookies)); err != nil {
			return nil, errors.Wrap(err, "[Context.NewPage] SetCookies")
		}
	}

	return &Page{page: page, timeout: c.timeout}, nil
}

// Goto navigates and waits for the load event, then lets the page
// settle. A settle timeout is tolerated the way a networkidle wait is.
func (p *Page) Goto(url string) error {
	nav := p.page.Timeout(p.timeout)
	if err := nav.Navigate(url); err != nil {
		return errors.Wrapf(err, "[Page.Goto] Navigate %s", url)
	}
	if err := nav.WaitLoad(); err != nil {
		return errors.Wrapf(err, "[Page.Goto] WaitLoad %s", url)
	}
	_ = p.page.Timeout(5 * time.Second).WaitIdle(5 * time.Second)
	return nil
}

// FetchJSON runs an in-page fetch and returns status plus body.
func (p *Page) FetchJSON(method, url string, headers map[string]string) (*FetchResult, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	res, err := p.page.Timeout(p.timeout).Eval(fetchJS, method, url, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "[Page.FetchJSON] %s %s", method, url)
	}
	return &FetchResult{
		Status: res.Value.Get("status").Int(),
		Body:   res.Value.Get("body").Str(),
	}, nil
}

// LocalStorageItem reads one localStorage key, empty when absent.
func (p *Page) LocalStorageItem(key string) (string, error) {
	res, err := p.page.Timeout(p.timeout).Eval(`(key) => localStorage.getItem(key)`, key)
	if err != nil {
		return "", errors.Wrapf(err, "[Page.LocalStorageItem] %s", key)
	}
	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

// SetLocalStorage writes localStorage keys on the current origin.
func (p *Page) SetLocalStorage(items map[string]string) error {
	_, err := p.page.Timeout(p.timeout).Eval(`(items) => {
		for (const [key, value] of Object.entries(items)) {
			localStorage.setItem(key, value);
		}
	}`, items)
	if err != nil {
		return errors.Wrap(err, "[Page.SetLocalStorage] Eval")
	}
	return nil
}

// LocalStorage dumps the current origin's localStorage.
func (p *Page) LocalStorage() (map[string]string, error) {
	res, err := p.page.Timeout(p.timeout).Eval(`() => Object.assign({}, localStorage)`)
	if err != nil {
		return nil, errors.Wrap(err, "[Page.LocalStorage] Eval")
	}
	items := map[string]string{}
	for key, value := range res.Value.Map() {
		items[key] = value.Str()
	}
	return items, nil
}

// DomainCookies returns the page cookies for one URL as a flat map.
func (p *Page) DomainCookies(url string) (map[string]string, error) {
	cookies, err := p.page.Cookies([]string{url})
	if err != nil {
		return nil, errors.Wrapf(err, "[Page.DomainCookies] %s", url)
	}
	result := make(map[string]string, len(cookies))
	for _, cookie := range cookies {
		result[cookie.Name] = cookie.Value
	}
	return result, nil
}

// URL returns the page's current URL, empty when unknown.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// WaitVisible waits for a selector within the given timeout.
func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return errors.Wrapf(err, "[Page.WaitVisible] %s", selector)
	}
	if err := el.WaitVisible(); err != nil {
		return errors.Wrapf(err, "[Page.WaitVisible] %s", selector)
	}
	return nil
}

// Fill replaces the content of an input element.
func (p *Page) Fill(selector, text string) error {
	el, err := p.page.Timeout(p.timeout).Element(selector)
	if err != nil {
		return errors.Wrapf(err, "[Page.Fill] %s", selector)
	}
	if err := el.SelectAllText(); err != nil {
		return errors.Wrapf(err, "[Page.Fill] SelectAllText %s", selector)
	}
	if err := el.Input(text); err != nil {
		return errors.Wrapf(err, "[Page.Fill] Input %s", selector)
	}
	return nil
}

// Click clicks an element, waiting up to timeout for it to appear.
func (p *Page) Click(selector string, timeout time.Duration) error {
	el, err := p.page.Timeout(timeout).Element(selector)
	if err != nil {
		return errors.Wrapf(err, "[Page.Click] %s", selector)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errors.Wrapf(err, "[Page.Click] Click %s", selector)
	}
	return nil
}

// Close closes the page.
func (p *Page) Close() error {
	return p.page.Close()
}
