package panel

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/panel-tools/checkin/browser"
)

var _ SessionFactory = (*BrowserSessions)(nil)

// BrowserSessions opens panel sessions as scoped incognito contexts
// pre-loaded with the cached cookies.
type BrowserSessions struct {
	browser *browser.Browser
}

func NewBrowserSessions(b *browser.Browser) *BrowserSessions {
	return &BrowserSessions{browser: b}
}

// Open creates a context, installs the cookies for the domain's host
// and lands on the panel so in-page fetches run same-origin.
func (s *BrowserSessions) Open(domain string, cookies map[string]string) (Session, error) {
	ctx, err := s.browser.NewContext()
	if err != nil {
		return nil, errors.Wrap(err, "[BrowserSessions.Open] NewContext")
	}

	page, err := ctx.NewPage(hostOf(domain), cookies)
	if err != nil {
		_ = ctx.Close()
		return nil, errors.Wrap(err, "[BrowserSessions.Open] NewPage")
	}
	if err := page.Goto(domain); err != nil {
		_ = page.Close()
		_ = ctx.Close()
		return nil, err
	}

	return &browserSession{ctx: ctx, page: page}, nil
}

type browserSession struct {
	ctx  *browser.Context
	page *browser.Page
}

func (s *browserSession) FetchJSON(method, url string, headers map[string]string) (*browser.FetchResult, error) {
	return s.page.FetchJSON(method, url, headers)
}

func (s *browserSession) Close() error {
	_ = s.page.Close()
	return s.ctx.Close()
}

func hostOf(domain string) string {
	host := strings.TrimPrefix(domain, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}
