package panel_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/panel-tools/checkin/browser"
	"github.com/panel-tools/checkin/cache"
	fakecacherepo "github.com/panel-tools/checkin/cache/repofake"
	"github.com/panel-tools/checkin/internal/config"
	cerrors "github.com/panel-tools/checkin/internal/errors"
	"github.com/panel-tools/checkin/notify"
	"github.com/panel-tools/checkin/notify/notifyfake"
	"github.com/panel-tools/checkin/panel"
)

// fakeSession plays back a scripted quota / check-in / quota sequence.
type fakeSession struct {
	quotas   []*browser.FetchResult
	checkin  *browser.FetchResult
	quotaIdx int
	closed   bool
}

func (s *fakeSession) FetchJSON(method, url string, headers map[string]string) (*browser.FetchResult, error) {
	if strings.Contains(url, "/api/user/self") {
		if s.quotaIdx >= len(s.quotas) {
			return nil, fmt.Errorf("unexpected quota call %d", s.quotaIdx)
		}
		res := s.quotas[s.quotaIdx]
		s.quotaIdx++
		return res, nil
	}
	if s.checkin == nil {
		return &browser.FetchResult{Status: 200, Body: `{"success":true}`}, nil
	}
	return s.checkin, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	sessions []*fakeSession
	idx      int
	opened   []string
}

func (f *fakeFactory) Open(domain string, cookies map[string]string) (panel.Session, error) {
	f.opened = append(f.opened, domain)
	if f.idx >= len(f.sessions) {
		return nil, fmt.Errorf("unexpected Open for %s", domain)
	}
	session := f.sessions[f.idx]
	f.idx++
	return session, nil
}

type fakeProvider struct {
	entry cache.Entry
	err   error
	calls int
}

func (p *fakeProvider) Authorize(account config.Account) (cache.Entry, error) {
	p.calls++
	return p.entry, p.err
}

// testRunner bundles the runner with its observable collaborators.
type testRunner struct {
	runner   *panel.Runner
	repo     *fakecacherepo.FakeCacheRepo
	factory  *fakeFactory
	provider *fakeProvider
	sink     *notifyfake.FakeNotifier
}

func newTestRunner(t *testing.T, factory *fakeFactory, provider panel.SessionProvider) *testRunner {
	t.Helper()

	repo := fakecacherepo.NewFakeCacheRepo()
	sink := notifyfake.New()
	dispatcher := notify.NewDispatcherWithSinks(zerolog.Nop(), sink)

	fp, _ := provider.(*fakeProvider)

	return &testRunner{
		runner:   panel.NewRunner(factory, repo, provider, dispatcher, zerolog.Nop(), "test1234"),
		repo:     repo,
		factory:  factory,
		provider: fp,
		sink:     sink,
	}
}

func okQuota(dollars float64) *browser.FetchResult {
	return &browser.FetchResult{Status: 200, Body: quotaBody(dollars, 0)}
}

func cachedEntry() cache.Entry {
	return cache.Entry{APIUser: testAPIUser, Cookies: cache.Cookies{"session": "cached"}}
}

func testAccount() config.Account {
	return config.Account{Name: "demo", Domain: testDomain, ClientID: "abc123"}
}

func successMessages(sink *notifyfake.FakeNotifier) []notifyfake.Message {
	var out []notifyfake.Message
	for _, msg := range sink.Messages {
		if msg.Title == "Checkin Success" {
			out = append(out, msg)
		}
	}
	return out
}

func TestProcessNoBalanceIncreaseEmitsNoSuccess(t *testing.T) {
	session := &fakeSession{quotas: []*browser.FetchResult{okQuota(10.0), okQuota(10.0)}}
	tr := newTestRunner(t, &fakeFactory{sessions: []*fakeSession{session}}, nil)
	tr.repo.Seed(testDomain, cachedEntry())

	tr.runner.Process(testAccount())

	require.Empty(t, successMessages(tr.sink))
	require.True(t, session.closed)
}

func TestProcessBalanceIncreaseNotifiesSuccess(t *testing.T) {
	session := &fakeSession{quotas: []*browser.FetchResult{okQuota(10.0), okQuota(12.0)}}
	tr := newTestRunner(t, &fakeFactory{sessions: []*fakeSession{session}}, nil)
	tr.repo.Seed(testDomain, cachedEntry())

	tr.runner.Process(testAccount())

	msgs := successMessages(tr.sink)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Body, "$10.00 to $12.00")
	require.True(t, session.closed)
}

func TestProcessNoCacheNoProviderSkips(t *testing.T) {
	factory := &fakeFactory{}
	tr := newTestRunner(t, factory, nil)

	require.NotPanics(t, func() {
		tr.runner.Process(testAccount())
	})

	require.Empty(t, factory.opened)
	require.Empty(t, tr.repo.PutCalls)
	require.Len(t, tr.sink.Messages, 1)
	require.Equal(t, "Checkin Error", tr.sink.Messages[0].Title)
}

func TestProcessCachedFailureEscalatesToOAuth(t *testing.T) {
	failing := &fakeSession{quotas: []*browser.FetchResult{{Status: 401, Body: "unauthorized"}}}
	working := &fakeSession{quotas: []*browser.FetchResult{okQuota(10.0), okQuota(12.0)}}
	factory := &fakeFactory{sessions: []*fakeSession{failing, working}}

	fresh := cache.Entry{APIUser: "43", Cookies: cache.Cookies{"session": "fresh"}}
	provider := &fakeProvider{entry: fresh}

	tr := newTestRunner(t, factory, provider)
	tr.repo.Seed(testDomain, cache.Entry{APIUser: testAPIUser, Cookies: cache.Cookies{"session": "stale", "theme": "dark"}})

	tr.runner.Process(testAccount())

	require.Equal(t, 1, provider.calls)
	require.Equal(t, []string{testDomain}, tr.repo.PutCalls)

	got, ok := tr.repo.Get(testDomain)
	require.True(t, ok)
	require.Equal(t, "43", got.APIUser)
	require.Equal(t, cache.Cookies{"session": "fresh"}, got.Cookies)
	require.NotContains(t, got.Cookies, "theme")

	require.Len(t, successMessages(tr.sink), 1)
	require.True(t, failing.closed)
	require.True(t, working.closed)
}

func TestProcessOAuthFailureLeavesCacheUntouched(t *testing.T) {
	failing := &fakeSession{quotas: []*browser.FetchResult{{Status: 401, Body: "unauthorized"}}}
	factory := &fakeFactory{sessions: []*fakeSession{failing}}
	provider := &fakeProvider{err: cerrors.ErrEmptyOAuthState}

	tr := newTestRunner(t, factory, provider)
	previous := cachedEntry()
	tr.repo.Seed(testDomain, previous)

	tr.runner.Process(testAccount())

	require.Equal(t, 1, provider.calls)
	require.Empty(t, tr.repo.PutCalls)
	got, _ := tr.repo.Get(testDomain)
	require.Equal(t, previous, got)
}

func TestProcessEmptyOAuthSessionNeverCached(t *testing.T) {
	factory := &fakeFactory{}
	provider := &fakeProvider{entry: cache.Entry{}}

	tr := newTestRunner(t, factory, provider)

	tr.runner.Process(testAccount())

	require.Equal(t, 1, provider.calls)
	require.Empty(t, tr.repo.PutCalls)
	require.Empty(t, factory.opened)
}

func TestProcessMalformedBalanceIsContained(t *testing.T) {
	session := &fakeSession{quotas: []*browser.FetchResult{{Status: 200, Body: "<html>boom</html>"}}}
	tr := newTestRunner(t, &fakeFactory{sessions: []*fakeSession{session}}, nil)
	tr.repo.Seed(testDomain, cachedEntry())

	require.NotPanics(t, func() {
		tr.runner.Process(testAccount())
	})

	require.Empty(t, successMessages(tr.sink))
	require.True(t, session.closed)
}

func TestProcessSkipsAccountWithoutDomain(t *testing.T) {
	factory := &fakeFactory{}
	tr := newTestRunner(t, factory, nil)

	tr.runner.Process(config.Account{Name: "broken"})

	require.Empty(t, factory.opened)
	require.Empty(t, tr.sink.Messages)
}
