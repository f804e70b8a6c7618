package panel

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/panel-tools/checkin/cache"
	"github.com/panel-tools/checkin/internal/config"
	cerrors "github.com/panel-tools/checkin/internal/errors"
	"github.com/panel-tools/checkin/notify"
)

// SessionProvider bootstraps a fresh panel session through the
// identity provider. Nil when no provider session is available.
type SessionProvider interface {
	Authorize(account config.Account) (cache.Entry, error)
}

// SessionFactory opens browser-backed panel sessions.
type SessionFactory interface {
	Open(domain string, cookies map[string]string) (Session, error)
}

// Session is one scoped panel session; Close releases its browser
// context.
type Session interface {
	Fetcher
	Close() error
}

// Runner processes accounts strictly sequentially: cached cookies
// first, a single OAuth escalation on failure, then the fixed
// quota / check-in / quota sequence. Per-account failures are logged
// and notified but never escape Process.
type Runner struct {
	sessions SessionFactory
	cache    cache.Repo
	provider SessionProvider
	alerts   notify.Alerter
	log      zerolog.Logger
	runID    string
	now      func() time.Time
}

// RunnerOption modifies a Runner.
type RunnerOption func(*Runner)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = nowFunc
	}
}

// NewRunner wires a runner. provider may be nil, which limits the
// runner to cached sessions.
func NewRunner(sessions SessionFactory, repo cache.Repo, provider SessionProvider, alerts notify.Alerter, logger zerolog.Logger, runID string, options ...RunnerOption) *Runner {
	runner := &Runner{
		sessions: sessions,
		cache:    repo,
		provider: provider,
		alerts:   alerts,
		log:      logger,
		runID:    runID,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(runner)
	}
	return runner
}

// Process runs the check-in for one account. All failures are
// contained: they are classified, logged and notified, and the next
// account proceeds regardless.
func (r *Runner) Process(account config.Account) {
	log := r.log.With().Str("account", account.DisplayName()).Logger()

	if account.Domain == "" {
		log.Warn().Msg("Missing domain, skipping")
		return
	}

	entry, ok := r.cache.Get(account.Domain)
	if ok && entry.Stale(r.now()) {
		log.Warn().Msg("Cached session is expired")
		ok = false
	}

	if ok {
		err := r.runSequence(log, account, entry)
		if err == nil {
			return
		}
		r.classify(log, err).Msg("Cached session failed")
	} else {
		log.Info().Msg("No usable cached session")
	}

	if r.provider == nil {
		msg := fmt.Sprintf("[%s] no usable session and identity provider unavailable", account.DisplayName())
		log.Error().Msg("Identity provider unavailable, skipping account")
		r.notifyError(account, msg)
		return
	}

	log.Info().Msg("Falling back to OAuth")
	fresh, err := r.provider.Authorize(account)
	if err != nil {
		// The previous cache entry stays untouched.
		r.classify(log, err).Msg("OAuth failed")
		r.notifyError(account, fmt.Sprintf("[%s] OAuth failed: %v", account.DisplayName(), err))
		return
	}
	if err := fresh.Validate(); err != nil {
		r.classify(log, err).Msg("OAuth produced an empty session")
		r.notifyError(account, fmt.Sprintf("[%s] OAuth produced an empty session", account.DisplayName()))
		return
	}

	if err := r.cache.Put(account.Domain, fresh); err != nil {
		log.Error().Err(err).Msg("Failed to update cache entry")
		return
	}

	if err := r.runSequence(log, account, fresh); err != nil {
		r.classify(log, err).Msg("Check-in failed after OAuth")
		r.notifyError(account, fmt.Sprintf("[%s] check-in failed: %v", account.DisplayName(), err))
	}
}

// runSequence opens a scoped session and performs the fixed balance,
// check-in, balance sequence. The context is released on every path.
func (r *Runner) runSequence(log zerolog.Logger, account config.Account, entry cache.Entry) error {
	log.Info().Str("domain", account.Domain).Msg("Accessing panel")
	session, err := r.sessions.Open(account.Domain, entry.Cookies)
	if err != nil {
		return errors.Wrap(err, "[Runner.runSequence] Open")
	}
	defer session.Close()

	client := NewClient(session, account.Domain, entry.APIUser, account.CheckinEndpoint(), log)

	before, err := client.Quota()
	if err != nil {
		return err
	}
	if _, err := client.CheckIn(); err != nil {
		return err
	}
	after, err := client.Quota()
	if err != nil {
		return err
	}

	// A non-increase is no news, reported nowhere.
	if after.Quota > before.Quota {
		msg := fmt.Sprintf("[%s] check-in ok, balance $%.2f to $%.2f (run %s)",
			account.DisplayName(), before.Quota, after.Quota, r.runID)
		log.Info().Float64("before", before.Quota).Float64("after", after.Quota).Msg("Check-in rewarded")
		r.notify("Checkin Success", msg)
	}
	return nil
}

// classify tags the log event as an HTTP/response error or a generic
// execution error.
func (r *Runner) classify(log zerolog.Logger, err error) *zerolog.Event {
	if cerrors.IsHTTPError(err) {
		return log.Error().Err(err).Str("class", "http")
	}
	return log.Error().Err(err).Str("class", "execution")
}

func (r *Runner) notifyError(account config.Account, msg string) {
	r.notify("Checkin Error", msg)
}

func (r *Runner) notify(title, msg string) {
	if r.alerts == nil {
		return
	}
	r.alerts.Notify(title, msg)
}
