package fakecacherepo

import (
	"sort"
	"sync"

	"github.com/panel-tools/checkin/cache"
)

var _ cache.Repo = (*FakeCacheRepo)(nil)

// FakeCacheRepo is an in-memory cache.Repo for tests. It records Put
// calls so tests can assert how entries were written.
type FakeCacheRepo struct {
	entries  map[string]cache.Entry
	PutCalls []string
	lock     sync.RWMutex
}

func NewFakeCacheRepo() *FakeCacheRepo {
	return &FakeCacheRepo{
		entries: make(map[string]cache.Entry),
	}
}

func (r *FakeCacheRepo) Get(domain string) (cache.Entry, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	entry, ok := r.entries[domain]
	return entry, ok
}

func (r *FakeCacheRepo) Put(domain string, entry cache.Entry) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := entry.Validate(); err != nil {
		return err
	}
	r.entries[domain] = entry
	r.PutCalls = append(r.PutCalls, domain)
	return nil
}

func (r *FakeCacheRepo) Domains() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	domains := make([]string, 0, len(r.entries))
	for domain := range r.entries {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// Seed installs an entry without recording a Put call.
func (r *FakeCacheRepo) Seed(domain string, entry cache.Entry) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[domain] = entry
}
