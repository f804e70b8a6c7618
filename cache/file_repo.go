package cache

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// DefaultCacheFile is the on-disk cookie cache location.
const DefaultCacheFile = "cookies.json"

var _ Repo = (*FileRepo)(nil)

// FileRepo is a Repo backed by a single JSON file. The file is read
// once at construction, mutated only in memory, and rewritten in full
// by Save at the end of a run.
type FileRepo struct {
	path    string
	entries map[string]Entry
}

// NewFileRepo loads the cache file at path. A missing file yields an
// empty repo; a corrupt file is an error rather than silent data loss.
func NewFileRepo(path string) (*FileRepo, error) {
	repo := &FileRepo{
		path:    path,
		entries: make(map[string]Entry),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return repo, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] ReadFile")
	}
	if err := json.Unmarshal(raw, &repo.entries); err != nil {
		return nil, errors.Wrapf(err, "[NewFileRepo] corrupt cache file %s", path)
	}
	return repo, nil
}

func (r *FileRepo) Get(domain string) (Entry, bool) {
	entry, ok := r.entries[domain]
	return entry, ok
}

// Put replaces the entry for domain wholesale. Invalid entries are
// rejected so an empty session can never be cached.
func (r *FileRepo) Put(domain string, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return errors.Wrapf(err, "[FileRepo.Put] %s", domain)
	}
	r.entries[domain] = entry
	return nil
}

func (r *FileRepo) Domains() []string {
	domains := make([]string, 0, len(r.entries))
	for domain := range r.entries {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains
}

// Save rewrites the whole cache file.
func (r *FileRepo) Save() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] MarshalIndent")
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] WriteFile")
	}
	return nil
}
