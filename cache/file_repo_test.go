package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panel-tools/checkin/cache"
)

const testDomain = "https://panel.example.com"

func newTempRepo(t *testing.T) (*cache.FileRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.json")
	repo, err := cache.NewFileRepo(path)
	require.NoError(t, err)
	return repo, path
}

func TestFileRepoMissingFileIsEmpty(t *testing.T) {
	repo, _ := newTempRepo(t)
	require.Empty(t, repo.Domains())
}

func TestFileRepoRoundtrip(t *testing.T) {
	repo, path := newTempRepo(t)

	entry := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": "abc"}}
	require.NoError(t, repo.Put(testDomain, entry))
	require.NoError(t, repo.Save())

	reloaded, err := cache.NewFileRepo(path)
	require.NoError(t, err)

	got, ok := reloaded.Get(testDomain)
	require.True(t, ok)
	require.Equal(t, entry, got)
	require.Equal(t, []string{testDomain}, reloaded.Domains())
}

func TestFileRepoPutReplacesWholesale(t *testing.T) {
	repo, _ := newTempRepo(t)

	first := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": "old", "theme": "dark"}}
	require.NoError(t, repo.Put(testDomain, first))

	second := cache.Entry{APIUser: "43", Cookies: cache.Cookies{"session": "new"}}
	require.NoError(t, repo.Put(testDomain, second))

	got, ok := repo.Get(testDomain)
	require.True(t, ok)
	require.Equal(t, "43", got.APIUser)
	require.Equal(t, cache.Cookies{"session": "new"}, got.Cookies)
	require.NotContains(t, got.Cookies, "theme")
}

func TestFileRepoRejectsEmptySession(t *testing.T) {
	repo, _ := newTempRepo(t)

	require.Error(t, repo.Put(testDomain, cache.Entry{}))
	require.Error(t, repo.Put(testDomain, cache.Entry{APIUser: "42"}))

	_, ok := repo.Get(testDomain)
	require.False(t, ok)
}

func TestFileRepoCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := cache.NewFileRepo(path)
	require.Error(t, err)
}

func TestFileRepoReadsHeaderStringCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	raw := `{"https://panel.example.com": {"api_user": "42", "cookies": "session=abc; theme=dark"}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	repo, err := cache.NewFileRepo(path)
	require.NoError(t, err)

	got, ok := repo.Get(testDomain)
	require.True(t, ok)
	require.Equal(t, cache.Cookies{"session": "abc", "theme": "dark"}, got.Cookies)
}
