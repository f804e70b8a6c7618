package cache_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/panel-tools/checkin/cache"
	cerrors "github.com/panel-tools/checkin/internal/errors"
)

func TestCookiesUnmarshalObject(t *testing.T) {
	var entry cache.Entry
	require.NoError(t, json.Unmarshal([]byte(`{"api_user": "42", "cookies": {"session": "abc"}}`), &entry))
	require.Equal(t, "42", entry.APIUser)
	require.Equal(t, cache.Cookies{"session": "abc"}, entry.Cookies)
}

func TestCookiesUnmarshalHeaderString(t *testing.T) {
	var entry cache.Entry
	require.NoError(t, json.Unmarshal([]byte(`{"api_user": "42", "cookies": "session=abc; theme = dark"}`), &entry))
	require.Equal(t, cache.Cookies{"session": "abc", "theme": "dark"}, entry.Cookies)
}

func TestParseCookieString(t *testing.T) {
	cookies := cache.ParseCookieString("a=1; b=2;; junk ; c=x=y")
	require.Equal(t, cache.Cookies{"a": "1", "b": "2", "c": "x=y"}, cookies)
}

func TestEntryValidate(t *testing.T) {
	valid := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": "abc"}}
	require.NoError(t, valid.Validate())

	noUser := cache.Entry{Cookies: cache.Cookies{"session": "abc"}}
	require.ErrorIs(t, noUser.Validate(), cerrors.ErrEmptySession)

	noCookies := cache.Entry{APIUser: "42"}
	require.ErrorIs(t, noCookies.Validate(), cerrors.ErrEmptySession)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestEntryStale(t *testing.T) {
	now := time.Now()

	expired := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": signedToken(t, now.Add(-time.Hour))}}
	require.True(t, expired.Stale(now))

	fresh := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": signedToken(t, now.Add(time.Hour))}}
	require.False(t, fresh.Stale(now))
}

func TestEntryStaleIgnoresOpaqueCookies(t *testing.T) {
	entry := cache.Entry{APIUser: "42", Cookies: cache.Cookies{"session": "not-a-jwt", "theme": "dark"}}
	require.False(t, entry.Stale(time.Now()))
}
