// Package cache persists panel sessions between runs: a flat mapping
// from panel domain to the api_user id and cookies obtained through
// OAuth. Entries are only ever replaced wholesale, never merged.
package cache

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	cerrors "github.com/panel-tools/checkin/internal/errors"
)

// Cookies is a cookie-name to value mapping. It unmarshals from either
// a JSON object or a "name=value; name2=value2" header-style string.
type Cookies map[string]string

func (c *Cookies) UnmarshalJSON(data []byte) error {
	var asMap map[string]string
	if err := json.Unmarshal(data, &asMap); err == nil {
		*c = asMap
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return errors.Wrap(err, "[Cookies.UnmarshalJSON] expected object or string")
	}
	*c = ParseCookieString(asString)
	return nil
}

// ParseCookieString splits a "name=value; name2=value2" string into a
// cookie mapping. Items without an equals sign are dropped.
func ParseCookieString(s string) Cookies {
	result := Cookies{}
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key, value, found := strings.Cut(item, "=")
		if !found {
			continue
		}
		result[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return result
}

// Entry is one cached panel session.
type Entry struct {
	APIUser string  `json:"api_user"`
	Cookies Cookies `json:"cookies"`
}

// Validate rejects entries that would cache an empty session. An entry
// missing the api_user or all cookies must never reach disk.
func (e Entry) Validate() error {
	if e.APIUser == "" {
		return errors.Wrap(cerrors.ErrEmptySession, "missing api_user")
	}
	if len(e.Cookies) == 0 {
		return errors.Wrap(cerrors.ErrEmptySession, "missing cookies")
	}
	return nil
}

// Stale reports whether any cookie value carries a JWT exp claim in
// the past. Opaque cookie values never mark an entry stale; the probe
// only saves a browser navigation when expiry is knowable up front.
func (e Entry) Stale(now time.Time) bool {
	parser := jwt.NewParser()
	for _, value := range e.Cookies {
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(value, claims); err != nil {
			continue
		}
		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			continue
		}
		if exp.Before(now) {
			return true
		}
	}
	return false
}
