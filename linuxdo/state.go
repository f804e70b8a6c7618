package linuxdo

import (
	"encoding/json"
	"os"

	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	cerrors "github.com/panel-tools/checkin/internal/errors"
)

// StorageState is the persisted identity-provider browser state:
// cookies plus per-origin localStorage. Opaque to callers, fully
// rewritten after a run that used the session.
type StorageState struct {
	Cookies []*proto.NetworkCookieParam  `json:"cookies"`
	Origins map[string]map[string]string `json:"origins,omitempty"`
}

// LoadState reads a storage-state file.
func LoadState(path string) (*StorageState, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(cerrors.ErrStateNotFound, path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[linuxdo.LoadState] ReadFile")
	}

	var state StorageState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, errors.Wrapf(err, "[linuxdo.LoadState] corrupt state file %s", path)
	}
	return &state, nil
}

// Save rewrites the storage-state file. Session cookies carry the
// provider login, so the file is kept private.
func (s *StorageState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[StorageState.Save] MarshalIndent")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "[StorageState.Save] WriteFile")
	}
	return nil
}

// cookieParams converts browser cookies into settable params.
func cookieParams(cookies []*proto.NetworkCookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
			Expires:  c.Expires,
		})
	}
	return params
}
