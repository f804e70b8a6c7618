package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"

	cerrors "github.com/panel-tools/checkin/internal/errors"
)

const (
	// ConfigEnv holds the whole config as a JSON document when set.
	ConfigEnv = "CHECKIN_CONFIG"

	// DefaultConfigFile is read when ConfigEnv is unset.
	DefaultConfigFile = "config.json"

	// DefaultEndpoint is the panel check-in endpoint used when an
	// account does not override it.
	DefaultEndpoint = "/api/user/sign_in"
)

// Config is the full run configuration: the account list, optional
// identity-provider credentials and the notification sinks.
type Config struct {
	Accounts  []Account        `json:"accounts"`
	LinuxDo   *Credentials     `json:"linuxdo,omitempty"`
	Notifiers []NotifierConfig `json:"notifiers,omitempty"`
}

// Account describes one panel. The domain is the identity key.
type Account struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Endpoint string `json:"endpoint,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// Credentials are the identity-provider login credentials.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NotifierConfig selects a notification sink by type and target URL.
type NotifierConfig struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// DisplayName returns the account name, falling back to the host.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if host := a.Host(); host != "" {
		return host
	}
	return "Unknown"
}

// Host strips the scheme off the account domain, for cookie scoping.
func (a Account) Host() string {
	host := strings.TrimPrefix(a.Domain, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

// CheckinEndpoint returns the account's check-in endpoint override or
// the default.
func (a Account) CheckinEndpoint() string {
	if a.Endpoint != "" {
		return a.Endpoint
	}
	return DefaultEndpoint
}

// Complete reports whether both credential fields are present.
func (c *Credentials) Complete() bool {
	return c != nil && c.Username != "" && c.Password != ""
}

// Load reads the configuration from the CHECKIN_CONFIG environment
// variable, falling back to the given file (DefaultConfigFile when
// empty). Environment credentials override file credentials.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	raw, err := rawConfig(path)
	if err != nil {
		return nil, err
	}

	cfg, err := parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "[config.Load] parse")
	}

	if username := LinuxDoUsername(); username != "" {
		if cfg.LinuxDo == nil {
			cfg.LinuxDo = &Credentials{}
		}
		cfg.LinuxDo.Username = username
	}
	if password := LinuxDoPassword(); password != "" {
		if cfg.LinuxDo == nil {
			cfg.LinuxDo = &Credentials{}
		}
		cfg.LinuxDo.Password = password
	}

	if len(cfg.Accounts) == 0 {
		return nil, cerrors.ErrNoAccounts
	}
	for _, account := range cfg.Accounts {
		if account.Domain == "" {
			return nil, errors.Errorf("[config.Load] account %q has no domain", account.DisplayName())
		}
	}

	return cfg, nil
}

func rawConfig(path string) ([]byte, error) {
	if env := os.Getenv(ConfigEnv); env != "" {
		return []byte(env), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(cerrors.ErrConfigNotFound, "set %s or create %s", ConfigEnv, path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "[config.rawConfig] ReadFile")
	}
	return raw, nil
}

// parse accepts either a full config object or a bare account list,
// the latter for compatibility with minimal configs.
func parse(raw []byte) (*Config, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var accounts []Account
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return nil, err
		}
		return &Config{Accounts: accounts}, nil
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
