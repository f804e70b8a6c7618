package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/panel-tools/checkin/browser"
	"github.com/panel-tools/checkin/cache"
	"github.com/panel-tools/checkin/internal/config"
	"github.com/panel-tools/checkin/linuxdo"
	"github.com/panel-tools/checkin/notify"
	"github.com/panel-tools/checkin/panel"
)

const appName = "checkin"

var (
	configFile string
	cacheFile  string
	stateFile  string
	browserBin string
	headless   bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:          appName,
	Short:        "Automated check-in for self-hosted API gateway panels",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (default config.json, or CHECKIN_CONFIG env)")
	rootCmd.Flags().StringVar(&cacheFile, "cache", "", "cookie cache file (default cookies.json)")
	rootCmd.Flags().StringVar(&stateFile, "state", "", "identity provider state file (default linuxdo_state.json)")
	rootCmd.Flags().StringVar(&browserBin, "browser-bin", "", "browser binary path (default managed chromium)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	rootCmd.Flags().DurationVar(&timeout, "timeout", browser.DefaultTimeout, "per-operation browser timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.Errorf("panic recovered: %v", r)
		}
	}()

	_ = godotenv.Load()
	setupLogging()
	displayAppName(appName)

	cfg, err := config.Load(configFile)
	if err != nil {
		return errors.Wrap(err, "config load")
	}

	repo, err := cache.NewFileRepo(config.CacheFile(defaultString(cacheFile, cache.DefaultCacheFile)))
	if err != nil {
		return errors.Wrap(err, "cookie cache load")
	}

	dispatcher := notify.NewDispatcher(cfg.Notifiers, log.Logger)
	runID := strings.Split(uuid.NewString(), "-")[0]
	log.Info().Str("run", runID).Int("accounts", len(cfg.Accounts)).Int("sinks", dispatcher.Sinks()).Msg("Configuration loaded")

	b, err := browser.New(browser.Options{Headless: headless, Bin: browserBin, Timeout: timeout})
	if err != nil {
		return errors.Wrap(err, "browser launch")
	}
	defer b.Close()

	manager := linuxdo.NewManager(b, config.StateFile(defaultString(stateFile, linuxdo.DefaultStateFile)), dispatcher, log.Logger)
	defer manager.Close()

	var provider panel.SessionProvider
	if err := manager.Ensure(cfg.LinuxDo); err != nil {
		// Cache-only mode: accounts without a usable cache entry are
		// skipped account by account.
		log.Warn().Err(err).Msg("Identity provider session unavailable")
	} else {
		provider = manager
	}

	runner := panel.NewRunner(panel.NewBrowserSessions(b), repo, provider, dispatcher, log.Logger.With().Str("run", runID).Logger(), runID)
	for _, account := range cfg.Accounts {
		runner.Process(account)
	}

	if err := repo.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to persist cookie cache")
	}
	if manager.Active() {
		if err := manager.SaveState(); err != nil {
			log.Error().Err(err).Msg("Failed to persist identity provider state")
		}
	}
	return nil
}

func setupLogging() {
	level, err := zerolog.ParseLevel(config.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func displayAppName(name string) {
	myFigure := figure.NewFigure(name, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
