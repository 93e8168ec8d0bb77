package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/mirakyux/micept/internal/engine"
)

const (
	EnvListen             = "MICEPT_LISTEN"
	EnvConfigPath         = "MICEPT_CONFIG"
	EnvBaseInterval       = "MICEPT_BASE_INTERVAL"
	EnvReadyCheckInterval = "MICEPT_READY_CHECK_INTERVAL"
	EnvInGameInterval     = "MICEPT_IN_GAME_INTERVAL"
	EnvRequestTimeout     = "MICEPT_REQUEST_TIMEOUT"
	EnvDatabaseURL        = "MICEPT_DATABASE_URL"
	EnvDev                = "MICEPT_DEV"

	DefaultListenAddr     = "127.0.0.1:4399"
	DefaultRequestTimeout = 5 * time.Second
)

// Settings are process-level knobs, as opposed to the user Config.
type Settings struct {
	ListenAddr     string
	ConfigPath     string
	Policy         engine.Policy
	RequestTimeout time.Duration
	DatabaseURL    string
	Dev            bool
}

func DefaultSettings() Settings {
	return Settings{
		ListenAddr:     DefaultListenAddr,
		Policy:         engine.DefaultPolicy(),
		RequestTimeout: DefaultRequestTimeout,
	}
}

// LoadSettings reads the optional dotenv files into the process
// environment (existing variables win) and then parses Settings from it.
// Missing dotenv files are fine.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return DefaultSettings(), fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return SettingsFromEnv(os.LookupEnv)
}

// SettingsFromEnv parses Settings using lookup. Every malformed variable
// is reported, not just the first.
func SettingsFromEnv(lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()
	var errs error

	if v, ok := lookup(EnvListen); ok && v != "" {
		s.ListenAddr = v
	}
	if v, ok := lookup(EnvConfigPath); ok && v != "" {
		s.ConfigPath = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok {
		s.DatabaseURL = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvBaseInterval, &s.Policy.Base},
		{EnvReadyCheckInterval, &s.Policy.ReadyCheck},
		{EnvInGameInterval, &s.Policy.InGame},
		{EnvRequestTimeout, &s.RequestTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid duration %q", d.key, v))
			continue
		}
		*d.dst = parsed
	}

	if v, ok := lookup(EnvDev); ok && v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: invalid bool %q", EnvDev, v))
		} else {
			s.Dev = dev
		}
	}

	return s, errs
}
