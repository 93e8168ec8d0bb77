package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

const (
	appDirName     = "micept"
	configFileName = "config.json"
)

type WindowPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Config is the user configuration persisted between runs.
type Config struct {
	WindowPosition WindowPosition `json:"window_position"`
	MouseThrough   bool           `json:"mouse_through"`
	AutoAccept     bool           `json:"auto_accept"`
	AutoHide       bool           `json:"auto_hide"`
	WindowVisible  bool           `json:"window_visible"`
}

// Default parks the overlay in the top-right corner, click-through, with
// auto-accept on.
func Default() Config {
	return Config{
		WindowPosition: WindowPosition{X: -400, Y: 0},
		MouseThrough:   true,
		AutoAccept:     true,
		AutoHide:       false,
		WindowVisible:  true,
	}
}

// DefaultPath is <user config dir>/micept/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, configFileName), nil
}

// Load reads the config at path. A missing file yields Default() and no
// error. An unreadable or malformed file yields Default() and the error,
// so callers can log it and carry on. Keys absent from the file keep their
// default values. Comments and trailing commas are accepted.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg atomically: temp file, fsync, rename, fsync directory.
// The parent directory is created if needed.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary config file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing temporary config file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing temporary config file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temporary config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming config file into place: %w", err)
	}

	if parent, err := os.Open(dir); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Store holds the live config and persists every change. Persistence
// failures are logged, never returned: a toggle must still take effect in
// memory when the disk is unhappy.
type Store struct {
	path   string
	logger *zap.Logger

	mu  sync.Mutex
	cfg Config

	// saveMu orders writes so an older snapshot never lands last.
	saveMu sync.Mutex
}

// Open loads the config at path into a Store. Load problems are logged and
// the defaults are used.
func Open(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := Load(path)
	if err != nil {
		logger.Warn("config unreadable, using defaults", zap.String("path", path), zap.Error(err))
	} else {
		logger.Info("config loaded", zap.String("path", path), zap.Any("config", cfg))
	}
	return &Store{path: path, logger: logger, cfg: cfg}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update applies fn to the config and writes the result to disk.
func (s *Store) Update(fn func(*Config)) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	fn(&s.cfg)
	snapshot := s.cfg
	s.mu.Unlock()

	if err := Save(s.path, snapshot); err != nil {
		s.logger.Error("saving config failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.logger.Debug("config saved", zap.String("path", s.path))
}
