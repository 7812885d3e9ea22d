package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/OCharnyshevich/raster-world/internal/engine/config"
	"github.com/OCharnyshevich/raster-world/internal/engine/game"
)

// Storage handles file-based persistence for config and player sessions.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "sessions"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the storage root.
func (s *Storage) Dir() string {
	return s.dir
}

// LoadConfig reads config.json into cfg. If the file does not exist, cfg is unchanged.
func (s *Storage) LoadConfig(cfg *config.Config) error {
	path := filepath.Join(s.dir, "config.json")
	found, err := s.readJSON(path, cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if found {
		s.log.Info("loaded config from file", "path", path)
	}
	return nil
}

// SaveConfig writes cfg to config.json atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	return s.atomicWriteJSON(filepath.Join(s.dir, "config.json"), cfg)
}

// LoadSession reads sessions/<name>.json and returns the data, or nil if not found.
func (s *Storage) LoadSession(name string) (*SessionData, error) {
	var sd SessionData
	found, err := s.readJSON(s.sessionPath(name), &sd)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}
	if !found {
		return nil, nil
	}
	return &sd, nil
}

// SaveSession persists the current state of the player under name.
func (s *Storage) SaveSession(name, seed string, p *game.Player) error {
	sd := SessionDataFromPlayer(name, seed, p)
	if err := s.atomicWriteJSON(s.sessionPath(name), sd); err != nil {
		return fmt.Errorf("save session %s: %w", name, err)
	}
	return nil
}

func (s *Storage) sessionPath(name string) string {
	return filepath.Join(s.dir, "sessions", name+".json")
}

func (s *Storage) readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// atomicWriteJSON marshals v to JSON and writes it atomically using a temp file + rename.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
