package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	currentFile = "current.json"
)

// CurrentVolume is the persisted volume selection.
type CurrentVolume struct {
	// Path is the absolute path of the volume directory.
	Path string `json:"path"`

	// URN is the volume URN recorded when it was opened.
	URN string `json:"urn"`

	// OpenedAt is when the volume was selected.
	OpenedAt time.Time `json:"opened_at"`
}

// LoadCurrentVolume loads the selection from a target .aff4/current.json.
// Returns nil, nil if no volume is selected.
func (m *Manager) LoadCurrentVolume(overrideDir string) (*CurrentVolume, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading current volume: %w", err)
	}

	current := &CurrentVolume{}
	if err := json.Unmarshal(data, current); err != nil {
		return nil, fmt.Errorf("parsing current volume: %w", err)
	}
	return current, nil
}

// SaveCurrentVolume persists the selection, creating ~/.aff4/ if needed.
func (m *Manager) SaveCurrentVolume(current *CurrentVolume, overrideDir string) error {
	if current == nil {
		return errors.New("cannot save nil current volume")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling current volume: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, currentFile), data, 0o600); err != nil {
		return fmt.Errorf("writing current volume: %w", err)
	}
	return nil
}

// ClearCurrentVolume removes the selection. Returns nil if none was saved.
func (m *Manager) ClearCurrentVolume(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, currentFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing current volume: %w", err)
	}
	return nil
}
