// Package dotdir manages the .aff4/ and ~/.aff4 directories.
//
// The directory holds config.toml and the current volume state: the volume
// a previous "aff4meta open" selected, used by commands run without an
// explicit --volume.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the aff4meta directory.
	dirName = ".aff4"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to an existing .aff4/ directory.
// Order of precedence is as follows:
//  1. Provided override, created if missing
//  2. Local ./.aff4/ dir
//  3. Home ~/.aff4/ dir
//
// When none exists the empty string is returned.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating aff4 directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	if local, ok := m.localDir(); ok {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if isDir(dir) {
		return dir, nil
	}
	return "", nil
}

// Ensure is Target, but creates ~/.aff4/ when no directory exists yet.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating aff4 directory %s: %w", dir, err)
	}
	return dir, nil
}

// localDir returns the .aff4/ directory in the current working directory.
func (m *Manager) localDir() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}

	dir := filepath.Join(cwd, dirName)
	return dir, isDir(dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
