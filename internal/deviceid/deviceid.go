// Package deviceid keeps one opaque device identifier per local profile.
//
// The id is random, generated once and reused. It identifies a profile
// directory, not hardware: copying the file moves the identity with it.
package deviceid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const fileName = "device_id"

// DefaultDir is ~/.smarttrack.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".smarttrack"), nil
}

// LoadOrCreate returns the id stored in dir, creating it on first use.
func LoadOrCreate(dir string) (string, error) {
	path := filepath.Join(dir, fileName)
	b, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}
