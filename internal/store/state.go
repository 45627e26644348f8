package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt reports an unreadable state snapshot. Callers recover by
// starting with an empty watchlist; the engine never fails over this.
var ErrCorrupt = errors.New("state snapshot is corrupt")

// State is the minimal snapshot persisted across runs: the watchlist symbols.
// Rewritten on every successful add/remove and on shutdown.
type State struct {
	Watchlist []string `json:"watchlist"`
}

// LoadState reads the snapshot at path. A missing file yields an empty state
// with no error. A malformed file yields an empty state and ErrCorrupt.
func LoadState(path string) (*State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{}, nil
		}
		return &State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return &State{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &st, nil
}

// SaveState writes the snapshot atomically (temp file plus rename).
func SaveState(path string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
