package cloudsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateFileName = ".sync-state.json"

// syncState maps database names to the cloud modification time seen at the last sync
type syncState map[string]time.Time

func (s *Syncer) statePath() string {
	return filepath.Join(s.cacheDir, stateFileName)
}

func (s *Syncer) loadState() (syncState, error) {
	data, err := os.ReadFile(s.statePath())
	if errors.Is(err, os.ErrNotExist) {
		return syncState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	state := syncState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse sync state: %w", err)
	}
	return state, nil
}

func (s *Syncer) recordSync(name string, cloudModified time.Time) error {
	state, err := s.loadState()
	if err != nil {
		return err
	}
	state[name] = cloudModified.UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(s.statePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	return nil
}
