package linkverify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "chatlink/internal/errors"
	"chatlink/internal/models"
)

// Store persists per-channel verification snapshots as a single JSON file so
// an interrupted agent can resume where it left off.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a snapshot store at the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot map, filtering entries by age: terminal states are
// rehydrated verbatim, pending states are kept only while now-StartedAt is
// under the retention window, and anything older is dropped back to idle.
// Dropped entries are removed from the file as well, so a stale pending
// never outlives its retention window on disk.
func (s *Store) Load(now time.Time, retention time.Duration) (map[models.ChannelID]State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[models.ChannelID]State{}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var all map[models.ChannelID]State
	if err := json.Unmarshal(raw, &all); err != nil {
		// A corrupt snapshot is not worth failing startup over.
		return map[models.ChannelID]State{}, nil
	}

	kept := make(map[models.ChannelID]State, len(all))
	for channel, state := range all {
		if state.Phase == PhasePending && now.Sub(state.Pending.StartedAt) >= retention {
			continue
		}
		kept[channel] = state
	}

	if len(kept) != len(all) {
		if err := s.writeLocked(kept); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// Save writes one channel's snapshot, preserving the other channels' entries.
func (s *Store) Save(channel models.ChannelID, state State) error {
	return s.update(func(all map[models.ChannelID]State) {
		all[channel] = state
	})
}

// Clear removes one channel's snapshot.
func (s *Store) Clear(channel models.ChannelID) error {
	return s.update(func(all map[models.ChannelID]State) {
		delete(all, channel)
	})
}

func (s *Store) update(mutate func(map[models.ChannelID]State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[models.ChannelID]State{}
	if raw, err := os.ReadFile(s.path); err == nil {
		if err := json.Unmarshal(raw, &all); err != nil {
			all = map[models.ChannelID]State{}
		}
	}
	mutate(all)
	return s.writeLocked(all)
}

// writeLocked persists the full snapshot map. Callers hold s.mu.
func (s *Store) writeLocked(all map[models.ChannelID]State) error {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Write-then-rename keeps a crash from truncating the snapshot.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
