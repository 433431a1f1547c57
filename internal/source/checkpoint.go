package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yeshinnorbu/claw/internal/config"
)

// Checkpoint is the persisted raw output of one endpoint's extraction.
// Later phases read checkpoints instead of recontacting the site. Records
// are immutable once written.
type Checkpoint struct {
	Endpoint    string            `json:"endpoint"`
	RetrievedAt time.Time         `json:"retrieved_at"`
	Records     []json.RawMessage `json:"records"`
}

// CheckpointStore keeps one JSON artifact per endpoint under the
// configured directory.
type CheckpointStore struct {
	dir string
}

func NewCheckpointStore(cfg config.Config) *CheckpointStore {
	return &CheckpointStore{dir: cfg.CheckpointDir}
}

func (s *CheckpointStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *CheckpointStore) Save(cp Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint %s: %w", cp.Endpoint, err)
	}

	tmp := s.path(cp.Endpoint) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", cp.Endpoint, err)
	}
	return os.Rename(tmp, s.path(cp.Endpoint))
}

// Load reads a checkpoint back. Artifacts written by the first-generation
// extraction scripts were bare JSON arrays; both shapes load.
func (s *CheckpointStore) Load(name string) (Checkpoint, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err == nil && cp.Endpoint != "" {
		return cp, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", name, err)
	}
	return Checkpoint{Endpoint: name, Records: records}, nil
}

// Count returns the number of records in a checkpoint, 0 when the artifact
// is absent.
func (s *CheckpointStore) Count(name string) int {
	cp, err := s.Load(name)
	if err != nil {
		return 0
	}
	return len(cp.Records)
}
