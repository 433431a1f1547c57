package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeshinnorbu/claw/internal/config"
)

func TestCheckpoint_RoundTrip(t *testing.T) {
	store := NewCheckpointStore(config.Config{CheckpointDir: t.TempDir()})

	in := Checkpoint{
		Endpoint:    "wc_orders",
		RetrievedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		Records: []json.RawMessage{
			json.RawMessage(`{"id":1,"total":"100.00"}`),
			json.RawMessage(`{"id":2,"total":"50.00"}`),
		},
	}
	require.NoError(t, store.Save(in))

	out, err := store.Load("wc_orders")
	require.NoError(t, err)
	assert.Equal(t, in.Endpoint, out.Endpoint)
	assert.True(t, in.RetrievedAt.Equal(out.RetrievedAt))
	assert.Len(t, out.Records, 2)
	assert.Equal(t, 2, store.Count("wc_orders"))
}

func TestCheckpoint_LoadsLegacyBareArrayArtifacts(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id":1},{"id":2},{"id":3}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte(legacy), 0o644))

	store := NewCheckpointStore(config.Config{CheckpointDir: dir})
	cp, err := store.Load("events")
	require.NoError(t, err)
	assert.Equal(t, "events", cp.Endpoint)
	assert.Len(t, cp.Records, 3)
}

func TestCheckpoint_MissingArtifact(t *testing.T) {
	store := NewCheckpointStore(config.Config{CheckpointDir: t.TempDir()})

	_, err := store.Load("nope")
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, store.Count("nope"))
}
