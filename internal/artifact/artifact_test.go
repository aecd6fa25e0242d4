package artifact

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizers(t *testing.T) {
	trigger := "2024-01-02 09:30:00"

	assert.Equal(t, "2024-01-02_09-30-00", sanitizeFactor(trigger))
	assert.Equal(t, "2024-01-02_09:30:00", sanitizeReport(trigger))
	assert.Equal(t, "2024-01-02093000", sanitizeCompact(trigger))
}

type dummyFactor struct {
	AgentName string `json:"agentName"`
	Context   string `json:"contextString"`
}

func TestFactorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	trigger := "2024-01-02 09:30:00"
	in := dummyFactor{AgentName: "news-agent", Context: "summary [1]"}
	require.NoError(t, store.SaveFactor("news-agent", trigger, in))

	expectedPath := filepath.Join(dir, "factors", "news-agent", "2024-01-02_09-30-00.json")
	assert.True(t, Exists(expectedPath))

	var out dummyFactor
	found, err := store.LoadFactor("news-agent", trigger, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestLoadMissingArtifactIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	var out dummyFactor
	found, err := store.LoadFactor("nobody", "2024-01-02 09:30:00", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
