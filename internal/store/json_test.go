package store

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/canvas-todo/internal/model"
)

const statePath = "/home/u/.config/canvastodo/completed.json"

func newTestStore(t *testing.T) (*JSONStore, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	var logs bytes.Buffer
	return NewJSONStore(fs, statePath, log.New(&logs, "", 0)), fs, &logs
}

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	st, _, logs := newTestStore(t)

	set := st.LoadCompleted()

	assert.Equal(t, 0, set.Len())
	assert.Empty(t, logs.String())
}

func TestJSONStoreCorruptFileIsEmpty(t *testing.T) {
	st, fs, logs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, statePath, []byte("{not json"), 0o600))

	set := st.LoadCompleted()

	assert.Equal(t, 0, set.Len())
	assert.Contains(t, logs.String(), "corrupt")
}

func TestJSONStoreReadsLegacyArray(t *testing.T) {
	st, fs, _ := newTestStore(t)
	legacy := `[{"url":"https://c.edu/2","name":"HW2","recorded_at":"2025-01-02T00:00:00Z"},
{"url":"https://c.edu/1","name":"HW1","recorded_at":"2025-01-01T00:00:00Z"}]`
	require.NoError(t, afero.WriteFile(fs, statePath, []byte(legacy), 0o600))

	set := st.LoadCompleted()

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Has("https://c.edu/1"))
	assert.Empty(t, set.WeeklyResetOn)
}

func TestJSONStoreSaveRoundTrip(t *testing.T) {
	st, fs, _ := newTestStore(t)
	stamp := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)

	set := NewCompletedSet()
	set.Add(model.CompletedAssignment{URL: "https://c.edu/b", Name: "B", Course: "CS101", RecordedAt: stamp})
	set.Add(model.CompletedAssignment{URL: "https://c.edu/a", Name: "A", Course: "CS101", RecordedAt: stamp})
	set.WeeklyResetOn = "2025-01-06"

	require.NoError(t, st.SaveCompleted(set))

	data, err := afero.ReadFile(fs, statePath)
	require.NoError(t, err)
	assert.Less(t, bytes.Index(data, []byte("https://c.edu/a")), bytes.Index(data, []byte("https://c.edu/b")),
		"entries are written sorted by URL")
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))

	exists, err := afero.Exists(fs, statePath+".tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	loaded := st.LoadCompleted()
	assert.Equal(t, set.Entries(), loaded.Entries())
	assert.Equal(t, "2025-01-06", loaded.WeeklyResetOn)
}

func TestWriteFileAtomicCreatesDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, WriteFileAtomic(fs, "/a/b/c.md", []byte("hello\n"), 0o644))

	data, err := afero.ReadFile(fs, "/a/b/c.md")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
