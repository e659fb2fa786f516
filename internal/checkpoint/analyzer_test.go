package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextd/internal/metadata"
)

func seedScenario(t *testing.T) *metadata.MemStore {
	t.Helper()

	// read@100 -> user_edited@200 -> read@300 -> agent_edited@400
	store := metadata.NewMemStore()
	md := metadata.NewTaskMetadata()
	md.Files = append(md.Files,
		metadata.FileEntry{
			Path: "a.ts", State: metadata.StateStale, Source: metadata.SourceRead,
			AgentReadAt: metadata.Millis(100),
		},
		metadata.FileEntry{
			Path: "a.ts", State: metadata.StateStale, Source: metadata.SourceUserEdited,
			AgentReadAt: metadata.Millis(100), UserEditAt: metadata.Millis(200),
		},
		metadata.FileEntry{
			Path: "a.ts", State: metadata.StateStale, Source: metadata.SourceRead,
			AgentReadAt: metadata.Millis(300), UserEditAt: metadata.Millis(200),
		},
		metadata.FileEntry{
			Path: "a.ts", State: metadata.StateActive, Source: metadata.SourceAgentEdited,
			AgentReadAt: metadata.Millis(400), AgentEditAt: metadata.Millis(400), UserEditAt: metadata.Millis(200),
		},
	)
	require.NoError(t, store.Save("task1", md))
	return store
}

func TestMetadataEvidence(t *testing.T) {
	store := seedScenario(t)
	a := NewAnalyzer("task1", store)

	paths, err := a.FilesChangedSince(300, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, paths, "agent edit at 400 postdates 300")

	paths, err = a.FilesChangedSince(400, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestMessageEvidence(t *testing.T) {
	store := metadata.NewMemStore()
	a := NewAnalyzer("task1", store)

	discarded := []Message{
		{Timestamp: 350, Kind: KindTool, Text: `{"tool": "editedExistingFile", "path": "b.ts"}`},
		{Timestamp: 360, Kind: KindTool, Text: `{"tool": "newFileCreated", "path": "c.ts"}`},
		{Timestamp: 370, Kind: KindTool, Text: `{"tool": "readFile", "path": "d.ts"}`},
		{Timestamp: 380, Kind: "say", Text: "just narration"},
	}

	paths, err := a.FilesChangedSince(300, discarded)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.ts", "c.ts"}, paths)
}

func TestEvidenceUnionDeduplicates(t *testing.T) {
	store := seedScenario(t)
	a := NewAnalyzer("task1", store)

	discarded := []Message{
		{Timestamp: 350, Kind: KindTool, Text: `{"tool": "editedExistingFile", "path": "a.ts"}`},
		{Timestamp: 360, Kind: KindTool, Text: `{"tool": "editedExistingFile", "path": "z.ts"}`},
	}

	paths, err := a.FilesChangedSince(300, discarded)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts", "z.ts"}, paths)
}

func TestMalformedMessagesSkipped(t *testing.T) {
	store := metadata.NewMemStore()
	a := NewAnalyzer("task1", store)

	discarded := []Message{
		{Kind: KindTool, Text: `{not json`},
		{Kind: KindTool, Text: ``},
		{Kind: KindTool, Text: `{"tool": "editedExistingFile"}`}, // no path
		{Kind: KindTool, Text: `{"tool": "editedExistingFile", "path": "ok.ts"}`},
	}

	paths, err := a.FilesChangedSince(0, discarded)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.ts"}, paths, "malformed records are skipped, not fatal")
}

func TestNoMetadataYet(t *testing.T) {
	store := metadata.NewMemStore()
	a := NewAnalyzer("ghost", store)

	paths, err := a.FilesChangedSince(0, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestPersistenceFailurePropagates(t *testing.T) {
	store := metadata.NewMemStore()
	store.FailLoads = true
	a := NewAnalyzer("task1", store)

	_, err := a.FilesChangedSince(0, nil)
	assert.Error(t, err)
}
