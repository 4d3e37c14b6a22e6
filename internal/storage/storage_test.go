package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
)

const hostPreset = `{
  "temperature": 0.7,
  "items": [
    {"identifier": "main", "name": "Main Prompt", "role": "system", "content": "Be helpful.", "system_prompt": true},
    {"identifier": "chatHistory", "name": "Chat History", "marker": true}
  ],
  "order": [
    {"scope": "global", "order": [{"identifier": "main", "enabled": true}, {"identifier": "chatHistory", "enabled": false}]}
  ]
}`

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.InitLibrary())
	return s
}

func writePreset(t *testing.T, s *Storage, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.GetBaseDir(), name+".json"), []byte(body), 0644))
}

func TestGetPreservesHostFields(t *testing.T) {
	s := newTestStorage(t)
	writePreset(t, s, "alpha", hostPreset)

	preset, err := s.Get(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", preset.Name)
	require.Len(t, preset.Items, 2)
	assert.Equal(t, "Be helpful.", preset.Items[0].Content())
	assert.True(t, preset.Items[1].IsMarker())

	require.NoError(t, s.Persist(context.Background(), "copy", preset))
	data, err := os.ReadFile(filepath.Join(s.GetBaseDir(), "copy.json"))
	require.NoError(t, err)
	assert.JSONEq(t, hostPreset, string(data))
}

func TestGetErrors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))

	writePreset(t, s, "broken", `{"items": [`)
	_, err = s.Get(ctx, "broken")
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileCorrupted))

	writePreset(t, s, "holes", `{"items": [null, {"identifier": "a", "name": "A"}], "order": []}`)
	_, err = s.Get(ctx, "holes")
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileCorrupted))

	_, err = s.Get(ctx, "../outside")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestPersistIsAtomic(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	preset := &models.Preset{Name: "beta", Items: []*models.Prompt{{Identifier: "p1", Name: "One"}}}
	require.NoError(t, s.Persist(ctx, "beta", preset))

	_, err := os.Stat(filepath.Join(s.GetBaseDir(), "beta.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := s.Get(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "One", loaded.Items[0].Name)
	assert.Empty(t, loaded.Order)
}

func TestPersistRejectsNil(t *testing.T) {
	s := newTestStorage(t)
	err := s.Persist(context.Background(), "beta", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestPersistHonoursCancelledContext(t *testing.T) {
	s := newTestStorage(t)
	writePreset(t, s, "alpha", hostPreset)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Persist(ctx, "beta", &models.Preset{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))

	_, err = s.Get(ctx, "alpha")
	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))

	_, err = s.List(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
}

func TestListUsesCache(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	writePreset(t, s, "alpha", hostPreset)
	writePreset(t, s, "broken", `not json`)
	require.NoError(t, s.Persist(ctx, "beta", &models.Preset{}))

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "alpha", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].Items)
	assert.Equal(t, 1, summaries[0].Scopes)
	assert.Equal(t, "beta", summaries[1].Name)

	_, err = os.Stat(filepath.Join(s.GetBaseDir(), ".cache", "summaries.json"))
	require.NoError(t, err)

	// a fresh instance answers from the cache file
	reopened, err := NewStorage(s.GetBaseDir(), nil)
	require.NoError(t, err)
	again, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, again, 2)
	for i := range summaries {
		assert.Equal(t, summaries[i].Name, again[i].Name)
		assert.Equal(t, summaries[i].Items, again[i].Items)
		assert.True(t, summaries[i].UpdatedAt.Equal(again[i].UpdatedAt))
	}

	require.NoError(t, os.Remove(filepath.Join(s.GetBaseDir(), "beta.json")))
	after, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "alpha", after[0].Name)
}

func TestListMissingDirectory(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	summaries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
