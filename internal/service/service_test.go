package service

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/prompt-mover/internal/errors"
	"github.com/dpshade/prompt-mover/internal/models"
	"github.com/dpshade/prompt-mover/internal/notify"
	"github.com/dpshade/prompt-mover/internal/relocate"
)

// memStore keeps presets in memory and records every persist call
type memStore struct {
	presets  map[string]*models.Preset
	persists []string
	failOn   map[string]error
}

func newMemStore(presets ...*models.Preset) *memStore {
	m := &memStore{presets: map[string]*models.Preset{}, failOn: map[string]error{}}
	for _, p := range presets {
		m.presets[p.Name] = p
	}
	return m
}

func (m *memStore) List(ctx context.Context) ([]models.Summary, error) {
	out := []models.Summary{}
	for _, p := range m.presets {
		out = append(out, p.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Get(ctx context.Context, name string) (*models.Preset, error) {
	p, ok := m.presets[name]
	if !ok {
		return nil, errors.NotFoundError(fmt.Sprintf("preset '%s'", name))
	}
	return p.Clone(), nil
}

func (m *memStore) Persist(ctx context.Context, name string, preset *models.Preset) error {
	m.persists = append(m.persists, name)
	if err := m.failOn[name]; err != nil {
		return err
	}
	m.presets[name] = preset.Clone()
	return nil
}

func fixture() *memStore {
	alpha := &models.Preset{
		Name: "alpha",
		Items: []*models.Prompt{
			{Identifier: "p1", Name: "Foo"},
			{Identifier: "p2", Name: "Bar"},
		},
		Order: []*models.OrderScope{
			{Scope: models.GlobalScope, Order: []models.OrderRef{{Identifier: "p1", Enabled: true}, {Identifier: "p2", Enabled: true}}},
		},
	}
	beta := &models.Preset{
		Name:  "beta",
		Items: []*models.Prompt{{Identifier: "p1", Name: "Other"}},
		Order: []*models.OrderScope{
			{Scope: models.GlobalScope, Order: []models.OrderRef{{Identifier: "p1", Enabled: true}}},
		},
	}
	return newMemStore(alpha, beta)
}

func ids(p *models.Preset) []string {
	out := []string{}
	for _, item := range p.Items {
		out = append(out, item.Identifier)
	}
	return out
}

func TestRelocateCopyPersistsTargetOnly(t *testing.T) {
	store := fixture()
	rec := notify.NewRecorder()
	svc := NewService(store, WithNotifier(rec))

	outcome, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "beta", Identifier: "p1",
		Position: relocate.AtSlot(1), Mode: relocate.ModeCopy,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"beta"}, store.persists)
	assert.Equal(t, "p1_1", outcome.Item.Identifier)
	assert.Equal(t, "Foo (1)", outcome.Item.Name)
	assert.True(t, outcome.Renamed)
	assert.Equal(t, models.GlobalScope, outcome.Scope)
	assert.Equal(t, []string{"p1", "p1_1"}, ids(store.presets["beta"]))
	assert.Equal(t, []string{"p1", "p2"}, ids(store.presets["alpha"]))

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Success, last.Severity)
	assert.Equal(t, "Copied 'Foo (1)' to beta as p1_1", last.Message)
}

func TestRelocateMovePersistsTargetThenSource(t *testing.T) {
	store := fixture()
	svc := NewService(store, WithNotifier(notify.NewRecorder()))

	_, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "beta", Identifier: "p2",
		Position: relocate.AtEnd(), Mode: relocate.ModeMove,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"beta", "alpha"}, store.persists)
	assert.Equal(t, []string{"p1"}, ids(store.presets["alpha"]))
	assert.Equal(t, []string{"p1", "p2"}, ids(store.presets["beta"]))
}

func TestRelocateTargetFailureLeavesSourceAlone(t *testing.T) {
	store := fixture()
	store.failOn["beta"] = fmt.Errorf("host responded 500")
	rec := notify.NewRecorder()
	svc := NewService(store, WithNotifier(rec))

	_, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "beta", Identifier: "p2",
		Position: relocate.AtEnd(), Mode: relocate.ModeMove,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodePersistFailure))
	assert.False(t, errors.HasCode(err, errors.ErrCodePartialPersist))
	assert.Equal(t, []string{"beta"}, store.persists)
	assert.Equal(t, []string{"p1", "p2"}, ids(store.presets["alpha"]))

	last, _ := rec.Last()
	assert.Equal(t, notify.Error, last.Severity)
	assert.Equal(t, FailureMessage, last.Message)
}

func TestRelocateSourceFailureIsPartial(t *testing.T) {
	store := fixture()
	store.failOn["alpha"] = fmt.Errorf("host responded 502")
	rec := notify.NewRecorder()
	svc := NewService(store, WithNotifier(rec))

	_, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "beta", Identifier: "p2",
		Position: relocate.AtEnd(), Mode: relocate.ModeMove,
	})
	require.Error(t, err)
	require.True(t, errors.HasCode(err, errors.ErrCodePartialPersist))

	// the prompt is now in both presets until it is removed by hand
	assert.Equal(t, []string{"beta", "alpha"}, store.persists)
	assert.Contains(t, ids(store.presets["beta"]), "p2")
	assert.Contains(t, ids(store.presets["alpha"]), "p2")

	appErr := errors.GetAppError(err)
	assert.Equal(t, "alpha", appErr.Context["source"])
	assert.False(t, appErr.IsRetryable())

	last, _ := rec.Last()
	assert.Equal(t, FailureMessage, last.Message)

	// reconciling with Remove clears the duplicate
	delete(store.failOn, "alpha")
	_, err = svc.Remove(context.Background(), "alpha", "p2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(store.presets["alpha"]))
}

func TestRelocateValidationFailureNotifiesWarning(t *testing.T) {
	store := fixture()
	rec := notify.NewRecorder()
	svc := NewService(store, WithNotifier(rec))

	tests := []struct {
		name string
		op   Operation
		code errors.ErrorCode
	}{
		{"missing prompt", Operation{SourceName: "alpha", TargetName: "beta", Identifier: "p9", Mode: relocate.ModeCopy}, errors.ErrCodeNotFound},
		{"bad slot", Operation{SourceName: "alpha", TargetName: "beta", Identifier: "p1", Position: relocate.AtSlot(5), Mode: relocate.ModeCopy}, errors.ErrCodeInvalidPosition},
		{"same preset move", Operation{SourceName: "alpha", TargetName: "alpha", Identifier: "p1", Mode: relocate.ModeMove}, errors.ErrCodeSameCollectionMove},
		{"missing preset", Operation{SourceName: "alpha", TargetName: "gamma", Identifier: "p1", Mode: relocate.ModeCopy}, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.Reset()
			_, err := svc.Relocate(context.Background(), tt.op)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, notify.Warning, last.Severity)
			assert.Equal(t, FailureMessage, last.Message)
		})
	}
	assert.Empty(t, store.persists)
}

func TestRelocateSameCollectionCopyPersistsOnce(t *testing.T) {
	store := fixture()
	svc := NewService(store, WithNotifier(notify.NewRecorder()))

	_, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "alpha", Identifier: "p1",
		Position: relocate.AfterItem("p1"), Mode: relocate.ModeCopy,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha"}, store.persists)
	view := relocate.ResolveOrder(store.presets["alpha"], "")
	got := make([]string, len(view))
	for i, row := range view {
		got[i] = row.Identifier
	}
	if diff := cmp.Diff([]string{"p1", "p1_1", "p2"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultScope(t *testing.T) {
	store := fixture()
	svc := NewService(store, WithNotifier(notify.NewRecorder()), WithDefaultScope("100001"))
	assert.Equal(t, "100001", svc.DefaultScope())

	outcome, err := svc.Relocate(context.Background(), Operation{
		SourceName: "alpha", TargetName: "beta", Identifier: "p2", Mode: relocate.ModeCopy,
	})
	require.NoError(t, err)
	assert.Equal(t, "100001", outcome.Scope)

	beta := store.presets["beta"]
	require.NotNil(t, beta.Scope("100001"))
	assert.Equal(t, "p2", beta.Scope("100001").Order[0].Identifier)
	// the global scope still gets the reference appended
	assert.Equal(t, 2, len(beta.Scope(models.GlobalScope).Order))
}

func TestReorder(t *testing.T) {
	store := fixture()
	svc := NewService(store, WithNotifier(notify.NewRecorder()))

	updated, err := svc.Reorder(context.Background(), "alpha", "p2", relocate.AtSlot(0), "")
	require.NoError(t, err)
	assert.Equal(t, "p2", updated.Scope(models.GlobalScope).Order[0].Identifier)
	assert.Equal(t, []string{"alpha"}, store.persists)

	_, err = svc.Reorder(context.Background(), "alpha", "p2", relocate.AtSlot(2), "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidPosition))
}

func TestBrowse(t *testing.T) {
	svc := NewService(fixture())
	ctx := context.Background()

	summaries, err := svc.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "alpha", summaries[0].Name)

	preset, err := svc.GetPreset(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", preset.Name)

	view, err := svc.ResolveOrder(ctx, "alpha", "")
	require.NoError(t, err)
	assert.Len(t, view, 2)

	found, err := svc.SearchItems(ctx, "alpha", "bar")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].Identifier)

	all, err := svc.SearchItems(ctx, "alpha", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.SearchItems(ctx, "gamma", "x")
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}
