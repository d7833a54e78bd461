package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

func newTestStore(t *testing.T, initial string) (*Store, *FileStorage) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plugin", "data.json")
	if initial != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(initial), 0644))
	}

	storage := NewFileStorage(path)
	store := NewStore(storage)
	t.Cleanup(func() {
		store.Close(context.Background())
	})

	require.NoError(t, store.Load(context.Background()))
	return store, storage
}

func readStored(t *testing.T, storage *FileStorage) *Settings {
	t.Helper()

	data, err := storage.Read(context.Background())
	require.NoError(t, err)
	got, migrated, err := Decode(data)
	require.NoError(t, err)
	require.False(t, migrated, "stored settings must already be current")
	return got
}

func ptr[T any](v T) *T {
	return &v
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name        string
		initial     string
		want        rules.RuleSet
		wantWritten bool
	}{
		{
			name:    "first run has no rules",
			initial: "",
			want:    rules.RuleSet{},
		},
		{
			name:    "current settings are loaded",
			initial: `{"schemaVersion":1,"rules":[{"path":"Daily","type":"folder"}]}`,
			want:    rules.RuleSet{{Path: "Daily", Type: rules.RuleTypeFolder}},
		},
		{
			name:    "malformed settings fall back to defaults",
			initial: `{"rules": 42}`,
			want:    rules.RuleSet{},
		},
		{
			name:    "legacy settings are migrated and saved",
			initial: `{"readModeFiles":["a.md","b/c.md"]}`,
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "b/c.md", Type: rules.RuleTypeFile},
			},
			wantWritten: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := newTestStore(t, tt.initial)
			assert.Equal(t, tt.want, store.Rules())

			if tt.wantWritten {
				assert.Equal(t, tt.want, readStored(t, storage).Rules)
			}
		})
	}
}

func TestStore_Load_ReadError(t *testing.T) {
	storage := new(MockStorage)
	storage.On("Read", mock.Anything).Return(nil, errors.New("permission denied"))

	store := NewStore(storage)
	defer store.Close(context.Background())

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, rules.RuleSet{}, store.Rules())
}

func TestStore_Migrate(t *testing.T) {
	store, storage := newTestStore(t, `{"readModeFiles":["a.md","b/c.md"]}`)
	want := rules.RuleSet{
		{Path: "a.md", Type: rules.RuleTypeFile},
		{Path: "b/c.md", Type: rules.RuleTypeFile},
	}

	// Load already migrated, so running Migrate again must not convert twice.
	migrated, err := store.Migrate(context.Background())
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, want, store.Rules())

	migrated, err = store.Migrate(context.Background())
	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, want, store.Rules())
	assert.Equal(t, want, readStored(t, storage).Rules)
}

func TestStore_Migrate_LegacyWrittenAfterLoad(t *testing.T) {
	store, storage := newTestStore(t, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(storage.Path()), 0755))
	require.NoError(t, os.WriteFile(storage.Path(), []byte(`{"readModeFiles":["x.md"]}`), 0644))

	migrated, err := store.Migrate(context.Background())
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.Equal(t, rules.RuleSet{{Path: "x.md", Type: rules.RuleTypeFile}}, store.Rules())

	data, err := os.ReadFile(storage.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "readModeFiles")
}

func TestStore_Migrate_NoOp(t *testing.T) {
	tests := []struct {
		name    string
		initial string
	}{
		{name: "neither shape", initial: `{}`},
		{name: "both shapes", initial: `{"readModeFiles":["old.md"],"rules":[]}`},
		{name: "current shape", initial: `{"schemaVersion":1,"rules":[]}`},
		{name: "malformed", initial: `{broken`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := newTestStore(t, tt.initial)

			migrated, err := store.Migrate(context.Background())
			require.NoError(t, err)
			assert.False(t, migrated)

			data, err := os.ReadFile(storage.Path())
			require.NoError(t, err)
			assert.Equal(t, tt.initial, string(data), "no-op migration must not rewrite storage")
		})
	}
}

func TestStore_AddRule(t *testing.T) {
	store, storage := newTestStore(t, "")

	for i, rule := range []rules.Rule{
		{Path: "Daily", Type: rules.RuleTypeFolder},
		{Path: "Inbox/todo.md", Type: rules.RuleTypeFile},
		{Path: "Daily", Type: rules.RuleTypeFolder},
	} {
		index, err := store.AddRule(rule.Path, rule.Type)
		require.NoError(t, err)
		assert.Equal(t, i, index)
	}
	require.NoError(t, store.Flush(context.Background()))

	want := rules.RuleSet{
		{Path: "Daily", Type: rules.RuleTypeFolder},
		{Path: "Inbox/todo.md", Type: rules.RuleTypeFile},
		{Path: "Daily", Type: rules.RuleTypeFolder},
	}
	assert.Equal(t, want, store.Rules())
	assert.Equal(t, want, readStored(t, storage).Rules)
}

func TestStore_Rule(t *testing.T) {
	store, _ := newTestStore(t, `{"schemaVersion":1,"rules":[{"path":"a.md","type":"file"}]}`)

	tests := []struct {
		name    string
		index   int
		want    rules.Rule
		wantErr bool
	}{
		{
			name:  "existing rule",
			index: 0,
			want:  rules.Rule{Path: "a.md", Type: rules.RuleTypeFile},
		},
		{
			name:    "index past the end",
			index:   1,
			wantErr: true,
		},
		{
			name:    "negative index",
			index:   -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Rule(tt.index)
			if tt.wantErr {
				assert.ErrorIs(t, err, rules.ErrRuleNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_NewerSchemaIsReadOnly(t *testing.T) {
	newer := `{"schemaVersion":2,"rules":[{"path":"Daily","type":"folder","case":"insensitive"}]}`
	store, storage := newTestStore(t, newer)

	assert.Empty(t, store.Rules())

	_, err := store.AddRule("a.md", rules.RuleTypeFile)
	assert.ErrorIs(t, err, ErrSettingsReadOnly)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = store.AddFile("a.md")
	assert.ErrorIs(t, err, ErrSettingsReadOnly)
	_, err = store.AddParentFolder("Daily/a.md")
	assert.ErrorIs(t, err, ErrSettingsReadOnly)
	assert.ErrorIs(t, store.UpdateRule(0, RuleUpdate{Path: ptr("x")}), ErrSettingsReadOnly)
	assert.ErrorIs(t, store.RemoveRule(0), ErrSettingsReadOnly)

	require.NoError(t, store.Flush(context.Background()))
	assert.Empty(t, store.Rules())

	data, err := os.ReadFile(storage.Path())
	require.NoError(t, err)
	assert.Equal(t, newer, string(data), "settings from a newer version must not be overwritten")

	// Once storage holds a readable schema again, the store is writable.
	require.NoError(t, os.WriteFile(storage.Path(), []byte(`{"schemaVersion":1,"rules":[]}`), 0644))
	require.NoError(t, store.Reload(context.Background()))
	_, err = store.AddRule("a.md", rules.RuleTypeFile)
	require.NoError(t, err)
}

func TestStore_QuickActions(t *testing.T) {
	store, _ := newTestStore(t, "")

	store.AddFile("Daily/2024-01-01.md")
	store.AddParentFolder("Daily/2024-01-01.md")
	store.AddParentFolder("top.md")

	assert.Equal(t, rules.RuleSet{
		{Path: "Daily/2024-01-01.md", Type: rules.RuleTypeFile},
		{Path: "Daily", Type: rules.RuleTypeFolder},
		{Path: "", Type: rules.RuleTypeFolder},
	}, store.Rules())
}

func TestStore_UpdateRule(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		update  RuleUpdate
		want    rules.RuleSet
		wantErr bool
	}{
		{
			name:   "updates path in place",
			index:  1,
			update: RuleUpdate{Path: ptr("Archive")},
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "Archive", Type: rules.RuleTypeFolder},
			},
		},
		{
			name:   "updates type in place",
			index:  0,
			update: RuleUpdate{Type: ptr(rules.RuleTypeFolder)},
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFolder},
				{Path: "Daily", Type: rules.RuleTypeFolder},
			},
		},
		{
			name:   "updates both",
			index:  0,
			update: RuleUpdate{Path: ptr("Notes"), Type: ptr(rules.RuleTypeFolder)},
			want: rules.RuleSet{
				{Path: "Notes", Type: rules.RuleTypeFolder},
				{Path: "Daily", Type: rules.RuleTypeFolder},
			},
		},
		{
			name:   "empty update keeps rule",
			index:  0,
			update: RuleUpdate{},
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "Daily", Type: rules.RuleTypeFolder},
			},
		},
		{
			name:    "out of range index is a no-op",
			index:   2,
			update:  RuleUpdate{Path: ptr("x")},
			wantErr: true,
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "Daily", Type: rules.RuleTypeFolder},
			},
		},
		{
			name:    "negative index is a no-op",
			index:   -1,
			update:  RuleUpdate{Path: ptr("x")},
			wantErr: true,
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "Daily", Type: rules.RuleTypeFolder},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := newTestStore(t, `{"schemaVersion":1,"rules":[{"path":"a.md","type":"file"},{"path":"Daily","type":"folder"}]}`)

			err := store.UpdateRule(tt.index, tt.update)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, rules.ErrRuleNotFound)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, store.Flush(context.Background()))

			assert.Equal(t, tt.want, store.Rules())
			assert.Equal(t, tt.want, readStored(t, storage).Rules)
		})
	}
}

func TestStore_RemoveRule(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		want    rules.RuleSet
		wantErr bool
	}{
		{
			name:  "removes first and shifts",
			index: 0,
			want:  rules.RuleSet{{Path: "b.md", Type: rules.RuleTypeFile}},
		},
		{
			name:  "removes last",
			index: 1,
			want:  rules.RuleSet{{Path: "a.md", Type: rules.RuleTypeFile}},
		},
		{
			name:    "out of range index leaves list unchanged",
			index:   99,
			wantErr: true,
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "b.md", Type: rules.RuleTypeFile},
			},
		},
		{
			name:    "negative index leaves list unchanged",
			index:   -1,
			wantErr: true,
			want: rules.RuleSet{
				{Path: "a.md", Type: rules.RuleTypeFile},
				{Path: "b.md", Type: rules.RuleTypeFile},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, storage := newTestStore(t, `{"rules":[{"path":"a.md","type":"file"},{"path":"b.md","type":"file"}]}`)

			err := store.RemoveRule(tt.index)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, rules.ErrRuleNotFound)
			} else {
				require.NoError(t, err)
				require.NoError(t, store.Flush(context.Background()))
				assert.Equal(t, tt.want, readStored(t, storage).Rules)
			}

			assert.Equal(t, tt.want, store.Rules())
		})
	}
}

func TestStore_RulesReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t, "")
	store.AddRule("a.md", rules.RuleTypeFile)

	got := store.Rules()
	got[0].Path = "changed.md"

	assert.Equal(t, "a.md", store.Rules()[0].Path)
}

func TestStore_PersistFailure(t *testing.T) {
	storage := new(MockStorage)
	storage.On("Read", mock.Anything).Return([]byte(`{"rules":[]}`), nil)
	storage.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	storage.On("Write", mock.Anything, mock.Anything).Return(nil)

	store := NewStore(storage)
	defer store.Close(context.Background())
	require.NoError(t, store.Load(context.Background()))

	store.AddRule("a.md", rules.RuleTypeFile)
	err := store.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// The in-memory rules stay authoritative for the session.
	assert.Equal(t, rules.RuleSet{{Path: "a.md", Type: rules.RuleTypeFile}}, store.Rules())

	store.AddRule("b.md", rules.RuleTypeFile)
	require.NoError(t, store.Flush(context.Background()))
	storage.AssertNumberOfCalls(t, "Write", 2)
}

func TestStore_Reload(t *testing.T) {
	store, storage := newTestStore(t, "")
	store.AddRule("a.md", rules.RuleTypeFile)

	other := NewStore(NewFileStorage(storage.Path()))
	defer other.Close(context.Background())
	require.NoError(t, store.Flush(context.Background()))
	require.NoError(t, other.Load(context.Background()))
	other.AddRule("Daily", rules.RuleTypeFolder)
	require.NoError(t, other.Flush(context.Background()))

	require.NoError(t, store.Reload(context.Background()))
	assert.Equal(t, rules.RuleSet{
		{Path: "a.md", Type: rules.RuleTypeFile},
		{Path: "Daily", Type: rules.RuleTypeFolder},
	}, store.Rules())
}

func TestStore_Close(t *testing.T) {
	store, storage := newTestStore(t, "")
	for i := 0; i < 20; i++ {
		store.AddRule("a.md", rules.RuleTypeFile)
	}

	require.NoError(t, store.Close(context.Background()))
	assert.Len(t, readStored(t, storage).Rules, 20)

	// Closing twice is safe.
	require.NoError(t, store.Close(context.Background()))
}
