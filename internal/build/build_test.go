package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"gamecfg/internal/config"
	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
	"gamecfg/internal/data/stamp"
	"gamecfg/internal/data/validate"
	"gamecfg/internal/persistence/indexdb"
	"gamecfg/internal/persistence/journal"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const swordItems = `[{"id":"sword1","name":"Sword","type":"Weapon","bonuses":{"atk":3},"value":10}]`

const swordArtifact = `{
  "config_version": "0.1",
  "items": [
    {
      "id": "sword1",
      "name": "Sword",
      "type": "Weapon",
      "bonuses": {
        "atk": 3
      },
      "value": 10
    }
  ]
}
`

type fakeIndex struct {
	mu   sync.Mutex
	rows []indexdb.ArtifactRow
	err  error
}

func (f *fakeIndex) UpsertArtifact(_ context.Context, r indexdb.ArtifactRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, r)
	return f.err
}

type fakeJournal struct {
	entries []journal.Entry
	err     error
}

func (f *fakeJournal) Append(e journal.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

type fakePublisher struct {
	keys []string
}

func (f *fakePublisher) Publish(_ context.Context, version, name string, body []byte) error {
	f.keys = append(f.keys, version+"/"+name)
	return nil
}

func layout(t *testing.T, files map[string]string) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default(root)
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, name), []byte(body), 0o644))
	}
	return cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "%s should not exist (err=%v)", path, err)
}

func TestBuildItems_EndToEnd(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": swordItems})
	b := New(cfg, zaptest.NewLogger(t))

	res, err := b.BuildItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stamp.KindItems, res.Kind)
	assert.Equal(t, "0.1", res.Version)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, cfg.ItemsOutput(), res.Path)
	assert.Equal(t, swordArtifact, readFile(t, cfg.ItemsOutput()))
}

func TestBuildItems_YAMLSource(t *testing.T) {
	cfg := layout(t, map[string]string{"items.yaml": `
- id: sword1
  name: Sword
  type: Weapon
  bonuses: {atk: 3}
  value: 10
`})
	_, err := New(cfg, nil).BuildItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, swordArtifact, readFile(t, cfg.ItemsOutput()))
}

func TestBuildItems_AppliesDefaults(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": `[{"id":"p","name":"Potion","type":"Consumable"}]`})
	_, err := New(cfg, nil).BuildItems(context.Background())
	require.NoError(t, err)
	want := `{
  "config_version": "0.1",
  "items": [
    {
      "id": "p",
      "name": "Potion",
      "type": "Consumable",
      "bonuses": {},
      "value": 0
    }
  ]
}
`
	assert.Equal(t, want, readFile(t, cfg.ItemsOutput()))
}

func TestBuildItems_Idempotent(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": swordItems})
	b := New(cfg, nil)

	first, err := b.BuildItems(context.Background())
	require.NoError(t, err)
	firstBytes := readFile(t, cfg.ItemsOutput())

	second, err := b.BuildItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, firstBytes, readFile(t, cfg.ItemsOutput()))
	assert.Equal(t, first.Digest, second.Digest)
	assert.NotEqual(t, first.BuildID, second.BuildID)
}

func TestBuildItems_RejectsWithoutWriting(t *testing.T) {
	cases := []struct {
		name  string
		items string
		check func(t *testing.T, err error)
	}{
		{
			name:  "not a list",
			items: `{"id":"sword1"}`,
			check: func(t *testing.T, err error) {
				var se *records.StructuralError
				assert.True(t, errors.As(err, &se))
			},
		},
		{
			name:  "missing id",
			items: `[{"name":"Sword","type":"Weapon"}]`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, validate.ErrMissingID))
			},
		},
		{
			name:  "duplicate id",
			items: `[{"id":"a","name":"A","type":"Weapon"},{"id":"a","name":"B","type":"Armor"}]`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, validate.ErrDuplicateID))
				var verr *validate.Error
				require.True(t, errors.As(err, &verr))
				require.Len(t, verr.Diagnostics, 1)
				assert.Equal(t, 1, verr.Diagnostics[0].Index)
			},
		},
		{
			name:  "unknown type",
			items: `[{"id":"s","name":"Shield","type":"Shield"}]`,
			check: func(t *testing.T, err error) {
				var verr *validate.Error
				assert.True(t, errors.As(err, &verr))
			},
		},
		{
			name:  "description not a string",
			items: `[{"id":"a","name":"A","type":"Weapon","description":42}]`,
			check: func(t *testing.T, err error) {
				var verr *validate.Error
				require.True(t, errors.As(err, &verr))
				require.Len(t, verr.Diagnostics, 1)
				assert.Equal(t, validate.RuleDescription, verr.Diagnostics[0].Rule)
			},
		},
		{
			name:  "malformed",
			items: `[{"id":`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, loader.ErrParse))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := layout(t, map[string]string{"items.json": tc.items})
			idx := &fakeIndex{}
			jr := &fakeJournal{}
			_, err := New(cfg, nil, WithIndex(idx), WithJournal(jr)).BuildItems(context.Background())
			require.Error(t, err)
			tc.check(t, err)
			assertMissing(t, cfg.ItemsOutput())
			assert.Empty(t, idx.rows)
			assert.Empty(t, jr.entries)
		})
	}
}

func TestBuildItems_FailureKeepsPreviousArtifact(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": swordItems})
	b := New(cfg, nil)
	_, err := b.BuildItems(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(cfg.ItemsPath(), []byte(`[{"id":"x","name":"X","type":"Weapon","value":-1}]`), 0o644))
	_, err = b.BuildItems(context.Background())
	require.Error(t, err)
	assert.Equal(t, swordArtifact, readFile(t, cfg.ItemsOutput()))
}

func TestBuildItems_MissingSource(t *testing.T) {
	cfg := layout(t, nil)
	_, err := New(cfg, nil).BuildItems(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBuildEngineSettings(t *testing.T) {
	cfg := layout(t, map[string]string{"config.yaml": "player_speed: 5.0\nworld_seed: 7\n"})
	res, err := New(cfg, nil).BuildEngineSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stamp.KindSettings, res.Kind)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "{\n  \"player_speed\": 5.0,\n  \"world_seed\": 7,\n  \"config_version\": \"0.1\"\n}\n",
		readFile(t, cfg.SettingsOutput()))
}

func TestBuildEngineSettings_NotAMapping(t *testing.T) {
	cfg := layout(t, map[string]string{"config.json": `[1, 2, 3]`})
	_, err := New(cfg, nil).BuildEngineSettings(context.Background())
	var se *records.StructuralError
	require.True(t, errors.As(err, &se))
	assertMissing(t, cfg.SettingsOutput())
}

func TestBuildEngineSettings_UnsupportedSource(t *testing.T) {
	cfg := layout(t, nil)
	cfg.SettingsSource = filepath.Join(cfg.DataDir, "config.toml")
	require.NoError(t, os.WriteFile(cfg.SettingsSource, []byte("a = 1"), 0o644))
	_, err := New(cfg, nil).BuildEngineSettings(context.Background())
	assert.True(t, errors.Is(err, loader.ErrUnsupportedFormat))
}

func TestBuildAll_WritesNothingWhenItemsFail(t *testing.T) {
	cfg := layout(t, map[string]string{
		"config.json": `{"player_speed": 5.0}`,
		"items.json":  `[{"id":"a"},{"id":"a"}]`,
	})
	_, err := New(cfg, nil).BuildAll(context.Background())
	require.Error(t, err)
	assertMissing(t, cfg.SettingsOutput())
	assertMissing(t, cfg.ItemsOutput())
}

func TestBuildAll_RecordsIndexAndJournal(t *testing.T) {
	cfg := layout(t, map[string]string{
		"config.json": `{"player_speed": 5.0}`,
		"items.json":  swordItems,
	})
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	idx := &fakeIndex{}
	jr := &fakeJournal{}
	pub := &fakePublisher{}
	b := New(cfg, nil,
		WithIndex(idx),
		WithJournal(jr),
		WithPublisher(pub),
		WithClock(func() time.Time { return at }),
	)
	b.newID = func() string { return "build-1" }

	results, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, stamp.KindSettings, results[0].Kind)
	assert.Equal(t, stamp.KindItems, results[1].Kind)
	assert.Equal(t, results[0].BuildID, results[1].BuildID)

	require.Len(t, idx.rows, 2)
	assert.Equal(t, "items", idx.rows[1].Name)
	assert.Equal(t, swordArtifact, string(idx.rows[1].JSON))
	assert.Equal(t, results[1].Digest, idx.rows[1].Digest)

	require.Len(t, jr.entries, 2)
	assert.Equal(t, journal.Entry{
		BuildID:  "build-1",
		Artifact: "engine_settings",
		Version:  "0.1",
		Source:   cfg.SettingsPath(),
		Path:     cfg.SettingsOutput(),
		Digest:   results[0].Digest,
		Count:    1,
		BuiltAt:  at,
	}, jr.entries[0])

	assert.Equal(t, []string{"0.1/engine_settings.json", "0.1/items.json"}, pub.keys)
}

func TestBuild_RecordFailuresAreNotFatal(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": swordItems})
	b := New(cfg, nil,
		WithIndex(&fakeIndex{err: errors.New("db locked")}),
		WithJournal(&fakeJournal{err: errors.New("disk full")}),
	)
	_, err := b.BuildItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, swordArtifact, readFile(t, cfg.ItemsOutput()))
}

func TestBuild_WithVersion(t *testing.T) {
	cfg := layout(t, map[string]string{"config.json": `{}`})
	res, err := New(cfg, nil, WithVersion("2.0")).BuildEngineSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0", res.Version)
	assert.Equal(t, "{\n  \"config_version\": \"2.0\"\n}\n", readFile(t, cfg.SettingsOutput()))
}

func TestBuild_CanceledContext(t *testing.T) {
	cfg := layout(t, map[string]string{"items.json": swordItems})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, nil).BuildItems(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assertMissing(t, cfg.ItemsOutput())
}
