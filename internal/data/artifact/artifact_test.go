package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
	"gamecfg/internal/data/stamp"
	"gamecfg/internal/data/value"
)

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

func itemsArtifact(t *testing.T, src string) stamp.Artifact {
	t.Helper()
	doc, err := loader.Parse([]byte(src), loader.FormatJSON)
	require.NoError(t, err)
	raw, err := records.ItemBatch(doc)
	require.NoError(t, err)
	recs, err := records.DecodeItems(raw)
	require.NoError(t, err)
	return stamp.Items(recs, stamp.Version)
}

func settingsArtifact(t *testing.T, src string) stamp.Artifact {
	t.Helper()
	doc, err := loader.Parse([]byte(src), loader.FormatJSON)
	require.NoError(t, err)
	s, err := records.DecodeSettings(doc)
	require.NoError(t, err)
	return stamp.Settings(s, stamp.Version)
}

func TestEncode_ItemsCanonicalForm(t *testing.T) {
	a := itemsArtifact(t, `[{"id":"sword1","name":"Sword","type":"Weapon","bonuses":{"atk":3},"value":10}]`)
	b, err := Encode(a)
	require.NoError(t, err)
	assert.Equal(t, swordArtifact, string(b))
	require.NoError(t, Check(stamp.KindItems, b))
}

func TestEncode_SettingsKeepsLiterals(t *testing.T) {
	b, err := Encode(settingsArtifact(t, `{"player_speed": 5.0}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"player_speed\": 5.0,\n  \"config_version\": \"0.1\"\n}\n", string(b))
	require.NoError(t, Check(stamp.KindSettings, b))
}

func TestEncodeValue_Strings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Épée ⚔", `"Épée ⚔"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\dir`, `"C:\\dir"`},
		{"a\nb\tc", `"a\nb\tc"`},
		{"\x01", `"\u0001"`},
		{"</tag>", `"</tag>"`},
	}
	for _, tc := range cases {
		b, err := EncodeValue(value.String(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.want+"\n", string(b), "input %q", tc.in)
	}
}

func TestEncodeValue_EmptyContainersAndScalars(t *testing.T) {
	m := value.NewMap()
	m.SetString("list", value.List())
	m.SetString("map", value.Mapping(nil))
	m.SetString("null", value.Null())
	m.SetString("yes", value.Bool(true))
	b, err := EncodeValue(value.Mapping(m))
	require.NoError(t, err)
	want := "{\n  \"list\": [],\n  \"map\": {},\n  \"null\": null,\n  \"yes\": true\n}\n"
	assert.Equal(t, want, string(b))
}

func TestEncodeValue_ScalarKeysRenderedAsText(t *testing.T) {
	m := value.NewMap()
	m.Set(value.Int(1), value.String("one"))
	m.Set(value.Bool(true), value.String("yes"))
	b, err := EncodeValue(value.Mapping(m))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"1\": \"one\",\n  \"true\": \"yes\"\n}\n", string(b))

	bad := value.NewMap()
	bad.Set(value.List(value.Int(1)), value.Null())
	_, err = EncodeValue(value.Mapping(bad))
	assert.Error(t, err)
}

func TestEncodeValue_RejectsKeysThatCollideAsText(t *testing.T) {
	doc, err := loader.Parse([]byte("1: a\n\"1\": b\n"), loader.FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, _ := doc.AsMap()
	if m.Len() != 2 {
		t.Fatalf("loaded %d members, want 2 distinct keys", m.Len())
	}
	s, err := records.DecodeSettings(doc)
	if err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if _, err := Encode(stamp.Settings(s, stamp.Version)); err == nil {
		t.Fatalf("Encode accepted keys 1 and \"1\" in one object")
	}
}

func TestEncode_Deterministic(t *testing.T) {
	a := itemsArtifact(t, `[{"id":"a","name":"A","type":"Armor","bonuses":{"z":1,"y":2.25}}]`)
	first, err := Encode(a)
	require.NoError(t, err)
	second, err := Encode(a)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, Digest(first), Digest(second))
	assert.Len(t, Digest(first), 64)
}

func TestWrite_CreatesParentsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Build", "Config", "items.json")

	require.NoError(t, Write(itemsArtifact(t, `[]`), path))
	require.NoError(t, Write(itemsArtifact(t, `[{"id":"sword1","name":"Sword","type":"Weapon","bonuses":{"atk":3},"value":10}]`), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, swordArtifact, string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files left behind")
	assert.Equal(t, "items.json", entries[0].Name())
}

func TestWriteFile_UnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := WriteFile(filepath.Join(blocker, "items.json"), []byte("{}\n"))
	assert.Error(t, err)
}

func TestCheck_RejectsContractViolations(t *testing.T) {
	assert.Error(t, Check(stamp.KindItems, []byte(`{"config_version":"0.1","items":[{"id":"a"}]}`)))
	assert.Error(t, Check(stamp.KindItems, []byte(`{"items":[]}`)))
	assert.Error(t, Check(stamp.KindSettings, []byte(`{"player_speed":5}`)))
	assert.Error(t, Check(stamp.KindSettings, []byte(`not json`)))
	assert.Error(t, Check(stamp.Kind("other"), []byte(`{}`)))
	assert.NoError(t, Check(stamp.KindItems, []byte(`{"config_version":"0.1","items":[]}`)))
}
