package persist_test

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pybundle/pkg/persist"
)

// parsedModule mirrors the shape of a cached parse result.
type parsedModule struct {
	Path    string   `json:"path"`
	Lines   int      `json:"lines"`
	Imports []string `json:"imports"`
}

var sampleModule = parsedModule{
	Path:    "models/user.py",
	Lines:   42,
	Imports: []string{"os", "models.base", "dataclasses"},
}

func codecs() []persist.Codec {
	return []persist.Codec{
		persist.NewJSONCodec(),
		persist.NewGobCodec(),
		persist.NewLZ4Codec(persist.NewGobCodec()),
		persist.NewLZ4Codec(persist.NewJSONCodec()),
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, codec := range codecs() {
		t.Run(codec.Extension(), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, sampleModule))

			var decoded parsedModule
			require.NoError(t, codec.Decode(&buf, &decoded))
			assert.Equal(t, sampleModule, decoded)
		})
	}
}

func TestCodec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", persist.NewJSONCodec().Extension())
	assert.Equal(t, ".gob", persist.NewGobCodec().Extension())
	assert.Equal(t, ".gob.lz4", persist.NewLZ4Codec(persist.NewGobCodec()).Extension())
}

func TestJSONCodec_Indent(t *testing.T) {
	t.Parallel()

	var pretty, compact bytes.Buffer

	require.NoError(t, persist.NewJSONCodec().Encode(&pretty, sampleModule))
	require.NoError(t, (&persist.JSONCodec{}).Encode(&compact, sampleModule))

	assert.Contains(t, pretty.String(), "\n  \"path\"")
	assert.Equal(t, 1, strings.Count(compact.String(), "\n"))
}

func TestCodec_Errors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := persist.NewJSONCodec().Encode(&buf, make(chan int))
	require.ErrorContains(t, err, "json encode")

	err = persist.NewGobCodec().Encode(&buf, func() {})
	require.ErrorContains(t, err, "gob encode")

	var decoded parsedModule

	err = persist.NewJSONCodec().Decode(strings.NewReader("{not json"), &decoded)
	require.ErrorContains(t, err, "json decode")

	err = persist.NewGobCodec().Decode(strings.NewReader("not gob"), &decoded)
	require.ErrorContains(t, err, "gob decode")

	err = persist.NewLZ4Codec(persist.NewGobCodec()).Decode(strings.NewReader("not an lz4 frame"), &decoded)
	require.Error(t, err)
}

func TestLZ4Codec_Compresses(t *testing.T) {
	t.Parallel()

	big := sampleModule
	big.Imports = make([]string, 500)

	for i := range big.Imports {
		big.Imports[i] = "package.module.submodule"
	}

	var plain, packed bytes.Buffer

	require.NoError(t, persist.NewGobCodec().Encode(&plain, big))
	require.NoError(t, persist.NewLZ4Codec(persist.NewGobCodec()).Encode(&packed, big))

	assert.Less(t, packed.Len(), plain.Len())
}

func TestSaveLoadState(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "cache", "parse")
	codec := persist.NewLZ4Codec(persist.NewGobCodec())

	require.NoError(t, persist.SaveState(dir, "ab12", codec, sampleModule))
	assert.FileExists(t, filepath.Join(dir, "ab12.gob.lz4"))

	var loaded parsedModule
	require.NoError(t, persist.LoadState(dir, "ab12", codec, &loaded))
	assert.Equal(t, sampleModule, loaded)
}

func TestLoadState_Missing(t *testing.T) {
	t.Parallel()

	var loaded parsedModule

	err := persist.LoadState(t.TempDir(), "missing", persist.NewGobCodec(), &loaded)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadState_Corrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{{"), 0o600))

	var loaded parsedModule

	err := persist.LoadState(dir, "bad", persist.NewJSONCodec(), &loaded)
	require.ErrorContains(t, err, "decode state")
}

func TestSaveState_Failures(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	err := persist.SaveState(file, "entry", persist.NewJSONCodec(), sampleModule)
	require.ErrorContains(t, err, "create state dir")

	dir := t.TempDir()

	err = persist.SaveState(dir, "entry", persist.NewJSONCodec(), make(chan int))
	require.ErrorContains(t, err, "encode state")

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
