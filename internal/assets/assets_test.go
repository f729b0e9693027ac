package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleModel = `{
	"meshes": [
		{"vertices": [0,0,0, 1,0,0, 0,1,0], "indices": [0,1,2], "material": 0},
		{"vertices": [0,0,1, 1,0,1, 0,1,1], "material": 1}
	],
	"materials": [
		{"name": "body", "layer": 0},
		{"name": "decal", "layer": 1, "cull": "none",
		 "blend": {"color": [0,0,0,0], "equationRgb": "FUNC_ADD", "equationAlpha": "FUNC_ADD",
		           "srcRgb": "SRC_ALPHA", "dstRgb": "ONE_MINUS_SRC_ALPHA", "srcAlpha": "ONE", "dstAlpha": "ZERO"}}
	]
}`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(triangleModel))
	require.NoError(t, err)

	require.Len(t, m.Meshes, 2)
	assert.Equal(t, 3, m.Meshes[0].VertexCount())
	assert.Equal(t, 1, m.Materials[1].Layer)
	assert.Equal(t, "none", m.Materials[1].Cull)
	require.NotNil(t, m.Materials[1].Blend)
	assert.Equal(t, "SRC_ALPHA", m.Materials[1].Blend.SrcRGB)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"no meshes":       `{"meshes": []}`,
		"short vertices":  `{"meshes": [{"vertices": [0,0], "material": 0}], "materials": [{"layer": 0}]}`,
		"index range":     `{"meshes": [{"vertices": [0,0,0], "indices": [0,0,4], "material": 0}], "materials": [{"layer": 0}]}`,
		"material range":  `{"meshes": [{"vertices": [0,0,0], "material": 2}], "materials": [{"layer": 0}]}`,
		"layer range":     `{"meshes": [{"vertices": [0,0,0], "material": 0}], "materials": [{"layer": 3}]}`,
		"cull mode":       `{"meshes": [{"vertices": [0,0,0], "material": 0}], "materials": [{"cull": "sideways"}]}`,
		"normals":         `{"meshes": [{"vertices": [0,0,0], "normals": [0,1], "material": 0}], "materials": [{}]}`,
		"partial indices": `{"meshes": [{"vertices": [0,0,0], "indices": [0], "material": 0}], "materials": [{}]}`,
	}
	for name, body := range cases {
		_, err := Decode([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func writeModels(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n+ModelExt), []byte(triangleModel), 0644))
	}
	return dir
}

func TestRawMemoizes(t *testing.T) {
	dir := writeModels(t, "Kuribo")
	lib := NewLibrary(dir, 2)

	first, err := lib.Raw("Kuribo")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "Kuribo"+ModelExt)))
	second, err := lib.Raw("Kuribo")
	require.NoError(t, err, "second read served from the slot")
	assert.Equal(t, first, second)
}

func TestRawCachesFailure(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(dir, 1)

	_, err := lib.Raw("Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Missing"+ModelExt), []byte(triangleModel), 0644))
	_, err = lib.Raw("Missing")
	assert.Error(t, err, "failure stays cached")

	lib.Forget("Missing")
	_, err = lib.Raw("Missing")
	assert.NoError(t, err, "forget allows a re-read")
}

func TestRawRejectsNamesOutsideModelDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret"+ModelExt), []byte(triangleModel), 0644))
	lib := NewLibrary(dir, 1)

	for _, name := range []string{"", "../secret", "..", "sub/Kuribo", `sub\Kuribo`, "/etc/passwd", "a..b"} {
		_, err := lib.Raw(name)
		assert.ErrorIs(t, err, ErrInvalidActorType, "name %q", name)
	}
	assert.True(t, ValidActorType("Kuribo"))
	assert.True(t, ValidActorType("Kuribo.Big"))
}

func TestPublishOverridesSlot(t *testing.T) {
	lib := NewLibrary(t.TempDir(), 1)
	lib.Publish("Generated", []byte("{}"))

	data, err := lib.Raw("Generated")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)
	assert.True(t, lib.Loaded("Generated"))

	lib.ForgetAll()
	assert.False(t, lib.Loaded("Generated"))
}

func TestPrefetch(t *testing.T) {
	dir := writeModels(t, "A", "B", "C")
	lib := NewLibrary(dir, 3)

	var mu sync.Mutex
	var lines []string
	res := lib.Prefetch([]string{"A", "B", "A", "", "C", "Missing"}, func(s string) {
		mu.Lock()
		lines = append(lines, s)
		mu.Unlock()
	})

	assert.Equal(t, 4, res.Requested)
	assert.Equal(t, 3, res.Loaded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int64(3*len(triangleModel)), res.Bytes)
	for _, name := range []string{"A", "B", "C", "Missing"} {
		assert.True(t, lib.Loaded(name), name)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 4)
	var sawFinal bool
	for _, l := range lines {
		if strings.HasPrefix(l, "Fetched 4/4 models") {
			sawFinal = true
		}
	}
	assert.True(t, sawFinal, "lines: %v", lines)

	again := lib.Prefetch([]string{"A", "B"}, nil)
	assert.Equal(t, 0, again.Requested, "cached types are skipped")
}

func TestConcurrentRaw(t *testing.T) {
	lib := NewLibrary(writeModels(t, "Shared"), 1)

	var wg sync.WaitGroup
	results := make([][]byte, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = lib.Raw("Shared")
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
