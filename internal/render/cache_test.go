package render

import (
	"errors"
	"testing"

	"stagecraft/internal/assets"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	require.NoError(t, rec.Init())
	c, err := NewCache(rec)
	require.NoError(t, err)
	return c, rec
}

func TestGetOrBuildIsIdempotent(t *testing.T) {
	c, rec := newTestCache(t)

	first, err := c.GetOrBuild("Kuribo", []byte(decalFirst))
	require.NoError(t, err)
	second, err := c.GetOrBuild("Kuribo", []byte(decalFirst))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Builds())
	assert.Equal(t, 2, rec.Count("UploadMesh"), "meshes uploaded once")
	assert.Equal(t, 1, c.Len())
}

func TestGetOrBuildFuncLoadsOnlyOnce(t *testing.T) {
	c, _ := newTestCache(t)

	loads := 0
	load := func() ([]byte, error) {
		loads++
		return []byte(decalFirst), nil
	}
	for i := 0; i < 5; i++ {
		_, err := c.GetOrBuildFunc("Kuribo", load)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads)
}

func TestBuildConvertsMaterials(t *testing.T) {
	c, rec := newTestCache(t)

	asset, err := c.GetOrBuild("Kuribo", []byte(decalFirst))
	require.NoError(t, err)
	require.Len(t, asset.Parts, 2)
	assert.Equal(t, "Kuribo", asset.Type)

	decal := asset.Parts[0].Material
	assert.Equal(t, "decal", decal.Name)
	assert.Equal(t, 1, decal.Layer)
	assert.Equal(t, CullNone, decal.Cull)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, decal.Color, "default color")
	require.NotNil(t, decal.Blend)
	assert.Equal(t, GLFuncAdd, decal.Blend.EquationRGB)
	assert.Equal(t, GLOneMinusSrcAlpha, decal.Blend.DstRGB)

	body := asset.Parts[1].Material
	assert.Equal(t, CullBack, body.Cull)
	assert.Nil(t, body.Blend)
	assert.Equal(t, rec.Program(ProgramModel), body.Program)

	// the decal mesh had no normals
	data, ok := rec.Mesh(asset.Parts[0].Mesh)
	require.True(t, ok)
	assert.Len(t, data.Normals, 9)
}

func TestBuildCustomShaderAndBlendDefaults(t *testing.T) {
	c, rec := newTestCache(t)
	model := `{
		"meshes": [{"vertices": [0,0,0, 1,0,0, 0,1,0], "material": 0}],
		"materials": [{"name": "glass", "shader": "water", "layer": 2, "cull": "front",
		               "blend": {"srcRgb": "gl_constant_alpha"}}]
	}`

	asset, err := c.GetOrBuild("Pond", []byte(model))
	require.NoError(t, err)

	mat := asset.Parts[0].Material
	assert.Equal(t, rec.Program("water"), mat.Program)
	assert.Equal(t, CullFront, mat.Cull)
	assert.Equal(t, GLConstantAlpha, mat.Blend.SrcRGB)
	assert.Equal(t, GLOneMinusSrcAlpha, mat.Blend.DstRGB)
	assert.Equal(t, GLOne, mat.Blend.SrcAlpha)
	assert.Equal(t, GLFuncAdd, mat.Blend.EquationAlpha)
	assert.True(t, isConstantFactor(mat.Blend.SrcRGB))
}

func TestBuildFailuresAreCached(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"meshes": [`,
		"empty":          `{"meshes": []}`,
		"unknown factor": `{"meshes": [{"vertices": [0,0,0, 1,0,0, 0,1,0], "material": 0}], "materials": [{"blend": {"srcRgb": "SOMETIMES"}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestCache(t)

			asset, err := c.GetOrBuild("Bad", []byte(body))
			assert.Nil(t, asset)
			assert.ErrorIs(t, err, ErrNoModel)
			assert.True(t, c.Failed("Bad"))

			_, err = c.GetOrBuild("Bad", []byte(decalFirst))
			assert.ErrorIs(t, err, ErrNoModel)
			assert.Equal(t, 1, c.Builds())
		})
	}
}

func TestLoadErrorIsWrapped(t *testing.T) {
	c, _ := newTestCache(t)
	missing := errors.New("file gone")

	_, err := c.GetOrBuildFunc("Gone", func() ([]byte, error) { return nil, missing })
	assert.ErrorIs(t, err, ErrNoModel)
	assert.ErrorIs(t, err, missing)
}

func TestMalformedModelWrapsAssetError(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.GetOrBuild("Bad", []byte(`{"meshes": []}`))
	assert.ErrorIs(t, err, assets.ErrMalformed)
}

func TestUploadFailureReleasesPartialAsset(t *testing.T) {
	c, rec := newTestCache(t)
	rec.FailUpload = 2

	_, err := c.GetOrBuild("Kuribo", []byte(decalFirst))
	require.ErrorIs(t, err, ErrNoModel)
	assert.Equal(t, 0, rec.Live(), "first mesh released")
	assert.Equal(t, 1, rec.Count("ReleaseMesh"))
}

func TestResetReleasesMeshes(t *testing.T) {
	c, rec := newTestCache(t)
	_, err := c.GetOrBuild("A", []byte(decalFirst))
	require.NoError(t, err)
	_, err = c.GetOrBuild("B", []byte(decalFirst))
	require.NoError(t, err)
	require.Equal(t, 4, rec.Live())

	c.Reset("A")
	assert.Equal(t, 2, rec.Live())
	assert.Equal(t, 1, c.Len())

	c.Reset("Unknown")
	c.ResetAll()
	assert.Equal(t, 0, rec.Live())
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrBuild("A", []byte(decalFirst))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Builds())
}

func TestComputeNormals(t *testing.T) {
	// counter-clockwise triangle in the XY plane faces +Z
	n := computeNormals([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, nil)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 0, n[i*3], 1e-6)
		assert.InDelta(t, 0, n[i*3+1], 1e-6)
		assert.InDelta(t, 1, n[i*3+2], 1e-6)
	}

	// degenerate geometry points up
	n = computeNormals([]float32{0, 0, 0, 0, 0, 0, 0, 0, 0}, []uint16{0, 1, 2})
	assert.Equal(t, float32(1), n[1])
}

func TestPickingColorRoundTrip(t *testing.T) {
	for _, id := range []uint32{0, 1, 255, 256, 70000, MaxPickingID} {
		c := PickingColor(id)
		assert.Equal(t, uint8(255), c.A)
		assert.Equal(t, id, PickingIDFromColor(c))
	}
	assert.Equal(t, [4]float32{1, 0, 0, 1}, PickingVec4(255))
	assert.Equal(t, rl.NewColor(0, 0, 0, 255), PickingColor(0))
}

func TestBoxMeshBounds(t *testing.T) {
	d := boxMesh(0)
	require.Len(t, d.Vertices, 24*3)
	require.Len(t, d.Indices, 36)
	for i := 1; i < len(d.Vertices); i += 3 {
		assert.GreaterOrEqual(t, d.Vertices[i], float32(0))
		assert.LessOrEqual(t, d.Vertices[i], float32(1))
	}
}
