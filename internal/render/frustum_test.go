package render

import (
	"testing"

	"stagecraft/internal/scene"
	"stagecraft/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lookingDownZ is a camera at the origin looking along -Z.
func lookingDownZ() (view, projection rl.Matrix) {
	return rl.MatrixIdentity(), rl.MatrixPerspective(45*rl.Deg2rad, 1, 0.1, 100)
}

func TestFrustumContains(t *testing.T) {
	f := ExtractFrustum(lookingDownZ())

	assert.True(t, f.ContainsPoint(rl.Vector3{Z: -10}))
	assert.False(t, f.ContainsPoint(rl.Vector3{Z: 10}), "behind the camera")
	assert.False(t, f.ContainsPoint(rl.Vector3{Z: -200}), "past the far plane")
	assert.False(t, f.ContainsPoint(rl.Vector3{X: 50, Z: -10}), "off to the side")

	assert.True(t, f.ContainsSphere(rl.Vector3{Z: -200}, 150), "sphere reaching into the view")
	assert.True(t, f.ContainsSphere(rl.Vector3{X: 5, Z: -10}, 2))
}

func TestMaxAxisScale(t *testing.T) {
	m := rl.MatrixMultiply(rl.MatrixScale(1, 3, 2), rl.MatrixRotateY(1))
	assert.InDelta(t, 3, maxAxisScale(m), 1e-5)
}

func TestDrawSceneCullsOffscreenObjects(t *testing.T) {
	r, rec, _ := newTestRenderer(t, map[string]string{"Kuribo": decalFirst}, WithFrustumCulling(true))
	require.NoError(t, r.Initialize())
	r.UpdateMatrices(lookingDownZ())

	ahead := actor("Ahead")
	ahead.Position = rl.Vector3{Z: -10}
	behind := actor("Behind")
	behind.Position = rl.Vector3{Z: 10}
	bigArea := &stage.Area{Common: stage.Common{ID: "area", Name: "Water",
		Position: rl.Vector3{Z: 20}, Scale: rl.Vector3{X: 100, Y: 100, Z: 100}}}
	model := actor("Kuribo")
	model.Position = rl.Vector3{Z: -150}

	sc := scene.New("Test", 1)
	sc.AddAll([]stage.Record{ahead, behind, bigArea, model})
	rec.Reset()
	r.DrawScene(sc)

	draws := rec.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, rec.Cube(), draws[0].Mesh)
	assert.Equal(t, rec.AreaBox(), draws[1].Mesh, "a large area behind the camera still reaches into view")
	assert.Equal(t, 2, r.Culled())
}

func TestDrawSceneWithoutCullingDrawsAll(t *testing.T) {
	r, rec, _ := newTestRenderer(t, nil)
	require.NoError(t, r.Initialize())
	r.UpdateMatrices(lookingDownZ())

	behind := actor("Behind")
	behind.Position = rl.Vector3{Z: 10}
	sc := scene.New("Test", 1)
	sc.Add(behind)

	r.DrawScene(sc)
	assert.Len(t, rec.Draws(), 1)
	assert.Equal(t, 0, r.Culled())
}
