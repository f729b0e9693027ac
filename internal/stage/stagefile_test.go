package stage

import (
	"os"
	"path/filepath"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainsStage = `{
	"name": "CapWorldHomeStage",
	"scenario": 1,
	"objects": [
		{"kind": "regular", "id": "obj0", "name": "Kuribo", "position": [1, 2, 3], "rotation": [0, 90, 0], "rail": "rail0"},
		{"kind": "area", "id": "area0", "name": "DeathArea", "scale": [10, 2, 10], "priority": 3},
		{"kind": "cameraArea", "id": "cam0", "name": "CameraArea", "cameraId": 7},
		{"kind": "areaChild", "id": "child0", "name": "WaterArea", "parentId": "obj0"},
		{"kind": "camera", "id": "c0", "name": "StartCamera", "target": [0, 0, 1]},
		{"id": "obj1", "name": "Coin", "modelName": "CoinBig", "args": {"Count": 5}, "switches": {"SwitchAppear": 2}}
	]
}`

func TestParseStage(t *testing.T) {
	st, err := Parse([]byte(plainsStage))
	require.NoError(t, err)

	assert.Equal(t, "CapWorldHomeStage", st.Name)
	assert.Equal(t, 1, st.Scenario)
	require.Len(t, st.Records, 6)

	kinds := make([]Kind, len(st.Records))
	for i, r := range st.Records {
		kinds[i] = r.Kind()
	}
	assert.Equal(t, []Kind{KindRegular, KindArea, KindCameraArea, KindAreaChild, KindCamera, KindRegular}, kinds)

	kuribo := st.Records[0].(*Regular)
	assert.Equal(t, rl.Vector3{X: 1, Y: 2, Z: 3}, kuribo.Position)
	assert.Equal(t, rl.Vector3{X: 0, Y: 90, Z: 0}, kuribo.Rotation)
	assert.Equal(t, rl.Vector3{X: 1, Y: 1, Z: 1}, kuribo.Scale, "zero scale defaults to one")
	assert.Equal(t, "rail0", kuribo.Rail)
	assert.NotNil(t, kuribo.Args)

	assert.Equal(t, 3, st.Records[1].(*Area).Priority)
	assert.Equal(t, rl.Vector3{X: 10, Y: 2, Z: 10}, st.Records[1].Base().Scale)
	assert.Equal(t, 7, st.Records[2].(*CameraArea).CameraID)
	assert.Equal(t, "obj0", st.Records[3].(*AreaChild).ParentID)
	assert.Equal(t, rl.Vector3{Z: 1}, st.Records[4].(*Camera).Target)

	coin := st.Records[5].(*Regular)
	assert.Equal(t, "CoinBig", coin.ActorType())
	assert.Equal(t, float64(5), coin.Args["Count"])
	assert.Equal(t, 2, coin.Switches["SwitchAppear"])
}

func TestParseStageErrors(t *testing.T) {
	_, err := Parse([]byte(`{"objects": [{"kind": "spline", "name": "X"}]}`))
	assert.ErrorContains(t, err, `unknown object kind "spline"`)

	_, err = Parse([]byte(`{"objects": [{"kind": "area"}]}`))
	assert.ErrorContains(t, err, "missing name")

	_, err = Parse([]byte(`{"objects": [`))
	assert.Error(t, err)
}

func TestListAndLoadStages(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	write("b.json", `{"name": "Sand", "scenario": 2, "objects": []}`)
	write("a.json", `{"name": "Sand", "scenario": 1, "objects": []}`)
	write("home.json", plainsStage)
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	refs, err := ListStages(dir)
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "CapWorldHomeStage1", refs[0].Key())
	assert.Equal(t, "Sand1", refs[1].Key())
	assert.Equal(t, "Sand2", refs[2].Key())

	st, err := Load(refs[0])
	require.NoError(t, err)
	assert.Len(t, st.Records, 6)
}

func TestLoadMissingStage(t *testing.T) {
	_, err := Load(Ref{Name: "Gone", Scenario: 1, Path: filepath.Join(t.TempDir(), "gone.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `read stage "Gone1"`)
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, KindArea.IsArea())
	assert.True(t, KindCameraArea.IsArea())
	assert.True(t, KindAreaChild.IsArea())
	assert.False(t, KindRegular.IsArea())
	assert.False(t, KindCamera.IsArea())
	assert.Equal(t, "CameraArea", KindCameraArea.String())
	assert.Equal(t, "Unknown", Kind(42).String())

	assert.Equal(t, "", ActorType(&Area{Common: Common{Name: "DeathArea"}}))
	assert.Equal(t, "Kuribo", ActorType(&Regular{Common: Common{Name: "Kuribo"}}))
	assert.Equal(t, "StartCamera", ActorType(&Camera{Common: Common{Name: "StartCamera"}}))
}
