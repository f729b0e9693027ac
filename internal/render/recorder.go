package render

import (
	"errors"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Call is one recorded Backend invocation.
type Call struct {
	Op        string
	Mesh      MeshHandle
	Program   ProgramHandle
	Uniforms  Uniforms
	Cull      CullMode
	Blend     *BlendState
	PickingID uint32
	Transform rl.Matrix
}

// Recorder is a Backend that keeps GPU state in memory and logs every call.
// It is used to exercise the renderer without a window.
type Recorder struct {
	Calls []Call

	// FailUpload makes UploadMesh fail for the Nth upload (1-based).
	FailUpload int

	inited   bool
	nextMesh MeshHandle
	meshes   map[MeshHandle]MeshData
	programs map[string]ProgramHandle

	View, Projection rl.Matrix
	Culling          CullMode
	Blending         *BlendState
	Current          ProgramHandle
	PickingID        uint32
	uploads          int
}

func NewRecorder() *Recorder {
	return &Recorder{
		meshes: make(map[MeshHandle]MeshData),
		programs: map[string]ProgramHandle{
			ProgramModel: 1,
			ProgramSolid: 2,
			ProgramArea:  3,
		},
	}
}

func (r *Recorder) record(c Call) { r.Calls = append(r.Calls, c) }

func (r *Recorder) Init() error {
	if r.inited {
		return errors.New("recorder: init twice")
	}
	r.inited = true
	r.record(Call{Op: "Init"})
	return nil
}

func (r *Recorder) UploadMesh(d MeshData) (MeshHandle, error) {
	r.uploads++
	if r.FailUpload == r.uploads {
		return 0, fmt.Errorf("recorder: upload %d refused", r.uploads)
	}
	r.nextMesh++
	h := r.nextMesh + 100 // keep clear of the primitive handles
	r.meshes[h] = d
	r.record(Call{Op: "UploadMesh", Mesh: h})
	return h, nil
}

func (r *Recorder) ReleaseMesh(h MeshHandle) {
	delete(r.meshes, h)
	r.record(Call{Op: "ReleaseMesh", Mesh: h})
}

// Live reports how many uploaded meshes have not been released.
func (r *Recorder) Live() int { return len(r.meshes) }

// Mesh returns the data uploaded under h.
func (r *Recorder) Mesh(h MeshHandle) (MeshData, bool) {
	d, ok := r.meshes[h]
	return d, ok
}

// Program hands out a stable handle per name, creating it on first use.
func (r *Recorder) Program(name string) ProgramHandle {
	if h, ok := r.programs[name]; ok {
		return h
	}
	h := ProgramHandle(len(r.programs) + 1)
	r.programs[name] = h
	return h
}

func (r *Recorder) Cube() MeshHandle    { return 1 }
func (r *Recorder) AreaBox() MeshHandle { return 2 }

func (r *Recorder) SetCamera(view, projection rl.Matrix) {
	r.View, r.Projection = view, projection
	r.record(Call{Op: "SetCamera"})
}

func (r *Recorder) SetCulling(mode CullMode) {
	r.Culling = mode
	r.record(Call{Op: "SetCulling", Cull: mode})
}

func (r *Recorder) SetBlending(s *BlendState) {
	r.Blending = s
	r.record(Call{Op: "SetBlending", Blend: s})
}

func (r *Recorder) Bind(program ProgramHandle, u Uniforms) {
	r.Current = program
	r.PickingID = 0
	r.record(Call{Op: "Bind", Program: program, Uniforms: u})
}

func (r *Recorder) SetPickingID(id uint32) {
	r.PickingID = id
	r.record(Call{Op: "SetPickingID", PickingID: id})
}

func (r *Recorder) Draw(mesh MeshHandle, transform rl.Matrix) {
	r.record(Call{
		Op:        "Draw",
		Mesh:      mesh,
		Program:   r.Current,
		Cull:      r.Culling,
		Blend:     r.Blending,
		PickingID: r.PickingID,
		Transform: transform,
	})
}

// Ops lists the recorded operation names in order.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Draws returns the recorded Draw calls.
func (r *Recorder) Draws() []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == "Draw" {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps uploaded meshes and state.
func (r *Recorder) Reset() { r.Calls = nil }
