// Package render turns scene objects into draw calls. All GPU work goes
// through a Backend so the dispatch logic can run without a GL context.
package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// MeshHandle names a mesh uploaded to a Backend. Zero is never valid.
type MeshHandle uint32

// ProgramHandle names a shader program owned by a Backend.
type ProgramHandle uint32

type CullMode int

const (
	CullBack CullMode = iota // default pipeline state
	CullFront
	CullNone
)

func (c CullMode) String() string {
	switch c {
	case CullBack:
		return "back"
	case CullFront:
		return "front"
	case CullNone:
		return "none"
	}
	return "unknown"
}

// BlendState is a separate-RGB/alpha blend setup using GL enum values.
type BlendState struct {
	Color         [4]float32
	EquationRGB   int32
	EquationAlpha int32
	SrcRGB        int32
	DstRGB        int32
	SrcAlpha      int32
	DstAlpha      int32
}

// AlphaBlend is the usual src-alpha over blend, used for area volumes.
var AlphaBlend = BlendState{
	Color:         [4]float32{1, 1, 1, 1},
	EquationRGB:   GLFuncAdd,
	EquationAlpha: GLFuncAdd,
	SrcRGB:        GLSrcAlpha,
	DstRGB:        GLOneMinusSrcAlpha,
	SrcAlpha:      GLOne,
	DstAlpha:      GLOneMinusSrcAlpha,
}

// MeshData is CPU-side geometry ready for upload. Indices may be empty
// for non-indexed meshes.
type MeshData struct {
	Vertices  []float32
	Normals   []float32
	TexCoords []float32
	Indices   []uint16
}

// Uniforms is the per-draw material state. Tint blends the highlight color
// over the surface; its alpha is the blend amount.
type Uniforms struct {
	BaseColor [4]float32
	Tint      [4]float32
}

// Built-in program names every Backend provides.
const (
	ProgramModel = "model"
	ProgramSolid = "solid"
	ProgramArea  = "area"
)

// Backend is the slice of GPU functionality the renderer uses. Every
// method is called from the render thread only.
type Backend interface {
	// Init compiles built-in programs and primitive meshes.
	Init() error
	UploadMesh(MeshData) (MeshHandle, error)
	ReleaseMesh(MeshHandle)
	// Program returns the program registered under name, falling back to
	// ProgramModel for unknown names.
	Program(name string) ProgramHandle
	// Cube is a unit cube centered on the origin.
	Cube() MeshHandle
	// AreaBox is the volume drawn for areas: a unit box resting on y=0.
	AreaBox() MeshHandle

	SetCamera(view, projection rl.Matrix)
	SetCulling(CullMode)
	// SetBlending enables blending with s, or disables it for nil.
	SetBlending(s *BlendState)
	// Bind makes program current with the camera matrices and u. It also
	// clears the picking ID.
	Bind(program ProgramHandle, u Uniforms)
	SetPickingID(id uint32)
	Draw(mesh MeshHandle, transform rl.Matrix)
}
