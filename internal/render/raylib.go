package render

import (
	"embed"
	"errors"
	"fmt"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
)

//go:embed shaders
var shaderFS embed.FS

type program struct {
	shader   rl.Shader
	material rl.Material

	locBaseColor     int32
	locTint          int32
	locBlendColor    int32
	locUseBlendColor int32
	locPickingColor  int32
	locPickingPass   int32
}

func (p *program) setVec4(loc int32, v [4]float32) {
	rl.SetShaderValue(p.shader, loc, v[:], rl.ShaderUniformVec4)
}

func (p *program) setFloat(loc int32, v float32) {
	rl.SetShaderValue(p.shader, loc, []float32{v}, rl.ShaderUniformFloat)
}

// gpuMesh keeps the Go-side arrays alive and pinned for as long as raylib
// holds pointers to them.
type gpuMesh struct {
	mesh   rl.Mesh
	data   MeshData
	pinner runtime.Pinner
}

// RaylibBackend draws through rlgl. It needs an open window and must only
// be used from the goroutine that opened it.
//
// rlgl has no glBlendColor, so materials whose blend factors read the
// constant color are drawn with the matching source factor and the shader
// multiplies its output by the blend color instead.
type RaylibBackend struct {
	programs []*program
	byName   map[string]ProgramHandle
	meshes   map[MeshHandle]*gpuMesh
	nextMesh MeshHandle

	cube    MeshHandle
	areaBox MeshHandle

	current     *program
	blend       *BlendState
	pickingPass bool
	pickingSet  bool
	pickTarget  rl.RenderTexture2D
}

func NewRaylibBackend() *RaylibBackend {
	return &RaylibBackend{
		byName: make(map[string]ProgramHandle),
		meshes: make(map[MeshHandle]*gpuMesh),
	}
}

func (b *RaylibBackend) Init() error {
	vs, err := shaderFS.ReadFile("shaders/scene.vs")
	if err != nil {
		return err
	}
	sceneFS, err := shaderFS.ReadFile("shaders/scene.fs")
	if err != nil {
		return err
	}
	areaFS, err := shaderFS.ReadFile("shaders/area.fs")
	if err != nil {
		return err
	}

	for _, def := range []struct{ name, fs string }{
		{ProgramModel, string(sceneFS)},
		{ProgramSolid, string(sceneFS)},
		{ProgramArea, string(areaFS)},
	} {
		if err := b.LoadProgram(def.name, string(vs), def.fs); err != nil {
			return err
		}
	}

	if b.cube, err = b.UploadMesh(boxMesh(-0.5)); err != nil {
		return fmt.Errorf("cube mesh: %w", err)
	}
	if b.areaBox, err = b.UploadMesh(boxMesh(0)); err != nil {
		return fmt.Errorf("area mesh: %w", err)
	}
	return nil
}

// LoadProgram compiles a program and registers it under name, replacing an
// existing registration.
func (b *RaylibBackend) LoadProgram(name, vertex, fragment string) error {
	shader := rl.LoadShaderFromMemory(vertex, fragment)
	if shader.ID == 0 {
		return fmt.Errorf("compile program %q failed", name)
	}
	p := &program{
		shader:           shader,
		material:         rl.LoadMaterialDefault(),
		locBaseColor:     rl.GetShaderLocation(shader, "baseColor"),
		locTint:          rl.GetShaderLocation(shader, "tint"),
		locBlendColor:    rl.GetShaderLocation(shader, "blendColor"),
		locUseBlendColor: rl.GetShaderLocation(shader, "useBlendColor"),
		locPickingColor:  rl.GetShaderLocation(shader, "pickingColor"),
		locPickingPass:   rl.GetShaderLocation(shader, "pickingPass"),
	}
	p.material.Shader = shader

	b.programs = append(b.programs, p)
	b.byName[name] = ProgramHandle(len(b.programs))
	return nil
}

func (b *RaylibBackend) Program(name string) ProgramHandle {
	if h, ok := b.byName[name]; ok {
		return h
	}
	return b.byName[ProgramModel]
}

func (b *RaylibBackend) program(h ProgramHandle) *program {
	if h == 0 || int(h) > len(b.programs) {
		return nil
	}
	return b.programs[h-1]
}

func (b *RaylibBackend) UploadMesh(d MeshData) (MeshHandle, error) {
	if len(d.Vertices) < 9 {
		return 0, errors.New("upload mesh: fewer than 3 vertices")
	}

	g := &gpuMesh{data: d}
	m := &g.mesh
	m.VertexCount = int32(len(d.Vertices) / 3)
	m.TriangleCount = m.VertexCount / 3

	g.pinner.Pin(&g.data.Vertices[0])
	m.Vertices = &g.data.Vertices[0]
	if len(d.Normals) > 0 {
		g.pinner.Pin(&g.data.Normals[0])
		m.Normals = &g.data.Normals[0]
	}
	if len(d.TexCoords) > 0 {
		g.pinner.Pin(&g.data.TexCoords[0])
		m.Texcoords = &g.data.TexCoords[0]
	}
	if len(d.Indices) > 0 {
		g.pinner.Pin(&g.data.Indices[0])
		m.Indices = &g.data.Indices[0]
		m.TriangleCount = int32(len(d.Indices) / 3)
	}

	rl.UploadMesh(m, false)
	if m.VaoID == 0 && m.VboID == nil {
		g.pinner.Unpin()
		return 0, errors.New("upload mesh: no vertex array created")
	}

	b.nextMesh++
	b.meshes[b.nextMesh] = g
	return b.nextMesh, nil
}

func (b *RaylibBackend) ReleaseMesh(h MeshHandle) {
	g, ok := b.meshes[h]
	if !ok {
		return
	}
	delete(b.meshes, h)

	// The arrays are Go memory; keep raylib from freeing them.
	g.mesh.Vertices = nil
	g.mesh.Normals = nil
	g.mesh.Texcoords = nil
	g.mesh.Indices = nil
	rl.UnloadMesh(&g.mesh)
	g.pinner.Unpin()
}

func (b *RaylibBackend) Cube() MeshHandle    { return b.cube }
func (b *RaylibBackend) AreaBox() MeshHandle { return b.areaBox }

func (b *RaylibBackend) SetCamera(view, projection rl.Matrix) {
	rl.SetMatrixModelview(view)
	rl.SetMatrixProjection(projection)
}

func (b *RaylibBackend) SetCulling(mode CullMode) {
	switch mode {
	case CullNone:
		rl.DisableBackfaceCulling()
	case CullFront:
		rl.EnableBackfaceCulling()
		rl.SetCullFace(0)
	default:
		rl.EnableBackfaceCulling()
		rl.SetCullFace(1)
	}
}

func substituteConstant(f int32) int32 {
	switch f {
	case GLConstantColor:
		return GLSrcColor
	case GLOneMinusConstantColor:
		return GLOneMinusSrcColor
	case GLConstantAlpha:
		return GLSrcAlpha
	case GLOneMinusConstantAlpha:
		return GLOneMinusSrcAlpha
	}
	return f
}

func (b *RaylibBackend) SetBlending(s *BlendState) {
	if s == nil {
		if b.blend != nil {
			rl.EndBlendMode()
			if b.current != nil {
				b.current.setFloat(b.current.locUseBlendColor, 0)
			}
		}
		b.blend = nil
		return
	}
	if b.pickingPass {
		return
	}

	useConstant := isConstantFactor(s.SrcRGB) || isConstantFactor(s.DstRGB) ||
		isConstantFactor(s.SrcAlpha) || isConstantFactor(s.DstAlpha)
	rl.SetBlendFactorsSeparate(
		substituteConstant(s.SrcRGB), substituteConstant(s.DstRGB),
		substituteConstant(s.SrcAlpha), substituteConstant(s.DstAlpha),
		s.EquationRGB, s.EquationAlpha,
	)
	rl.BeginBlendMode(rl.BlendCustomSeparate)
	b.blend = s

	if b.current != nil {
		b.current.setVec4(b.current.locBlendColor, s.Color)
		if useConstant {
			b.current.setFloat(b.current.locUseBlendColor, 1)
		} else {
			b.current.setFloat(b.current.locUseBlendColor, 0)
		}
	}
}

func (b *RaylibBackend) Bind(h ProgramHandle, u Uniforms) {
	p := b.program(h)
	if p == nil {
		p = b.program(b.byName[ProgramModel])
	}
	b.current = p
	b.pickingSet = false

	p.setVec4(p.locBaseColor, u.BaseColor)
	p.setVec4(p.locTint, u.Tint)
	if b.pickingPass {
		p.setFloat(p.locPickingPass, 1)
	} else {
		p.setFloat(p.locPickingPass, 0)
	}
}

func (b *RaylibBackend) SetPickingID(id uint32) {
	if b.current == nil {
		return
	}
	b.pickingSet = true
	b.current.setVec4(b.current.locPickingColor, PickingVec4(id))
}

// BeginPicking switches to the picking pass: programs output picking
// colors, blending is ignored and draws without a picking ID are skipped.
func (b *RaylibBackend) BeginPicking() {
	b.pickingPass = true
}

func (b *RaylibBackend) EndPicking() {
	b.pickingPass = false
}

// PickAt renders draw into an offscreen target in picking mode and returns
// the picking ID under screen pixel (x, y), or 0 for background. draw must
// set up its own camera since texture mode resets the matrices.
func (b *RaylibBackend) PickAt(x, y int32, draw func()) uint32 {
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0
	}
	if b.pickTarget.ID == 0 || b.pickTarget.Texture.Width != w || b.pickTarget.Texture.Height != h {
		if b.pickTarget.ID != 0 {
			rl.UnloadRenderTexture(b.pickTarget)
		}
		b.pickTarget = rl.LoadRenderTexture(w, h)
	}

	rl.BeginTextureMode(b.pickTarget)
	rl.ClearBackground(rl.Black)
	b.BeginPicking()
	draw()
	b.EndPicking()
	rl.EndTextureMode()

	img := rl.LoadImageFromTexture(b.pickTarget.Texture)
	defer rl.UnloadImage(img)
	// render textures are stored bottom-up
	return PickingIDFromColor(rl.GetImageColor(*img, x, h-1-y))
}

func (b *RaylibBackend) Draw(h MeshHandle, transform rl.Matrix) {
	if b.current == nil {
		return
	}
	if b.pickingPass && !b.pickingSet {
		return
	}
	g, ok := b.meshes[h]
	if !ok {
		return
	}
	rl.DrawMesh(g.mesh, b.current.material, transform)
}

// Unload frees every program and mesh.
func (b *RaylibBackend) Unload() {
	for h := range b.meshes {
		b.ReleaseMesh(h)
	}
	for _, p := range b.programs {
		rl.UnloadShader(p.shader)
	}
	if b.pickTarget.ID != 0 {
		rl.UnloadRenderTexture(b.pickTarget)
		b.pickTarget = rl.RenderTexture2D{}
	}
	b.programs = nil
	b.byName = make(map[string]ProgramHandle)
	b.current = nil
}

// boxMesh builds a unit box with per-face normals. The box spans
// [minY, minY+1] vertically and [-0.5, 0.5] on X and Z.
func boxMesh(minY float32) MeshData {
	type face struct {
		n       [3]float32
		corners [4][3]float32
	}
	lo, hi := minY, minY+1
	faces := []face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-0.5, lo, 0.5}, {0.5, lo, 0.5}, {0.5, hi, 0.5}, {-0.5, hi, 0.5}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{0.5, lo, -0.5}, {-0.5, lo, -0.5}, {-0.5, hi, -0.5}, {0.5, hi, -0.5}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{0.5, lo, 0.5}, {0.5, lo, -0.5}, {0.5, hi, -0.5}, {0.5, hi, 0.5}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-0.5, lo, -0.5}, {-0.5, lo, 0.5}, {-0.5, hi, 0.5}, {-0.5, hi, -0.5}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-0.5, hi, 0.5}, {0.5, hi, 0.5}, {0.5, hi, -0.5}, {-0.5, hi, -0.5}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-0.5, lo, -0.5}, {0.5, lo, -0.5}, {0.5, lo, 0.5}, {-0.5, lo, 0.5}}},
	}

	var d MeshData
	for i, f := range faces {
		for _, c := range f.corners {
			d.Vertices = append(d.Vertices, c[0], c[1], c[2])
			d.Normals = append(d.Normals, f.n[0], f.n[1], f.n[2])
		}
		base := uint16(i * 4)
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return d
}
