package render

import (
	"errors"
	"fmt"

	"stagecraft/internal/scene"
	"stagecraft/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/rs/zerolog"
)

// ErrNotInitialized is the panic value (wrapped) of any draw-side call made
// before Initialize.
var ErrNotInitialized = errors.New("renderer used before Initialize")

const (
	// DefaultModelScale converts model units to stage units.
	DefaultModelScale float32 = 0.01

	selectedTintAlpha float32 = 0.4
	areaAlpha         float32 = 0.25

	// boxRadius bounds the unit cube and the area box around their origin.
	boxRadius float32 = 1.25
)

// RawSource supplies raw model bytes by actor type.
type RawSource interface {
	Raw(actorType string) ([]byte, error)
}

type Option func(*Renderer)

func WithModelScale(s float32) Option {
	return func(r *Renderer) { r.modelScale = s }
}

func WithAreaColor(c [4]float32) Option {
	return func(r *Renderer) { r.areaColor = c }
}

func WithCubeColor(c [4]float32) Option {
	return func(r *Renderer) { r.cubeColor = c }
}

// WithHighlight sets the color blended over selected objects.
func WithHighlight(c [3]float32) Option {
	return func(r *Renderer) { r.highlight = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithFrustumCulling makes DrawScene skip objects outside the view.
func WithFrustumCulling(enabled bool) Option {
	return func(r *Renderer) { r.culling = enabled }
}

// Renderer draws scene objects. Initialize must run once, on the render
// thread, before UpdateMatrices or Draw.
type Renderer struct {
	backend Backend
	cache   *Cache
	source  RawSource
	log     zerolog.Logger

	modelScale float32
	areaColor  [4]float32
	cubeColor  [4]float32
	highlight  [3]float32

	initialized bool
	view        rl.Matrix
	projection  rl.Matrix
	culling     bool
	culled      int

	solidProgram ProgramHandle
	areaProgram  ProgramHandle
	areaBlend    BlendState

	reported map[string]bool
}

func NewRenderer(backend Backend, cache *Cache, source RawSource, opts ...Option) *Renderer {
	r := &Renderer{
		backend:    backend,
		cache:      cache,
		source:     source,
		log:        zerolog.Nop(),
		modelScale: DefaultModelScale,
		areaColor:  [4]float32{0, 1, 0, 1},
		cubeColor:  [4]float32{1, 0.5, 0, 1},
		highlight:  [3]float32{1, 1, 0},
		view:       rl.MatrixIdentity(),
		projection: rl.MatrixIdentity(),
		areaBlend:  AlphaBlend,
		reported:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Cache() *Cache { return r.cache }

func (r *Renderer) Initialized() bool { return r.initialized }

// Initialize prepares the backend. Calling it twice panics.
func (r *Renderer) Initialize() error {
	if r.initialized {
		panic("render: Initialize called twice")
	}
	if err := r.backend.Init(); err != nil {
		return fmt.Errorf("init render backend: %w", err)
	}
	r.solidProgram = r.backend.Program(ProgramSolid)
	r.areaProgram = r.backend.Program(ProgramArea)
	r.initialized = true
	return nil
}

func (r *Renderer) mustBeInitialized(op string) {
	if !r.initialized {
		panic(fmt.Errorf("render: %s: %w", op, ErrNotInitialized))
	}
}

// UpdateMatrices sets the camera for the draws that follow. Call it once
// per frame before drawing.
func (r *Renderer) UpdateMatrices(view, projection rl.Matrix) {
	r.mustBeInitialized("UpdateMatrices")
	r.view = view
	r.projection = projection
	r.backend.SetCamera(view, projection)
}

// Matrices returns the camera set by the last UpdateMatrices.
func (r *Renderer) Matrices() (view, projection rl.Matrix) {
	return r.view, r.projection
}

// DrawScene draws every object of s in insertion order, skipping those
// outside the view when frustum culling is on.
func (r *Renderer) DrawScene(s *scene.Scene) {
	r.mustBeInitialized("DrawScene")
	r.culled = 0
	if !r.culling {
		s.Each(r.Draw)
		return
	}

	f := ExtractFrustum(r.view, r.projection)
	s.Each(func(obj *scene.Object) {
		if !r.visible(obj, &f) {
			r.culled++
			return
		}
		r.Draw(obj)
	})
}

// Culled counts the objects the last DrawScene skipped.
func (r *Renderer) Culled() int { return r.culled }

func (r *Renderer) visible(obj *scene.Object, f *Frustum) bool {
	world := obj.World()
	radius := boxRadius
	if !obj.Kind().IsArea() {
		if asset := r.resolve(obj.ActorType()); asset != nil {
			radius = asset.Radius * r.modelScale
		}
	}
	center := rl.Vector3{X: world.M12, Y: world.M13, Z: world.M14}
	return f.ContainsSphere(center, radius*maxAxisScale(world))
}

// Draw issues the draw calls for one object. Culling and blending are back
// to their defaults (back-face culling, no blending) when it returns.
func (r *Renderer) Draw(obj *scene.Object) {
	r.mustBeInitialized("Draw")

	switch obj.Record.(type) {
	case *stage.Area, *stage.CameraArea, *stage.AreaChild:
		r.drawArea(obj)
		return
	case *stage.Regular, *stage.Camera:
	default:
		panic(fmt.Sprintf("render: unhandled record type %T", obj.Record))
	}

	asset := r.resolve(obj.ActorType())
	if asset == nil {
		r.drawCube(obj)
		return
	}
	r.drawModel(obj, asset)
}

// resolve returns the built asset for actorType, or nil when the type has
// no usable model.
func (r *Renderer) resolve(actorType string) *ActorAsset {
	if actorType == "" {
		return nil
	}
	asset, err := r.cache.GetOrBuildFunc(actorType, func() ([]byte, error) {
		return r.source.Raw(actorType)
	})
	if err != nil {
		if !r.reported[actorType] {
			r.reported[actorType] = true
			r.log.Warn().Err(err).Str("actor", actorType).Msg("drawing placeholder cube")
		}
		return nil
	}
	return asset
}

func (r *Renderer) tint(selected bool) [4]float32 {
	t := [4]float32{r.highlight[0], r.highlight[1], r.highlight[2], 0}
	if selected {
		t[3] = selectedTintAlpha
	}
	return t
}

// drawArea draws the translucent volume of an area. Areas are not
// pickable, so no picking ID is set.
func (r *Renderer) drawArea(obj *scene.Object) {
	color := r.areaColor
	color[3] *= areaAlpha

	r.backend.Bind(r.areaProgram, Uniforms{BaseColor: color, Tint: r.tint(obj.Selected)})
	r.backend.SetCulling(CullBack)
	r.backend.SetBlending(&r.areaBlend)
	r.backend.Draw(r.backend.AreaBox(), obj.World())
	r.backend.SetBlending(nil)
}

func (r *Renderer) drawCube(obj *scene.Object) {
	r.backend.Bind(r.solidProgram, Uniforms{BaseColor: r.cubeColor, Tint: r.tint(obj.Selected)})
	r.backend.SetPickingID(obj.PickingID)
	r.backend.SetCulling(CullBack)
	r.backend.Draw(r.backend.Cube(), obj.World())
}

// drawModel draws the parts layer by layer so blended overlays land on top
// of the opaque body regardless of mesh order.
func (r *Renderer) drawModel(obj *scene.Object, asset *ActorAsset) {
	s := r.modelScale
	transform := rl.MatrixMultiply(rl.MatrixScale(s, s, s), obj.World())
	tint := r.tint(obj.Selected)

	for layer := 0; layer < LayerCount; layer++ {
		for _, part := range asset.Parts {
			if part.Material.Layer != layer {
				continue
			}
			r.drawPart(obj.PickingID, part, tint, transform)
		}
	}
}

func (r *Renderer) drawPart(pickingID uint32, part Part, tint [4]float32, transform rl.Matrix) {
	mat := &part.Material

	r.backend.Bind(mat.Program, Uniforms{BaseColor: mat.Color, Tint: tint})
	r.backend.SetPickingID(pickingID)
	r.backend.SetCulling(mat.Cull)
	if mat.Blend != nil {
		r.backend.SetBlending(mat.Blend)
	}

	r.backend.Draw(part.Mesh, transform)

	if mat.Blend != nil {
		r.backend.SetBlending(nil)
	}
	if mat.Cull != CullBack {
		r.backend.SetCulling(CullBack)
	}
}
