package render

import (
	"context"
	"errors"
	"fmt"
	"math"

	"stagecraft/internal/assets"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LayerCount is the number of render layers a material can sit in. Layers
// are drawn in increasing order.
const LayerCount = assets.MaxLayer + 1

// ErrNoModel marks an actor type whose model could not be built. Objects of
// that type are drawn as placeholder cubes.
var ErrNoModel = errors.New("no model")

// Material is the GPU pipeline state for one mesh of an actor.
type Material struct {
	Name    string
	Program ProgramHandle
	Color   [4]float32
	Layer   int
	Cull    CullMode
	Blend   *BlendState
}

// Part is a mesh with the material it is drawn with.
type Part struct {
	Mesh     MeshHandle
	Material Material
}

// ActorAsset is the built, shared form of an actor model. It is read-only
// once built.
type ActorAsset struct {
	Type  string
	Parts []Part
	// Radius bounds every vertex around the model origin, in model units.
	Radius float32
}

type cacheEntry struct {
	asset *ActorAsset
	err   error
}

// Cache builds ActorAssets on first request and keeps them, keyed by actor
// type. Failed builds are kept too. It is not safe for concurrent use and
// belongs to the render thread.
type Cache struct {
	backend Backend
	entries map[string]cacheEntry
	builds  int

	buildCounter metric.Int64Counter
}

func NewCache(backend Backend) (*Cache, error) {
	counter, err := meter().Int64Counter(
		"stagecraft.render.cache.builds",
		metric.WithDescription("Actor model conversions attempted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache build counter: %w", err)
	}
	return &Cache{
		backend:      backend,
		entries:      make(map[string]cacheEntry),
		buildCounter: counter,
	}, nil
}

// GetOrBuild returns the asset for actorType, converting raw on the first
// call. Later calls return the first result, whatever raw they pass. A
// failed conversion returns an error wrapping ErrNoModel.
func (c *Cache) GetOrBuild(actorType string, raw []byte) (*ActorAsset, error) {
	return c.GetOrBuildFunc(actorType, func() ([]byte, error) { return raw, nil })
}

// GetOrBuildFunc is GetOrBuild with the raw bytes fetched lazily, only
// when a build is needed.
func (c *Cache) GetOrBuildFunc(actorType string, load func() ([]byte, error)) (*ActorAsset, error) {
	if e, ok := c.entries[actorType]; ok {
		return e.asset, e.err
	}

	c.builds++
	asset, err := c.build(actorType, load)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrNoModel, actorType, err)
		asset = nil
	}
	c.entries[actorType] = cacheEntry{asset: asset, err: err}
	c.buildCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("failed", err != nil)))
	return asset, err
}

// Builds counts conversions attempted since the cache was created.
func (c *Cache) Builds() int { return c.builds }

func (c *Cache) Len() int { return len(c.entries) }

// Failed reports whether actorType is cached as a failed build.
func (c *Cache) Failed(actorType string) bool {
	e, ok := c.entries[actorType]
	return ok && e.err != nil
}

// Reset drops actorType and releases its meshes; the next request builds
// it again.
func (c *Cache) Reset(actorType string) {
	e, ok := c.entries[actorType]
	if !ok {
		return
	}
	if e.asset != nil {
		c.release(e.asset.Parts)
	}
	delete(c.entries, actorType)
}

func (c *Cache) ResetAll() {
	for t := range c.entries {
		c.Reset(t)
	}
}

func (c *Cache) release(parts []Part) {
	for _, p := range parts {
		c.backend.ReleaseMesh(p.Mesh)
	}
}

func (c *Cache) build(actorType string, load func() ([]byte, error)) (*ActorAsset, error) {
	raw, err := load()
	if err != nil {
		return nil, err
	}
	model, err := assets.Decode(raw)
	if err != nil {
		return nil, err
	}

	materials := make([]Material, len(model.Materials))
	for i, m := range model.Materials {
		if materials[i], err = c.convertMaterial(m); err != nil {
			return nil, fmt.Errorf("material %d (%s): %w", i, m.Name, err)
		}
	}

	asset := &ActorAsset{Type: actorType, Parts: make([]Part, 0, len(model.Meshes))}
	for i, mesh := range model.Meshes {
		data := MeshData{
			Vertices:  mesh.Vertices,
			Normals:   mesh.Normals,
			TexCoords: mesh.TexCoords,
			Indices:   mesh.Indices,
		}
		if data.Normals == nil {
			data.Normals = computeNormals(mesh.Vertices, mesh.Indices)
		}
		asset.Radius = max(asset.Radius, boundingRadius(mesh.Vertices))
		h, err := c.backend.UploadMesh(data)
		if err != nil {
			c.release(asset.Parts)
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		asset.Parts = append(asset.Parts, Part{Mesh: h, Material: materials[mesh.Material]})
	}
	return asset, nil
}

func (c *Cache) convertMaterial(m assets.RawMaterial) (Material, error) {
	out := Material{
		Name:  m.Name,
		Layer: m.Layer,
		Color: [4]float32{1, 1, 1, 1},
	}
	if m.Color != nil {
		out.Color = *m.Color
	}

	shader := m.Shader
	if shader == "" {
		shader = ProgramModel
	}
	out.Program = c.backend.Program(shader)

	switch m.Cull {
	case "", "back":
		out.Cull = CullBack
	case "front":
		out.Cull = CullFront
	case "none":
		out.Cull = CullNone
	default:
		return Material{}, fmt.Errorf("unknown cull mode %q", m.Cull)
	}

	if m.Blend != nil {
		b, err := convertBlend(m.Blend)
		if err != nil {
			return Material{}, err
		}
		out.Blend = b
	}
	return out, nil
}

func convertBlend(raw *assets.RawBlend) (*BlendState, error) {
	b := &BlendState{Color: raw.Color}
	var err error
	if b.EquationRGB, err = lookupEnum(blendEquations, "equation", raw.EquationRGB, "FUNC_ADD"); err != nil {
		return nil, err
	}
	if b.EquationAlpha, err = lookupEnum(blendEquations, "equation", raw.EquationAlpha, "FUNC_ADD"); err != nil {
		return nil, err
	}
	if b.SrcRGB, err = lookupEnum(blendFactors, "factor", raw.SrcRGB, "SRC_ALPHA"); err != nil {
		return nil, err
	}
	if b.DstRGB, err = lookupEnum(blendFactors, "factor", raw.DstRGB, "ONE_MINUS_SRC_ALPHA"); err != nil {
		return nil, err
	}
	if b.SrcAlpha, err = lookupEnum(blendFactors, "factor", raw.SrcAlpha, "ONE"); err != nil {
		return nil, err
	}
	if b.DstAlpha, err = lookupEnum(blendFactors, "factor", raw.DstAlpha, "ONE_MINUS_SRC_ALPHA"); err != nil {
		return nil, err
	}
	return b, nil
}

func boundingRadius(vertices []float32) float32 {
	var r2 float32
	for i := 0; i+2 < len(vertices); i += 3 {
		x, y, z := vertices[i], vertices[i+1], vertices[i+2]
		r2 = max(r2, x*x+y*y+z*z)
	}
	return float32(math.Sqrt(float64(r2)))
}

// computeNormals averages face normals per vertex for meshes shipped
// without normals.
func computeNormals(vertices []float32, indices []uint16) []float32 {
	normals := make([]float32, len(vertices))
	vertexCount := len(vertices) / 3

	tri := func(a, b, c int) {
		ax, ay, az := vertices[a*3], vertices[a*3+1], vertices[a*3+2]
		ux, uy, uz := vertices[b*3]-ax, vertices[b*3+1]-ay, vertices[b*3+2]-az
		vx, vy, vz := vertices[c*3]-ax, vertices[c*3+1]-ay, vertices[c*3+2]-az
		nx, ny, nz := uy*vz-uz*vy, uz*vx-ux*vz, ux*vy-uy*vx
		for _, i := range [3]int{a, b, c} {
			normals[i*3] += nx
			normals[i*3+1] += ny
			normals[i*3+2] += nz
		}
	}

	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			tri(int(indices[i]), int(indices[i+1]), int(indices[i+2]))
		}
	} else {
		for i := 0; i+2 < vertexCount; i += 3 {
			tri(i, i+1, i+2)
		}
	}

	for i := 0; i < vertexCount; i++ {
		x, y, z := normals[i*3], normals[i*3+1], normals[i*3+2]
		l := float32(math.Sqrt(float64(x*x + y*y + z*z)))
		if l == 0 {
			normals[i*3+1] = 1
			continue
		}
		normals[i*3] = x / l
		normals[i*3+1] = y / l
		normals[i*3+2] = z / l
	}
	return normals
}
