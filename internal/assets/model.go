package assets

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxLayer is the highest render layer a material may ask for.
const MaxLayer = 2

// ErrMalformed wraps every structural problem found while decoding a model.
var ErrMalformed = errors.New("malformed model")

// RawModel is the CPU-side form of an actor model as stored on disk.
type RawModel struct {
	Meshes    []RawMesh     `json:"meshes"`
	Materials []RawMaterial `json:"materials"`
}

type RawMesh struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals,omitempty"`
	TexCoords []float32 `json:"texcoords,omitempty"`
	Indices   []uint16  `json:"indices,omitempty"`
	Material  int       `json:"material"`
}

// VertexCount is the number of xyz triples in the mesh.
func (m RawMesh) VertexCount() int { return len(m.Vertices) / 3 }

type RawMaterial struct {
	Name   string      `json:"name"`
	Shader string      `json:"shader,omitempty"`
	Color  *[4]float32 `json:"color,omitempty"`
	Layer  int         `json:"layer"`
	Cull   string      `json:"cull,omitempty"` // back (default), front, none
	Blend  *RawBlend   `json:"blend,omitempty"`
}

// RawBlend holds blend state by GL name, e.g. "FUNC_ADD", "SRC_ALPHA".
type RawBlend struct {
	Color         [4]float32 `json:"color"`
	EquationRGB   string     `json:"equationRgb"`
	EquationAlpha string     `json:"equationAlpha"`
	SrcRGB        string     `json:"srcRgb"`
	DstRGB        string     `json:"dstRgb"`
	SrcAlpha      string     `json:"srcAlpha"`
	DstAlpha      string     `json:"dstAlpha"`
}

// Decode parses and validates a raw model.
func Decode(data []byte) (*RawModel, error) {
	var m RawModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *RawModel) Validate() error {
	if len(m.Meshes) == 0 {
		return fmt.Errorf("%w: no meshes", ErrMalformed)
	}
	for i, mat := range m.Materials {
		if mat.Layer < 0 || mat.Layer > MaxLayer {
			return fmt.Errorf("%w: material %d layer %d out of range", ErrMalformed, i, mat.Layer)
		}
		switch mat.Cull {
		case "", "back", "front", "none":
		default:
			return fmt.Errorf("%w: material %d cull mode %q", ErrMalformed, i, mat.Cull)
		}
	}
	for i, mesh := range m.Meshes {
		if len(mesh.Vertices) == 0 || len(mesh.Vertices)%3 != 0 {
			return fmt.Errorf("%w: mesh %d has %d vertex floats", ErrMalformed, i, len(mesh.Vertices))
		}
		if mesh.Normals != nil && len(mesh.Normals) != len(mesh.Vertices) {
			return fmt.Errorf("%w: mesh %d normal count mismatch", ErrMalformed, i)
		}
		if mesh.TexCoords != nil && len(mesh.TexCoords) != mesh.VertexCount()*2 {
			return fmt.Errorf("%w: mesh %d texcoord count mismatch", ErrMalformed, i)
		}
		if len(mesh.Indices)%3 != 0 {
			return fmt.Errorf("%w: mesh %d index count not a multiple of 3", ErrMalformed, i)
		}
		for _, idx := range mesh.Indices {
			if int(idx) >= mesh.VertexCount() {
				return fmt.Errorf("%w: mesh %d index %d out of range", ErrMalformed, i, idx)
			}
		}
		if mesh.Material < 0 || mesh.Material >= len(m.Materials) {
			return fmt.Errorf("%w: mesh %d material %d out of range", ErrMalformed, i, mesh.Material)
		}
	}
	return nil
}
