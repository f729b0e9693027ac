package scene

import (
	"stagecraft/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Object is a stage record placed in a scene, plus the view state the
// editor keeps for it.
type Object struct {
	Record    stage.Record
	Selected  bool
	PickingID uint32

	parent *Object
	local  rl.Matrix
}

func newObject(rec stage.Record) *Object {
	o := &Object{Record: rec}
	o.Refresh()
	return o
}

// Kind is the record kind driving how the object is drawn.
func (o *Object) Kind() stage.Kind { return o.Record.Kind() }

// ActorType is the model key, "" for area kinds.
func (o *Object) ActorType() string { return stage.ActorType(o.Record) }

func (o *Object) Name() string { return o.Record.Base().Name }

// Parent is the object an AreaChild hangs off, if it was found.
func (o *Object) Parent() *Object { return o.parent }

// Refresh rebuilds the cached local transform after the record changed.
func (o *Object) Refresh() {
	o.local = TransformMatrix(o.Record.Base())
}

// descendsFrom reports whether a is o or one of its ancestors.
func (o *Object) descendsFrom(a *Object) bool {
	for q := o; q != nil; q = q.parent {
		if q == a {
			return true
		}
	}
	return false
}

// Local returns the cached transform relative to the parent.
func (o *Object) Local() rl.Matrix { return o.local }

// World returns the cached transform composed with the parent chain.
func (o *Object) World() rl.Matrix {
	if o.parent == nil {
		return o.local
	}
	return rl.MatrixMultiply(o.local, o.parent.World())
}

// WorldPosition is the translation part of World.
func (o *Object) WorldPosition() rl.Vector3 {
	m := o.World()
	return rl.Vector3{X: m.M12, Y: m.M13, Z: m.M14}
}

// TransformMatrix builds scale -> rotate (X, Y, Z in degrees) -> translate.
func TransformMatrix(c *stage.Common) rl.Matrix {
	scaleMatrix := rl.MatrixScale(c.Scale.X, c.Scale.Y, c.Scale.Z)

	rot := c.Rotation
	rotX := rl.MatrixRotateX(rot.X * rl.Deg2rad)
	rotY := rl.MatrixRotateY(rot.Y * rl.Deg2rad)
	rotZ := rl.MatrixRotateZ(rot.Z * rl.Deg2rad)
	rotMatrix := rl.MatrixMultiply(rl.MatrixMultiply(rotX, rotY), rotZ)

	pos := c.Position
	transMatrix := rl.MatrixTranslate(pos.X, pos.Y, pos.Z)

	return rl.MatrixMultiply(rl.MatrixMultiply(scaleMatrix, rotMatrix), transMatrix)
}
