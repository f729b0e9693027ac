// Package stage holds parsed stage data: the placed-object records, the
// stage files they come from and the class database used to check them.
package stage

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

type Kind int

const (
	KindRegular Kind = iota
	KindArea
	KindCameraArea
	KindAreaChild
	KindCamera
)

var kindNames = [...]string{
	KindRegular:    "Regular",
	KindArea:       "Area",
	KindCameraArea: "CameraArea",
	KindAreaChild:  "AreaChild",
	KindCamera:     "Camera",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// IsArea reports whether objects of this kind are drawn as volumes.
func (k Kind) IsArea() bool {
	return k == KindArea || k == KindCameraArea || k == KindAreaChild
}

// Common is the data every placed object carries.
type Common struct {
	ID       string
	Name     string // class (unit config) name
	Layer    string
	Position rl.Vector3
	Rotation rl.Vector3 // Euler angles in degrees
	Scale    rl.Vector3
	Args     map[string]any
	Switches map[string]int
}

// Record is one placed object of a stage. The set of implementations is
// closed: Regular, Area, CameraArea, AreaChild and Camera.
type Record interface {
	Base() *Common
	Kind() Kind
	sealed()
}

// Regular is a placed actor.
type Regular struct {
	Common
	ModelName string // overrides Name when picking the model
	Rail      string
}

type Area struct {
	Common
	Priority int
}

type CameraArea struct {
	Common
	CameraID int
}

// AreaChild is an area attached to a parent object.
type AreaChild struct {
	Common
	ParentID string
}

type Camera struct {
	Common
	Target rl.Vector3
}

func (r *Regular) Base() *Common    { return &r.Common }
func (r *Area) Base() *Common       { return &r.Common }
func (r *CameraArea) Base() *Common { return &r.Common }
func (r *AreaChild) Base() *Common  { return &r.Common }
func (r *Camera) Base() *Common     { return &r.Common }

func (*Regular) Kind() Kind    { return KindRegular }
func (*Area) Kind() Kind       { return KindArea }
func (*CameraArea) Kind() Kind { return KindCameraArea }
func (*AreaChild) Kind() Kind  { return KindAreaChild }
func (*Camera) Kind() Kind     { return KindCamera }

func (*Regular) sealed()    {}
func (*Area) sealed()       {}
func (*CameraArea) sealed() {}
func (*AreaChild) sealed()  {}
func (*Camera) sealed()     {}

// ActorType is the key used to look up the object's model.
func (r *Regular) ActorType() string {
	if r.ModelName != "" {
		return r.ModelName
	}
	return r.Name
}

// ActorType returns the model key for records that draw a model, or "" for
// records drawn with a built-in primitive.
func ActorType(rec Record) string {
	switch r := rec.(type) {
	case *Regular:
		return r.ActorType()
	case *Camera:
		return r.Name
	default:
		return ""
	}
}
