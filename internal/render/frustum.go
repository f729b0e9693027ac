package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Frustum is the 6 planes of a view volume, normals pointing inward.
type Frustum struct {
	planes [6]Plane // left, right, bottom, top, near, far
}

// Plane is ax + by + cz + d = 0 with (a, b, c) = normal.
type Plane struct {
	normal   rl.Vector3
	distance float32
}

// ExtractFrustum builds the frustum of a camera from its view and
// projection matrices (Gribb/Hartmann plane extraction).
func ExtractFrustum(view, projection rl.Matrix) Frustum {
	vp := rl.MatrixMultiply(view, projection)

	row := func(i int) [4]float32 {
		switch i {
		case 0:
			return [4]float32{vp.M0, vp.M4, vp.M8, vp.M12}
		case 1:
			return [4]float32{vp.M1, vp.M5, vp.M9, vp.M13}
		case 2:
			return [4]float32{vp.M2, vp.M6, vp.M10, vp.M14}
		default:
			return [4]float32{vp.M3, vp.M7, vp.M11, vp.M15}
		}
	}
	w := row(3)
	plane := func(r [4]float32, sign float32) Plane {
		return normalizePlane(Plane{
			normal: rl.Vector3{
				X: w[0] + sign*r[0],
				Y: w[1] + sign*r[1],
				Z: w[2] + sign*r[2],
			},
			distance: w[3] + sign*r[3],
		})
	}

	var f Frustum
	for axis := 0; axis < 3; axis++ {
		f.planes[axis*2] = plane(row(axis), 1)
		f.planes[axis*2+1] = plane(row(axis), -1)
	}
	return f
}

func normalizePlane(p Plane) Plane {
	length := rl.Vector3Length(p.normal)
	if length == 0 {
		return p
	}
	return Plane{
		normal:   rl.Vector3Scale(p.normal, 1.0/length),
		distance: p.distance / length,
	}
}

// ContainsSphere reports whether a sphere is inside or intersects the
// frustum.
func (f *Frustum) ContainsSphere(center rl.Vector3, radius float32) bool {
	for i := range f.planes {
		dist := rl.Vector3DotProduct(f.planes[i].normal, center) + f.planes[i].distance
		if dist < -radius {
			return false
		}
	}
	return true
}

func (f *Frustum) ContainsPoint(point rl.Vector3) bool {
	return f.ContainsSphere(point, 0)
}

// maxAxisScale is the largest scale factor of the basis vectors of m.
func maxAxisScale(m rl.Matrix) float32 {
	x := rl.Vector3Length(rl.Vector3{X: m.M0, Y: m.M1, Z: m.M2})
	y := rl.Vector3Length(rl.Vector3{X: m.M4, Y: m.M5, Z: m.M6})
	z := rl.Vector3Length(rl.Vector3{X: m.M8, Y: m.M9, Z: m.M10})
	return max(x, y, z)
}
