package camera

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	minMoveSpeed = 1.0
	maxMoveSpeed = 100.0
	zoomSpeed    = 4.0 // completes a focus in ~0.25s
)

// Input is one frame of camera controls. ReadInput fills it from raylib;
// tests build it directly.
type Input struct {
	Look       bool // right mouse held: mouse look and flying enabled
	MouseDelta rl.Vector2
	Forward    bool
	Back       bool
	Left       bool
	Right      bool
	Up         bool
	Down       bool
	SpeedWheel float32 // wheel movement while shift is held
}

// ReadInput samples the editor camera bindings: right-click drag to look,
// right-click + WASD/QE to fly, shift + wheel for fly speed.
func ReadInput() Input {
	in := Input{
		Look:       rl.IsMouseButtonDown(rl.MouseRightButton),
		MouseDelta: rl.GetMouseDelta(),
		Forward:    rl.IsKeyDown(rl.KeyW),
		Back:       rl.IsKeyDown(rl.KeyS),
		Left:       rl.IsKeyDown(rl.KeyA),
		Right:      rl.IsKeyDown(rl.KeyD),
		Up:         rl.IsKeyDown(rl.KeyE),
		Down:       rl.IsKeyDown(rl.KeyQ),
	}
	if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
		in.SpeedWheel = rl.GetMouseWheelMove()
	}
	return in
}

// FlyCamera is the free-flying editor camera.
type FlyCamera struct {
	Position  rl.Vector3
	Yaw       float32 // degrees
	Pitch     float32 // degrees, clamped to +-89
	MoveSpeed float32 // units per second
	LookSpeed float32
	Fovy      float32
	Near, Far float32

	zooming      bool
	zoomStart    rl.Vector3
	zoomTarget   rl.Vector3
	zoomProgress float32
}

func New(pos rl.Vector3) *FlyCamera {
	return &FlyCamera{
		Position:  pos,
		Yaw:       -135.0,
		Pitch:     -30.0,
		MoveSpeed: 10.0,
		LookSpeed: 0.1,
		Fovy:      45,
		Near:      0.1,
		Far:       10000,
	}
}

// Update applies one frame of input and advances any focus animation.
func (c *FlyCamera) Update(deltaTime float32, in Input) {
	c.updateZoom(deltaTime)

	if in.Look {
		// manual control cancels a focus animation
		c.zooming = false

		c.Yaw += in.MouseDelta.X * c.LookSpeed
		c.Pitch -= in.MouseDelta.Y * c.LookSpeed
		c.Pitch = clamp(c.Pitch, -89, 89)

		forward, right := c.Directions()
		speed := c.MoveSpeed * deltaTime
		if in.Forward {
			c.Position = rl.Vector3Add(c.Position, rl.Vector3Scale(forward, speed))
		}
		if in.Back {
			c.Position = rl.Vector3Add(c.Position, rl.Vector3Scale(forward, -speed))
		}
		if in.Left {
			c.Position = rl.Vector3Add(c.Position, rl.Vector3Scale(right, speed))
		}
		if in.Right {
			c.Position = rl.Vector3Add(c.Position, rl.Vector3Scale(right, -speed))
		}
		if in.Up {
			c.Position.Y += speed
		}
		if in.Down {
			c.Position.Y -= speed
		}
	}

	if in.SpeedWheel != 0 {
		c.MoveSpeed = clamp(c.MoveSpeed+in.SpeedWheel*2, minMoveSpeed, maxMoveSpeed)
	}
}

// Directions returns the unit look direction and the horizontal left
// vector.
func (c *FlyCamera) Directions() (forward, right rl.Vector3) {
	yawRad := float64(c.Yaw) * math.Pi / 180
	pitchRad := float64(c.Pitch) * math.Pi / 180

	forward = rl.Vector3{
		X: float32(math.Cos(yawRad) * math.Cos(pitchRad)),
		Y: float32(math.Sin(pitchRad)),
		Z: float32(math.Sin(yawRad) * math.Cos(pitchRad)),
	}
	right = rl.Vector3{
		X: float32(math.Sin(yawRad)),
		Y: 0,
		Z: float32(-math.Cos(yawRad)),
	}
	return
}

// LookAt turns the camera toward target without moving it.
func (c *FlyCamera) LookAt(target rl.Vector3) {
	dir := rl.Vector3Subtract(target, c.Position)
	if rl.Vector3Length(dir) == 0 {
		return
	}
	dir = rl.Vector3Normalize(dir)
	c.Pitch = float32(math.Asin(float64(dir.Y))) * rl.Rad2deg
	c.Yaw = float32(math.Atan2(float64(dir.Z), float64(dir.X))) * rl.Rad2deg
}

// Focus starts a smooth move to a point radius*3 (at least 3 units) away
// from target along the current view direction.
func (c *FlyCamera) Focus(target rl.Vector3, radius float32) {
	distance := radius * 3
	if distance < 3 {
		distance = 3
	}
	forward, _ := c.Directions()

	c.zooming = true
	c.zoomStart = c.Position
	c.zoomTarget = rl.Vector3Subtract(target, rl.Vector3Scale(forward, distance))
	c.zoomProgress = 0
}

// Focusing reports whether a focus animation is in progress.
func (c *FlyCamera) Focusing() bool { return c.zooming }

func (c *FlyCamera) updateZoom(deltaTime float32) {
	if !c.zooming {
		return
	}
	c.zoomProgress += deltaTime * zoomSpeed
	if c.zoomProgress >= 1 {
		c.zooming = false
		c.Position = c.zoomTarget
		return
	}

	// ease-out cubic
	t := c.zoomProgress
	ease := 1 - (1-t)*(1-t)*(1-t)
	c.Position = rl.Vector3Lerp(c.zoomStart, c.zoomTarget, ease)
}

func (c *FlyCamera) Camera3D() rl.Camera3D {
	forward, _ := c.Directions()
	return rl.Camera3D{
		Position:   c.Position,
		Target:     rl.Vector3Add(c.Position, forward),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       c.Fovy,
		Projection: rl.CameraPerspective,
	}
}

func (c *FlyCamera) View() rl.Matrix {
	cam := c.Camera3D()
	return rl.MatrixLookAt(cam.Position, cam.Target, cam.Up)
}

// Projection returns the perspective matrix for a viewport of the given
// aspect ratio (width / height).
func (c *FlyCamera) Projection(aspect float32) rl.Matrix {
	if aspect <= 0 {
		aspect = 1
	}
	return rl.MatrixPerspective(c.Fovy*rl.Deg2rad, aspect, c.Near, c.Far)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
