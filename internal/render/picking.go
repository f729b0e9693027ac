package render

import (
	"stagecraft/internal/scene"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// MaxPickingID is the largest ID that fits the 24-bit color encoding.
const MaxPickingID = scene.MaxPickingID

// PickingColor encodes id into the RGB channels of an opaque color. ID 0
// is black, the clear color of the picking target.
func PickingColor(id uint32) rl.Color {
	return rl.NewColor(uint8(id), uint8(id>>8), uint8(id>>16), 255)
}

// PickingVec4 is PickingColor as normalized shader input.
func PickingVec4(id uint32) [4]float32 {
	c := PickingColor(id)
	return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1}
}

// PickingIDFromColor decodes a color read back from the picking target.
func PickingIDFromColor(c rl.Color) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
}
