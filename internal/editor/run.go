package editor

import (
	"stagecraft/internal/camera"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Run opens the window and drives the editor until it is closed. The
// worker is stopped before Run returns.
func (e *Editor) Run() error {
	w := e.cfg.Window
	rl.SetConfigFlags(rl.FlagWindowHighdpi | rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(w.Width, w.Height, w.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(w.FPS)
	rl.SetExitKey(0)

	if err := e.Start(); err != nil {
		return err
	}
	defer e.Close()
	initStyle()

	e.log.Info().Int32("width", w.Width).Int32("height", w.Height).Msg("Editor window open")

	for !rl.WindowShouldClose() {
		e.frame(rl.GetFrameTime())
	}
	return nil
}

func (e *Editor) frame(deltaTime float32) {
	aspect := float32(rl.GetScreenWidth()) / float32(max(1, rl.GetScreenHeight()))

	in := camera.ReadInput()
	if !e.mouseInViewport() {
		in.SpeedWheel = 0
	}
	e.Update(deltaTime, in)
	e.handleViewportClick(aspect)

	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(20, 20, 30, 255))

	rl.BeginMode3D(e.camera.Camera3D())
	rl.DrawGrid(40, 10)
	e.DrawScene(aspect)
	rl.EndMode3D()

	e.drawUI()
	rl.EndDrawing()
}

// handleViewportClick picks on left click; shift adds to the selection and
// a double click focuses the camera on the object.
func (e *Editor) handleViewportClick(aspect float32) {
	if !rl.IsMouseButtonPressed(rl.MouseLeftButton) || !e.mouseInViewport() {
		return
	}
	additive := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
	pos := rl.GetMousePosition()
	obj := e.Pick(int32(pos.X), int32(pos.Y), aspect, additive)

	now := rl.GetTime()
	if obj != nil && obj == e.ui.lastClickedObj && now-e.ui.lastObjectClick < doubleClick {
		e.Focus(obj)
	}
	e.ui.lastObjectClick = now
	e.ui.lastClickedObj = obj
}
