package editor

import (
	"fmt"
	"sort"

	"stagecraft/internal/scene"
	"stagecraft/internal/stage"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	topBarH     = int32(36)
	statusBarH  = int32(24)
	itemH       = int32(22)
	doubleClick = 0.3 // seconds
)

// Theme colors
var (
	colorBgDark    = rl.NewColor(10, 10, 15, 255)
	colorBgPanel   = rl.NewColor(18, 18, 24, 245)
	colorBgElement = rl.NewColor(28, 28, 38, 255)
	colorBgHover   = rl.NewColor(38, 38, 52, 255)

	colorAccent      = rl.NewColor(108, 99, 255, 255)
	colorAccentLight = rl.NewColor(167, 139, 250, 255)
	colorFault       = rl.NewColor(220, 80, 80, 255)

	colorTextPrimary   = rl.NewColor(255, 255, 255, 255)
	colorTextSecondary = rl.NewColor(200, 200, 208, 255)
	colorTextMuted     = rl.NewColor(119, 119, 119, 255)

	colorBorder    = rl.NewColor(255, 255, 255, 13)
	colorSelection = rl.NewColor(108, 99, 255, 60)
)

type uiState struct {
	stageListWidth int32
	inspectorWidth int32
	stageScroll    int32

	lastStageClick   float64
	lastClickedStage int
	lastObjectClick  float64
	lastClickedObj   *scene.Object
}

func newUIState() uiState {
	return uiState{
		stageListWidth:   210,
		inspectorWidth:   310,
		lastClickedStage: -1,
	}
}

// initStyle applies the dark raygui theme.
func initStyle() {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgDark))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))

	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorTextSecondary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_FOCUSED, gui.NewColorPropertyValue(colorTextPrimary))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_PRESSED, gui.NewColorPropertyValue(colorTextPrimary))

	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_NORMAL, gui.NewColorPropertyValue(rl.NewColor(50, 50, 65, 255)))
	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_FOCUSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.LINE_COLOR, gui.NewColorPropertyValue(rl.NewColor(40, 40, 55, 255)))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 15)
}

// viewport is the screen area left for the 3D view.
func (e *Editor) viewport() rl.Rectangle {
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	x := e.ui.stageListWidth
	return rl.Rectangle{
		X:      float32(x),
		Y:      float32(topBarH),
		Width:  float32(w - x - e.ui.inspectorWidth),
		Height: float32(h - topBarH - statusBarH),
	}
}

func (e *Editor) mouseInViewport() bool {
	return rl.CheckCollisionPointRec(rl.GetMousePosition(), e.viewport())
}

// drawUI draws the 2D overlay: top bar, stage list, inspector and status
// bar.
func (e *Editor) drawUI() {
	e.drawTopBar()
	e.drawStageList()
	e.drawInspector()
	e.drawStatusBar()
}

func (e *Editor) drawTopBar() {
	w := int32(rl.GetScreenWidth())
	rl.DrawRectangle(0, 0, w, topBarH, colorBgDark)
	rl.DrawRectangle(0, topBarH-1, w, 1, colorBorder)

	title := "No stage open"
	if sc := e.scenes.Active(); sc != nil {
		title = fmt.Sprintf("%s%d  (%d objects)", sc.Name, sc.Scenario, sc.Len())
		if !sc.Ready() {
			title += "  loading"
		}
	}
	rl.DrawText(title, 12, 9, 18, colorTextPrimary)

	if gui.Button(rl.Rectangle{X: float32(w - 170), Y: 6, Width: 76, Height: 24}, "Rescan") {
		e.RefreshStages()
	}
	if gui.Button(rl.Rectangle{X: float32(w - 88), Y: 6, Width: 80, Height: 24}, "Classes") {
		e.ReloadClassDB()
	}
}

// drawStageList draws the stage panel on the left. Double-clicking a
// stage loads it.
func (e *Editor) drawStageList() {
	panelX, panelY := int32(0), topBarH
	panelW := e.ui.stageListWidth
	panelH := int32(rl.GetScreenHeight()) - panelY - statusBarH

	rl.DrawRectangle(panelX, panelY, panelW, panelH, colorBgPanel)
	rl.DrawRectangle(panelX+panelW-2, panelY, 2, panelH, colorBorder)
	rl.DrawText("Stages", panelX+12, panelY+8, 18, colorTextSecondary)

	refs, err := e.Stages()
	if err != nil {
		rl.DrawText("stage directory unreadable", panelX+12, panelY+34, 14, colorFault)
		return
	}

	mouse := rl.GetMousePosition()
	mouseInPanel := mouse.X >= float32(panelX) && mouse.X <= float32(panelX+panelW) &&
		mouse.Y >= float32(panelY) && mouse.Y <= float32(panelY+panelH)
	if mouseInPanel {
		e.ui.stageScroll -= int32(rl.GetMouseWheelMove() * 20)
	}
	maxScroll := int32(len(refs))*itemH - panelH + 30
	e.ui.stageScroll = max(0, min(e.ui.stageScroll, maxScroll))

	active := e.scenes.Active()
	y := panelY + 30
	rl.BeginScissorMode(panelX, y, panelW, panelH-30)
	for i, ref := range refs {
		itemY := y + int32(i)*itemH - e.ui.stageScroll
		if itemY+itemH < y || itemY > panelY+panelH {
			continue
		}

		hovered := mouseInPanel && mouse.Y >= float32(itemY) && mouse.Y < float32(itemY+itemH)
		open := active != nil && active.Name == ref.Name && active.Scenario == ref.Scenario
		switch {
		case open:
			rl.DrawRectangle(panelX, itemY, panelW, itemH, colorSelection)
			rl.DrawRectangle(panelX, itemY, 3, itemH, colorAccent)
		case hovered:
			rl.DrawRectangle(panelX, itemY, panelW, itemH, colorBgHover)
		}

		if hovered && rl.IsMouseButtonPressed(rl.MouseLeftButton) {
			now := rl.GetTime()
			if now-e.ui.lastStageClick < doubleClick && e.ui.lastClickedStage == i {
				e.LoadStage(ref)
			}
			e.ui.lastStageClick = now
			e.ui.lastClickedStage = i
		}

		txt := colorTextSecondary
		if open {
			txt = colorAccentLight
		}
		rl.DrawText(ref.Key(), panelX+12, itemY+3, 16, txt)
	}
	rl.EndScissorMode()
}

// drawInspector lists the selected object's record on the right.
func (e *Editor) drawInspector() {
	w := int32(rl.GetScreenWidth())
	panelW := e.ui.inspectorWidth
	panelX, panelY := w-panelW, topBarH
	panelH := int32(rl.GetScreenHeight()) - panelY - statusBarH

	rl.DrawRectangle(panelX, panelY, panelW, panelH, colorBgPanel)
	rl.DrawRectangle(panelX, panelY, 2, panelH, colorBorder)
	rl.DrawText("Inspector", panelX+12, panelY+8, 18, colorTextSecondary)

	sc := e.scenes.Active()
	if sc == nil {
		return
	}
	selected := sc.Selected()
	if len(selected) == 0 {
		rl.DrawText("Nothing selected", panelX+12, panelY+34, 14, colorTextMuted)
		return
	}
	if len(selected) > 1 {
		rl.DrawText(fmt.Sprintf("%d objects selected", len(selected)), panelX+12, panelY+34, 14, colorTextMuted)
		return
	}

	lines := inspectorLines(selected[0], e.ClassDB())
	y := panelY + 34
	rl.BeginScissorMode(panelX, y, panelW, panelH-34)
	for i, l := range lines {
		color := colorTextSecondary
		if l.header {
			color = colorAccentLight
		}
		rl.DrawText(l.text, panelX+12, y+int32(i)*18, 14, color)
	}
	rl.EndScissorMode()
}

type inspectorLine struct {
	text   string
	header bool
}

// inspectorLines formats a scene object for the inspector panel.
func inspectorLines(obj *scene.Object, db *stage.ClassDB) []inspectorLine {
	c := obj.Record.Base()
	lines := []inspectorLine{
		{text: obj.Name(), header: true},
		{text: fmt.Sprintf("id: %s  kind: %s", c.ID, obj.Kind())},
		{text: fmt.Sprintf("layer: %s  pick: %d", c.Layer, obj.PickingID)},
		{text: fmt.Sprintf("pos: %.1f %.1f %.1f", c.Position.X, c.Position.Y, c.Position.Z)},
		{text: fmt.Sprintf("rot: %.1f %.1f %.1f", c.Rotation.X, c.Rotation.Y, c.Rotation.Z)},
		{text: fmt.Sprintf("scale: %.2f %.2f %.2f", c.Scale.X, c.Scale.Y, c.Scale.Z)},
	}

	switch r := obj.Record.(type) {
	case *stage.Regular:
		if r.ModelName != "" {
			lines = append(lines, inspectorLine{text: "model: " + r.ModelName})
		}
		if r.Rail != "" {
			lines = append(lines, inspectorLine{text: "rail: " + r.Rail})
		}
		if db != nil {
			if entry, ok := db.Lookup(r.Name); ok {
				lines = append(lines, inspectorLine{text: entry.Description})
			}
		}
	case *stage.Area:
		lines = append(lines, inspectorLine{text: fmt.Sprintf("priority: %d", r.Priority)})
	case *stage.CameraArea:
		lines = append(lines, inspectorLine{text: fmt.Sprintf("camera: %d", r.CameraID)})
	case *stage.AreaChild:
		lines = append(lines, inspectorLine{text: "parent: " + r.ParentID})
	case *stage.Camera:
		lines = append(lines, inspectorLine{text: fmt.Sprintf("target: %.1f %.1f %.1f", r.Target.X, r.Target.Y, r.Target.Z)})
	}

	if len(c.Args) > 0 {
		lines = append(lines, inspectorLine{text: "Args", header: true})
		for _, k := range sortedKeys(c.Args) {
			lines = append(lines, inspectorLine{text: fmt.Sprintf("%s: %v", k, c.Args[k])})
		}
	}
	if len(c.Switches) > 0 {
		lines = append(lines, inspectorLine{text: "Switches", header: true})
		for _, k := range sortedKeys(c.Switches) {
			lines = append(lines, inspectorLine{text: fmt.Sprintf("%s: %d", k, c.Switches[k])})
		}
	}
	return lines
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Editor) drawStatusBar() {
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	st := e.Status()

	text := st.String()
	if st.Pending > 0 && st.Fault == nil {
		text += fmt.Sprintf("  (+%d queued)", st.Pending)
	}
	gui.StatusBar(rl.Rectangle{X: 0, Y: float32(h - statusBarH), Width: float32(w), Height: float32(statusBarH)}, text)
	if st.Fault != nil {
		rl.DrawRectangle(0, h-statusBarH, 4, statusBarH, colorFault)
	}
}
