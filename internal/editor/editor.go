package editor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"stagecraft/internal/assets"
	"stagecraft/internal/background"
	"stagecraft/internal/camera"
	"stagecraft/internal/config"
	"stagecraft/internal/logging"
	"stagecraft/internal/render"
	"stagecraft/internal/scene"
	"stagecraft/internal/stage"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/rs/zerolog"
)

const classDBDebounce = 200 * time.Millisecond

// Picker reads back the picking ID under a screen pixel. draw renders the
// pickable scene; it is called inside the picking pass.
type Picker interface {
	PickAt(x, y int32, draw func()) uint32
}

// Editor is the application root. It owns the background worker, the open
// scenes and everything the render thread draws them with. Apart from
// LoadStage and ReloadClassDB, which only enqueue work, its methods belong
// to the render thread.
type Editor struct {
	cfg *config.Config
	log zerolog.Logger

	backend  render.Backend
	worker   *background.Worker
	scenes   *scene.Set
	library  *assets.Library
	cache    *render.Cache
	renderer *render.Renderer
	picker   Picker
	camera   *camera.FlyCamera
	classDB  atomic.Pointer[stage.ClassDB]
	watcher  *stage.ClassDBWatcher

	stages    []stage.Ref
	stagesErr error

	ui uiState
}

// New wires an editor around backend. If backend also implements Picker,
// clicks in the viewport select objects.
func New(cfg *config.Config, backend render.Backend, log zerolog.Logger) (*Editor, error) {
	worker, err := background.New(background.WithLogger(logging.Component(log, "worker")))
	if err != nil {
		return nil, fmt.Errorf("create worker: %w", err)
	}
	cache, err := render.NewCache(backend)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}
	library := assets.NewLibrary(cfg.Project.Models, cfg.Decoders)

	e := &Editor{
		cfg:     cfg,
		log:     logging.Component(log, "editor"),
		backend: backend,
		worker:  worker,
		scenes:  scene.NewSet(),
		library: library,
		cache:   cache,
		camera:  camera.New(rl.Vector3{X: 20, Y: 15, Z: 20}),
		ui:      newUIState(),
	}
	e.renderer = render.NewRenderer(backend, cache, library,
		render.WithModelScale(cfg.Render.ModelScale),
		render.WithAreaColor(cfg.Render.AreaColor),
		render.WithCubeColor(cfg.Render.CubeColor),
		render.WithHighlight(cfg.Render.Highlight),
		render.WithFrustumCulling(cfg.Render.FrustumCulling),
		render.WithLogger(logging.Component(log, "render")),
	)
	if p, ok := backend.(Picker); ok {
		e.picker = p
	}
	e.camera.LookAt(rl.Vector3{})
	return e, nil
}

func (e *Editor) Worker() *background.Worker  { return e.worker }
func (e *Editor) Scenes() *scene.Set           { return e.scenes }
func (e *Editor) Renderer() *render.Renderer   { return e.renderer }
func (e *Editor) Library() *assets.Library     { return e.library }
func (e *Editor) Camera() *camera.FlyCamera    { return e.camera }
func (e *Editor) ClassDB() *stage.ClassDB      { return e.classDB.Load() }
func (e *Editor) Stages() ([]stage.Ref, error) { return e.stages, e.stagesErr }

// Start initializes the renderer, starts the worker, queues the class
// database load and, when configured, starts watching the class database.
// The GPU context must exist.
func (e *Editor) Start() error {
	if err := e.renderer.Initialize(); err != nil {
		return err
	}
	e.worker.Start()
	e.ReloadClassDB()
	e.RefreshStages()

	if e.cfg.Project.WatchClassDB {
		w, err := stage.WatchClassDB(e.cfg.Project.ClassDB, classDBDebounce,
			logging.Component(e.log, "classdb"), e.ReloadClassDB)
		if err != nil {
			e.log.Warn().Err(err).Msg("Class database watcher not started")
		} else {
			e.watcher = w
		}
	}
	return nil
}

// Close stops the watcher and the worker, then releases GPU resources.
// Call it while the GPU context is still open.
func (e *Editor) Close() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.log.Warn().Err(err).Msg("Closing class database watcher")
		}
		e.watcher = nil
	}
	e.worker.RequestStop()
	e.cache.ResetAll()
	if u, ok := e.backend.(interface{ Unload() }); ok {
		u.Unload()
	}
}

// RefreshStages rescans the stage directory for the stage list.
func (e *Editor) RefreshStages() {
	e.stages, e.stagesErr = stage.ListStages(e.cfg.Project.Stages)
	if e.stagesErr != nil {
		e.log.Warn().Err(e.stagesErr).Str("dir", e.cfg.Project.Stages).Msg("Listing stages")
	}
}

// LoadStage opens the scene for ref and makes it active. A newly opened
// scene is filled by a background task; until it finishes the scene is
// empty and not ready.
func (e *Editor) LoadStage(ref stage.Ref) *scene.Scene {
	sc, created := e.scenes.FindOrCreate(ref.Name, ref.Scenario)
	if created {
		e.worker.Enqueue(fmt.Sprintf("Loading stage %q...", ref.Key()), e.loadStageTask(ref, sc))
	}
	e.scenes.SetActive(sc)
	return sc
}

// ReloadClassDB queues a reload of the class database. Safe to call from
// any goroutine.
func (e *Editor) ReloadClassDB() {
	e.worker.Enqueue("Reloading class database...", e.loadClassDBTask)
}

// Update advances the editor by one frame of input.
func (e *Editor) Update(deltaTime float32, in camera.Input) {
	e.camera.Update(deltaTime, in)
}

// DrawScene draws the active scene for a viewport of the given aspect
// ratio. The caller owns the surrounding 3D mode.
func (e *Editor) DrawScene(aspect float32) {
	e.renderer.UpdateMatrices(e.camera.View(), e.camera.Projection(aspect))
	if sc := e.scenes.Active(); sc != nil {
		e.renderer.DrawScene(sc)
	}
}

// Pick selects the object under screen pixel (x, y) in the active scene.
// Clicking the background clears the selection unless additive is set.
func (e *Editor) Pick(x, y int32, aspect float32, additive bool) *scene.Object {
	sc := e.scenes.Active()
	if sc == nil || e.picker == nil {
		return nil
	}
	id := e.picker.PickAt(x, y, func() {
		rl.BeginMode3D(e.camera.Camera3D())
		e.DrawScene(aspect)
		rl.EndMode3D()
	})

	obj := sc.ByPickingID(id)
	if obj == nil && additive {
		return nil
	}
	sc.Select(obj, additive)
	return obj
}

// Focus moves the camera to look at obj.
func (e *Editor) Focus(obj *scene.Object) {
	if obj == nil {
		return
	}
	s := obj.Record.Base().Scale
	radius := max(s.X, s.Y, s.Z) / 2
	e.camera.Focus(obj.WorldPosition(), radius)
}

// Status is what the status bar shows.
type Status struct {
	Label   string
	Message string
	Pending int
	Fault   error
}

func (e *Editor) Status() Status {
	st := Status{
		Label:   e.worker.CurrentLabel(),
		Message: e.worker.StatusMessage(),
		Pending: e.worker.Pending(),
	}
	if err := e.worker.Err(); err != nil && !errors.Is(err, background.ErrNotRunning) {
		st.Fault = err
	}
	return st
}

func (s Status) String() string {
	switch {
	case s.Fault != nil:
		return fmt.Sprintf("Background worker stopped: %v", s.Fault)
	case s.Label == "":
		return "Ready"
	case s.Message != "":
		return s.Label + " " + s.Message
	default:
		return s.Label
	}
}
