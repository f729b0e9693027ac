// Package scene holds the objects of the stages open in the editor.
package scene

import (
	"sync"
	"sync/atomic"

	"stagecraft/internal/stage"
)

// MaxPickingID is the largest picking ID; the picking pass encodes IDs in
// the 24 RGB bits of a color.
const MaxPickingID = 1<<24 - 1

// Scene is the live object list of one loaded stage scenario. The
// background worker fills it with AddAll; the render thread reads it every
// frame. Picking IDs start at 1 and are never handed out twice, even after
// Remove. Once MaxPickingID is reached further objects get ID 0 and cannot
// be picked.
type Scene struct {
	Name     string
	Scenario int

	mu      sync.RWMutex
	objects []*Object
	byID    map[uint32]*Object
	nextID  uint32
	ready   atomic.Bool
}

func New(name string, scenario int) *Scene {
	return &Scene{
		Name:     name,
		Scenario: scenario,
		objects:  make([]*Object, 0),
		byID:     make(map[uint32]*Object),
		nextID:   1,
	}
}

// Ready is set once the loading task has published every object.
func (s *Scene) Ready() bool { return s.ready.Load() }

func (s *Scene) SetReady() { s.ready.Store(true) }

// Add places a single record and returns its object.
func (s *Scene) Add(rec stage.Record) *Object {
	return s.AddAll([]stage.Record{rec})[0]
}

// AddAll builds objects for every record and appends them in one step, so
// a reader never sees half of a batch. AreaChild records are linked to the
// object whose record ID matches their ParentID, unless that would make
// the parent chain loop.
func (s *Scene) AddAll(recs []stage.Record) []*Object {
	batch := make([]*Object, len(recs))
	for i, rec := range recs {
		batch[i] = newObject(rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range batch {
		if s.nextID > MaxPickingID {
			continue
		}
		o.PickingID = s.nextID
		s.nextID++
		s.byID[o.PickingID] = o
	}
	s.objects = append(s.objects, batch...)
	s.linkParents(batch)
	return batch
}

func (s *Scene) linkParents(batch []*Object) {
	var byRecordID map[string]*Object
	for _, o := range batch {
		child, ok := o.Record.(*stage.AreaChild)
		if !ok || child.ParentID == "" {
			continue
		}
		if byRecordID == nil {
			byRecordID = make(map[string]*Object, len(s.objects))
			for _, other := range s.objects {
				if id := other.Record.Base().ID; id != "" {
					byRecordID[id] = other
				}
			}
		}
		// a link that would close a cycle is dropped; the child stays
		// unparented and shows up in Unlinked
		if p := byRecordID[child.ParentID]; p != nil && !p.descendsFrom(o) {
			o.parent = p
		}
	}
}

// Unlinked returns the AreaChild objects of objs that name a parent but
// were left without one, because the parent is missing or the link would
// form a cycle.
func Unlinked(objs []*Object) []*Object {
	var out []*Object
	for _, o := range objs {
		if child, ok := o.Record.(*stage.AreaChild); ok && child.ParentID != "" && o.parent == nil {
			out = append(out, o)
		}
	}
	return out
}

// Remove drops obj from the scene. Its picking ID is retired.
func (s *Scene) Remove(obj *Object) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.objects {
		if o == obj {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			delete(s.byID, obj.PickingID)
			for _, other := range s.objects {
				if other.parent == obj {
					other.parent = nil
				}
			}
			return true
		}
	}
	return false
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Objects returns a snapshot of the object list in insertion order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// Each calls fn for every object in insertion order. fn must not add or
// remove objects.
func (s *Scene) Each(fn func(*Object)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		fn(o)
	}
}

// Find returns the first object matching pred, or nil.
func (s *Scene) Find(pred func(*Object) bool) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if pred(o) {
			return o
		}
	}
	return nil
}

func (s *Scene) FindAll(pred func(*Object) bool) []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*Object
	for _, o := range s.objects {
		if pred(o) {
			result = append(result, o)
		}
	}
	return result
}

// FindByName returns the first object whose record has the given name.
func (s *Scene) FindByName(name string) *Object {
	return s.Find(func(o *Object) bool { return o.Name() == name })
}

// ByPickingID resolves an ID read back from the picking buffer.
func (s *Scene) ByPickingID(id uint32) *Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// Select marks obj selected. Without additive every other object is
// deselected first. A nil obj with additive false clears the selection.
func (s *Scene) Select(obj *Object, additive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !additive {
		for _, o := range s.objects {
			o.Selected = false
		}
	}
	if obj != nil {
		obj.Selected = true
	}
}

func (s *Scene) ClearSelection() {
	s.Select(nil, false)
}

func (s *Scene) Selected() []*Object {
	return s.FindAll(func(o *Object) bool { return o.Selected })
}
