package scene

import "sync"

// Set is the list of scenes open in the editor and which one is shown.
type Set struct {
	mu     sync.Mutex
	scenes []*Scene
	active *Scene
}

func NewSet() *Set {
	return &Set{}
}

// Find returns the open scene for a stage scenario, or nil.
func (s *Set) Find(name string, scenario int) *Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(name, scenario)
}

func (s *Set) find(name string, scenario int) *Scene {
	for _, sc := range s.scenes {
		if sc.Name == name && sc.Scenario == scenario {
			return sc
		}
	}
	return nil
}

// FindOrCreate returns the scene for the stage scenario, creating it when
// missing. created reports whether a new scene was added.
func (s *Set) FindOrCreate(name string, scenario int) (sc *Scene, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc = s.find(name, scenario); sc != nil {
		return sc, false
	}
	sc = New(name, scenario)
	s.scenes = append(s.scenes, sc)
	return sc, true
}

func (s *Set) Active() *Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Set) SetActive(sc *Scene) {
	s.mu.Lock()
	s.active = sc
	s.mu.Unlock()
}

// Close removes sc. If it was active, the most recently opened remaining
// scene becomes active.
func (s *Set) Close(sc *Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.scenes {
		if other == sc {
			s.scenes = append(s.scenes[:i], s.scenes[i+1:]...)
			break
		}
	}
	if s.active == sc {
		s.active = nil
		if n := len(s.scenes); n > 0 {
			s.active = s.scenes[n-1]
		}
	}
}

func (s *Set) All() []*Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Scene, len(s.scenes))
	copy(out, s.scenes)
	return out
}
