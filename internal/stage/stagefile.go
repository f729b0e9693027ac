package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Stage is a loaded stage scenario.
type Stage struct {
	Name     string
	Scenario int
	Records  []Record
}

// Ref identifies a stage file without loading its objects.
type Ref struct {
	Name     string
	Scenario int
	Path     string
}

// Key is the stage name with the scenario appended, as shown in the UI.
func (r Ref) Key() string {
	return fmt.Sprintf("%s%d", r.Name, r.Scenario)
}

// --- JSON types ---

type stageFile struct {
	Name     string      `json:"name"`
	Scenario int         `json:"scenario"`
	Objects  []objectDef `json:"objects"`
}

type objectDef struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ModelName string         `json:"modelName,omitempty"`
	Layer     string         `json:"layer,omitempty"`
	Position  [3]float32     `json:"position"`
	Rotation  [3]float32     `json:"rotation"`
	Scale     [3]float32     `json:"scale"`
	Args      map[string]any `json:"args,omitempty"`
	Switches  map[string]int `json:"switches,omitempty"`

	Rail     string     `json:"rail,omitempty"`
	Priority int        `json:"priority,omitempty"`
	CameraID int        `json:"cameraId,omitempty"`
	ParentID string     `json:"parentId,omitempty"`
	Target   [3]float32 `json:"target,omitempty"`
}

// --- Loading ---

// ListStages returns the stage files found in dir, ordered by name then
// scenario. Only the header of each file is decoded.
func ListStages(dir string) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}

	var refs []Ref
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read stage %q: %w", path, err)
		}
		var hdr struct {
			Name     string `json:"name"`
			Scenario int    `json:"scenario"`
		}
		if err := json.Unmarshal(data, &hdr); err != nil {
			return nil, fmt.Errorf("parse stage %q: %w", path, err)
		}
		if hdr.Name == "" {
			hdr.Name = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		refs = append(refs, Ref{Name: hdr.Name, Scenario: hdr.Scenario, Path: path})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Scenario < refs[j].Scenario
	})
	return refs, nil
}

// Load reads and decodes the stage file behind ref.
func Load(ref Ref) (*Stage, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("read stage %q: %w", ref.Key(), err)
	}
	st, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse stage %q: %w", ref.Key(), err)
	}
	if st.Name == "" {
		st.Name = ref.Name
	}
	return st, nil
}

// Parse decodes a stage from its JSON form.
func Parse(data []byte) (*Stage, error) {
	var sf stageFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, err
	}

	st := &Stage{
		Name:     sf.Name,
		Scenario: sf.Scenario,
		Records:  make([]Record, 0, len(sf.Objects)),
	}
	for i, def := range sf.Objects {
		rec, err := def.record()
		if err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, def.Name, err)
		}
		st.Records = append(st.Records, rec)
	}
	return st, nil
}

func vec3(v [3]float32) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

func (def objectDef) common() Common {
	c := Common{
		ID:       def.ID,
		Name:     def.Name,
		Layer:    def.Layer,
		Position: vec3(def.Position),
		Rotation: vec3(def.Rotation),
		Scale:    vec3(def.Scale),
		Args:     def.Args,
		Switches: def.Switches,
	}
	// Default scale to 1 if zero
	if def.Scale == [3]float32{} {
		c.Scale = rl.Vector3{X: 1, Y: 1, Z: 1}
	}
	if c.Args == nil {
		c.Args = map[string]any{}
	}
	if c.Switches == nil {
		c.Switches = map[string]int{}
	}
	return c
}

func (def objectDef) record() (Record, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	switch strings.ToLower(def.Kind) {
	case "", "regular", "obj":
		return &Regular{Common: def.common(), ModelName: def.ModelName, Rail: def.Rail}, nil
	case "area":
		return &Area{Common: def.common(), Priority: def.Priority}, nil
	case "cameraarea":
		return &CameraArea{Common: def.common(), CameraID: def.CameraID}, nil
	case "areachild":
		return &AreaChild{Common: def.common(), ParentID: def.ParentID}, nil
	case "camera":
		return &Camera{Common: def.common(), Target: vec3(def.Target)}, nil
	default:
		return nil, fmt.Errorf("unknown object kind %q", def.Kind)
	}
}
