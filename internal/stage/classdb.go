package stage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownClass is returned by Resolve for a class missing from the
// database.
var ErrUnknownClass = errors.New("class not in database")

// ArgDef describes one object argument.
type ArgDef struct {
	Type        string `yaml:"Type"`
	Default     any    `yaml:"Default"`
	Description string `yaml:"Description"`
	Name        string `yaml:"Name"`
	Required    bool   `yaml:"Required"`
}

type SwitchDef struct {
	Type        string `yaml:"Type"`
	Description string `yaml:"Description"`
}

// ClassEntry is one class database entry.
type ClassEntry struct {
	ClassName             string               `yaml:"ClassName"`
	ClassNameFull         string               `yaml:"ClassNameFull"`
	Name                  string               `yaml:"Name"`
	Description           string               `yaml:"Description"`
	DescriptionAdditional string               `yaml:"DescriptionAdditional"`
	RailRequired          bool                 `yaml:"RailRequired"`
	Args                  map[string]ArgDef    `yaml:"Args"`
	Switches              map[string]SwitchDef `yaml:"Switches"`
}

// ClassDB maps class names to their entries. It is not modified after
// loading, so a single instance can be shared between goroutines.
type ClassDB struct {
	entries map[string]ClassEntry
}

// IsClassFile reports whether path looks like a class database entry.
func IsClassFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// LoadClassDB reads every YAML file in dir. A file may hold several
// entries as separate YAML documents. Entries without a ClassName take the
// file's base name.
func LoadClassDB(dir string) (*ClassDB, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read class database: %w", err)
	}

	db := &ClassDB{entries: make(map[string]ClassEntry)}
	for _, f := range files {
		if f.IsDir() || !IsClassFile(f.Name()) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		if err := db.loadFile(path); err != nil {
			return nil, fmt.Errorf("read class database: %s: %w", f.Name(), err)
		}
	}
	return db, nil
}

func (db *ClassDB) loadFile(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dec := yaml.NewDecoder(fh)
	for {
		var entry ClassEntry
		if err := dec.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if entry.ClassName == "" {
			entry.ClassName = base
		}
		db.entries[entry.ClassName] = entry
	}
}

// NewClassDB builds a database from in-memory entries.
func NewClassDB(entries ...ClassEntry) *ClassDB {
	db := &ClassDB{entries: make(map[string]ClassEntry, len(entries))}
	for _, e := range entries {
		db.entries[e.ClassName] = e
	}
	return db
}

func (db *ClassDB) Lookup(className string) (ClassEntry, bool) {
	if db == nil {
		return ClassEntry{}, false
	}
	e, ok := db.entries[className]
	return e, ok
}

func (db *ClassDB) Len() int {
	if db == nil {
		return 0
	}
	return len(db.entries)
}

// Classes returns the class names in sorted order.
func (db *ClassDB) Classes() []string {
	if db == nil {
		return nil
	}
	names := make([]string, 0, len(db.entries))
	for name := range db.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError lists what a placed object is missing according to its
// class entry.
type ValidationError struct {
	ID       string
	Class    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.ID, e.Class, strings.Join(e.Problems, "; "))
}

// Resolve fills unset arguments of r with their class defaults and checks
// required arguments and the rail requirement.
func (db *ClassDB) Resolve(r *Regular) error {
	entry, ok := db.Lookup(r.Name)
	if !ok {
		return fmt.Errorf("%s (%s): %w", r.ID, r.Name, ErrUnknownClass)
	}
	if r.Args == nil {
		r.Args = map[string]any{}
	}

	var problems []string
	keys := make([]string, 0, len(entry.Args))
	for k := range entry.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		def := entry.Args[key]
		if _, set := r.Args[key]; set {
			continue
		}
		if def.Default != nil {
			r.Args[key] = def.Default
			continue
		}
		if def.Required {
			problems = append(problems, fmt.Sprintf("missing required arg %s", key))
		}
	}
	if entry.RailRequired && r.Rail == "" {
		problems = append(problems, "rail required")
	}

	if len(problems) > 0 {
		return &ValidationError{ID: r.ID, Class: r.Name, Problems: problems}
	}
	return nil
}

// ResolveAll resolves every Regular record and joins the failures.
func (db *ClassDB) ResolveAll(records []Record) error {
	var errs []error
	for _, rec := range records {
		if r, ok := rec.(*Regular); ok {
			if err := db.Resolve(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
