package seeder

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML seed document. Menu options are addressed by their path
// from the root, segments joined with "/".
type File struct {
	Menu         []MenuSeed        `yaml:"menu"`
	AccessLevels []AccessLevelSeed `yaml:"accessLevels"`
	Skills       []SkillSeed       `yaml:"skills"`
}

type MenuSeed struct {
	Name     string     `yaml:"name"`
	Children []MenuSeed `yaml:"children"`
}

type AccessLevelSeed struct {
	Name  string   `yaml:"name"`
	Menus []string `yaml:"menus"`
}

type SkillSeed struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Links       []LinkSeed `yaml:"links"`
}

type LinkSeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func LoadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Load(bytes.NewReader(b))
}

// Load decodes a seed document. Unknown keys are rejected so typos surface
// instead of silently seeding nothing.
func Load(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return File{}, nil
		}
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) validate() error {
	paths := map[string]struct{}{}
	var walk func(prefix string, nodes []MenuSeed) error
	walk = func(prefix string, nodes []MenuSeed) error {
		for _, n := range nodes {
			name := strings.TrimSpace(n.Name)
			if name == "" || strings.Contains(name, "/") {
				return fmt.Errorf("seed menu %q: invalid name %q", prefix, n.Name)
			}
			p := joinPath(prefix, name)
			if _, dup := paths[p]; dup {
				return fmt.Errorf("seed menu %q: declared twice", p)
			}
			paths[p] = struct{}{}
			if err := walk(p, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("", f.Menu); err != nil {
		return err
	}

	for _, a := range f.AccessLevels {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("seed access level: name is required")
		}
		for _, m := range a.Menus {
			if _, ok := paths[m]; !ok {
				return fmt.Errorf("seed access level %q: unknown menu %q", a.Name, m)
			}
		}
	}
	for _, s := range f.Skills {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("seed skill: name is required")
		}
	}
	return nil
}

// Defaults returns the seeders for f in dependency order.
func (f File) Defaults() []Seeder {
	return []Seeder{
		MenuSeeder{Nodes: f.Menu},
		AccessLevelSeeder{Levels: f.AccessLevels},
		SkillSeeder{Skills: f.Skills},
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
