package resource

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnemyArchetype is the level 1 template of a random encounter.
type EnemyArchetype struct {
	Name    string `yaml:"name" json:"name"`
	HP      int    `yaml:"hp" json:"hp"`
	Atk     int    `yaml:"atk" json:"atk"`
	Def     int    `yaml:"def" json:"def"`
	XP      int    `yaml:"xp" json:"xp"`
	GoldMin int    `yaml:"gold_min" json:"gold_min"`
	GoldMax int    `yaml:"gold_max" json:"gold_max"`
}

func (a EnemyArchetype) validate() error {
	if a.Name == "" {
		return fmt.Errorf("archetype without name")
	}
	if a.HP <= 0 {
		return fmt.Errorf("archetype %s: hp must be positive", a.Name)
	}
	if a.Atk < 0 || a.Def < 0 || a.XP < 0 {
		return fmt.Errorf("archetype %s: negative stat", a.Name)
	}
	if a.GoldMin < 0 || a.GoldMax < a.GoldMin {
		return fmt.Errorf("archetype %s: bad gold range [%d,%d]", a.Name, a.GoldMin, a.GoldMax)
	}
	return nil
}

// DefaultArchetypes is the built-in encounter table.
func DefaultArchetypes() []EnemyArchetype {
	return []EnemyArchetype{
		{Name: "Slime", HP: 16, Atk: 4, Def: 1, XP: 10, GoldMin: 2, GoldMax: 6},
		{Name: "Goblin", HP: 22, Atk: 6, Def: 2, XP: 14, GoldMin: 4, GoldMax: 10},
		{Name: "Wolf", HP: 20, Atk: 7, Def: 1, XP: 15, GoldMin: 3, GoldMax: 9},
		{Name: "Wisp", HP: 18, Atk: 8, Def: 1, XP: 16, GoldMin: 4, GoldMax: 12},
	}
}

type archetypeFile struct {
	Archetypes []EnemyArchetype `yaml:"archetypes"`
}

// LoadArchetypes reads an encounter table from a YAML file of the form
//
//	archetypes:
//	  - {name: Slime, hp: 16, atk: 4, def: 1, xp: 10, gold_min: 2, gold_max: 6}
//
// An empty path returns the defaults.
func LoadArchetypes(path string) ([]EnemyArchetype, error) {
	if path == "" {
		return DefaultArchetypes(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resource: read archetypes: %w", err)
	}
	return ParseArchetypes(data)
}

// ParseArchetypes decodes and validates a YAML encounter table.
func ParseArchetypes(data []byte) ([]EnemyArchetype, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("resource: parse archetypes: %w", err)
	}
	if len(f.Archetypes) == 0 {
		return nil, fmt.Errorf("resource: archetype table is empty")
	}
	for _, a := range f.Archetypes {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("resource: %w", err)
		}
	}
	return f.Archetypes, nil
}
