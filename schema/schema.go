package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Field describes one column of the tabular store: its name, semantic type,
// and a human description used to ground statement generation.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Descriptor is the static description of the tabular store. It is loaded
// once at process start, is read-only for the lifetime of the process, and
// is shared by all concurrent queries.
type Descriptor struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// Validate checks the descriptor for structural problems.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrNilDescriptor
	}
	if strings.TrimSpace(d.Table) == "" {
		return ErrEmptyTable
	}
	if len(d.Fields) == 0 {
		return ErrNoFields
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, field := range d.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return ErrEmptyFieldName
		}
		if strings.TrimSpace(field.Type) == "" {
			return fmt.Errorf("%w: field %q", ErrEmptyFieldType, field.Name)
		}
		if seen[field.Name] {
			return fmt.Errorf("%w: field %q", ErrDuplicateField, field.Name)
		}
		seen[field.Name] = true
	}
	return nil
}

// HasField reports whether a field with the given name is declared.
func (d *Descriptor) HasField(name string) bool {
	for _, field := range d.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the declared field names in order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, field := range d.Fields {
		names[i] = field.Name
	}
	return names
}

// Render formats the descriptor for inclusion in a generation prompt, one
// line per field.
func (d *Descriptor) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", d.Table)
	for _, field := range d.Fields {
		fmt.Fprintf(&b, "- %s (%s): %s\n", field.Name, field.Type, field.Description)
	}
	return b.String()
}

// Load reads a descriptor from a JSON declaration file and validates it.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema declaration: %w", err)
	}
	var descriptor Descriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("parsing schema declaration: %w", err)
	}
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	return &descriptor, nil
}

// Monsters returns the default monster-statistics descriptor.
func Monsters() *Descriptor {
	return &Descriptor{
		Table: "monsters",
		Fields: []Field{
			{Name: "name", Type: "TEXT", Description: "Monster name"},
			{Name: "type", Type: "TEXT", Description: "Creature type (Dragon, Beast, Humanoid, etc.)"},
			{Name: "size", Type: "TEXT", Description: "Size category (Tiny, Small, Medium, Large, Huge, Gargantuan)"},
			{Name: "armor_class", Type: "INTEGER", Description: "Armor Class (AC), compared numerically"},
			{Name: "hit_points", Type: "INTEGER", Description: "Hit points, compared numerically"},
			{Name: "speed", Type: "TEXT", Description: "Movement speeds (walk, fly, swim, etc.)"},
			{Name: "challenge_rating", Type: "TEXT", Description: "Challenge Rating as text, e.g. '1/4', '17'; extract the leading number for comparisons"},
			{Name: "abilities", Type: "TEXT", Description: "Ability scores formatted as text (STR, DEX, CON, INT, WIS, CHA)"},
			{Name: "skills", Type: "TEXT", Description: "Proficient skills and bonuses"},
			{Name: "damage_resistances", Type: "TEXT", Description: "Damage types the monster resists"},
			{Name: "damage_immunities", Type: "TEXT", Description: "Damage types the monster is immune to"},
			{Name: "condition_immunities", Type: "TEXT", Description: "Conditions the monster is immune to"},
			{Name: "senses", Type: "TEXT", Description: "Special senses (darkvision, blindsight, etc.)"},
			{Name: "languages", Type: "TEXT", Description: "Languages the monster can speak or understand"},
			{Name: "special_abilities", Type: "TEXT", Description: "Special traits or abilities"},
			{Name: "actions", Type: "TEXT", Description: "Actions the monster can take"},
			{Name: "legendary_actions", Type: "TEXT", Description: "Legendary actions, if any"},
			{Name: "source", Type: "TEXT", Description: "Source book or material"},
		},
	}
}
