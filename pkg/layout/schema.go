package layout

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the newest layout document version this package understands
const CurrentVersion = 1

// SlotKind names the record field a positional token is assigned to
type SlotKind int

const (
	SlotDescription SlotKind = iota + 1
	SlotCondition
	SlotUnit
	SlotTolerance
	SlotSpeed
)

var slotNames = map[SlotKind]string{
	SlotDescription: "description",
	SlotCondition:   "condition",
	SlotUnit:        "unit",
	SlotTolerance:   "tolerance",
	SlotSpeed:       "speed",
}

func (k SlotKind) String() string {
	if name, ok := slotNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SlotKind(%d)", int(k))
}

// ParseSlotKind converts a slot name from a layout document
func ParseSlotKind(name string) (SlotKind, error) {
	for kind, n := range slotNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown slot kind %q", name)
}

// UnmarshalYAML reads a slot kind from its name
func (k *SlotKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	kind, err := ParseSlotKind(name)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MarshalYAML writes a slot kind as its name
func (k SlotKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Slot describes one positional token following a command code
type Slot struct {
	Kind SlotKind `yaml:"kind"`
	Doc  string   `yaml:"doc,omitempty"`
}

// UnmarshalYAML accepts both the short form (slots: [unit]) and the
// mapping form (slots: [{kind: unit, doc: ...}])
func (s *Slot) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&s.Kind)
	}

	type slotAlias Slot
	var alias slotAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	*s = Slot(alias)
	return nil
}

// Command is the token layout of one command code
type Command struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Slots   []Slot `yaml:"slots"`
	Padding int    `yaml:"padding,omitempty"`
}

// Has reports whether the layout carries a slot of the given kind
func (c *Command) Has(kind SlotKind) bool {
	return c.SlotIndex(kind) >= 0
}

// SlotIndex returns the position of the slot kind, or -1
func (c *Command) SlotIndex(kind SlotKind) int {
	for i, slot := range c.Slots {
		if slot.Kind == kind {
			return i
		}
	}
	return -1
}

// Document is the on-disk form of a layout table
type Document struct {
	Version        int       `yaml:"version"`
	Sentinel       string    `yaml:"sentinel"`
	SetupTokens    int       `yaml:"setup_tokens"`
	Units          []string  `yaml:"units"`
	UnknownCommand string    `yaml:"unknown_command"`
	Fallback       *Command  `yaml:"fallback"`
	Commands       []Command `yaml:"commands"`
}

func (d *Document) validate() error {
	if d.Version == 0 {
		return fmt.Errorf("layout document has no version")
	}
	if d.Version > CurrentVersion {
		return fmt.Errorf("layout document version %d is newer than supported version %d", d.Version, CurrentVersion)
	}
	if d.SetupTokens < 0 {
		return fmt.Errorf("setup_tokens must not be negative, got %d", d.SetupTokens)
	}

	seen := make(map[string]bool, len(d.Commands))
	for i := range d.Commands {
		cmd := &d.Commands[i]
		if cmd.Code == "" {
			return fmt.Errorf("command %d has no code", i)
		}
		if seen[cmd.Code] {
			return fmt.Errorf("command %q is defined twice", cmd.Code)
		}
		seen[cmd.Code] = true
		if err := validateCommand(cmd); err != nil {
			return err
		}
	}

	if d.Fallback != nil {
		if err := validateCommand(d.Fallback); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
	}
	return nil
}

func validateCommand(cmd *Command) error {
	if len(cmd.Slots) == 0 || cmd.Slots[0].Kind != SlotDescription {
		return fmt.Errorf("command %q: first slot must be description", cmd.Code)
	}
	if cmd.Padding < 0 {
		return fmt.Errorf("command %q: padding must not be negative", cmd.Code)
	}

	kinds := make(map[SlotKind]bool, len(cmd.Slots))
	for _, slot := range cmd.Slots {
		if _, ok := slotNames[slot.Kind]; !ok {
			return fmt.Errorf("command %q: slot has no kind", cmd.Code)
		}
		if kinds[slot.Kind] {
			return fmt.Errorf("command %q: slot %s appears twice", cmd.Code, slot.Kind)
		}
		kinds[slot.Kind] = true
	}
	return nil
}
