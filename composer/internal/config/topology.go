package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/vectorconf/pkg/types"
)

// Topology categories. Component categories hold one mapping per id; the
// global category holds arbitrary top-level options.
const (
	CategorySources    = "sources"
	CategoryTransforms = "transforms"
	CategorySinks      = "sinks"
	CategoryGlobal     = "global"
)

// Category is one declared topology section with its entries in order.
type Category struct {
	Name    string
	Entries *types.Fragment
}

// IsComponent reports whether entries of this category are pipeline components.
func (c Category) IsComponent() bool {
	return c.Name != CategoryGlobal
}

// Topology is the user-declared pipeline, kept in declaration order: both the
// categories and the entries inside each one.
type Topology struct {
	categories []Category
}

// Categories returns the declared categories in order.
func (t Topology) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Clone returns a deep copy of t.
func (t Topology) Clone() Topology {
	if t.categories == nil {
		return Topology{}
	}
	out := Topology{categories: make([]Category, len(t.categories))}
	for i, c := range t.categories {
		out.categories[i] = Category{Name: c.Name, Entries: c.Entries.Clone()}
	}
	return out
}

// Empty reports whether no entries were declared.
func (t Topology) Empty() bool {
	for _, c := range t.categories {
		if c.Entries.Len() > 0 {
			return false
		}
	}
	return true
}

// Add appends an entry to the named category, creating the category at the
// end of the declaration order if needed. Component entries must be
// *types.Fragment.
func (t *Topology) Add(category, id string, value any) error {
	if err := checkEntry(category, id, value); err != nil {
		return err
	}
	for i := range t.categories {
		if t.categories[i].Name == category {
			t.categories[i].Entries.Set(id, value)
			return nil
		}
	}
	entries := &types.Fragment{}
	entries.Set(id, value)
	t.categories = append(t.categories, Category{Name: category, Entries: entries})
	return nil
}

// UnmarshalYAML decodes the topology mapping and checks its shape.
func (t *Topology) UnmarshalYAML(n *yaml.Node) error {
	var raw types.Fragment
	if err := raw.UnmarshalYAML(n); err != nil {
		return fmt.Errorf("topology: %w", err)
	}
	*t = Topology{}
	for _, cat := range raw.Entries() {
		entries, err := categoryEntries(cat)
		if err != nil {
			return err
		}
		for _, e := range entries.Entries() {
			if err := t.Add(cat.Key, e.Key, e.Value); err != nil {
				return err
			}
		}
		if entries.Len() == 0 {
			t.categories = append(t.categories, Category{Name: cat.Key, Entries: &types.Fragment{}})
		}
	}
	return nil
}

func categoryEntries(cat types.Entry) (*types.Fragment, error) {
	switch cat.Key {
	case CategorySources, CategoryTransforms, CategorySinks, CategoryGlobal:
	default:
		return nil, fmt.Errorf("topology: unknown category %q", cat.Key)
	}
	switch v := cat.Value.(type) {
	case nil:
		return &types.Fragment{}, nil
	case *types.Fragment:
		return v, nil
	default:
		return nil, fmt.Errorf("topology.%s: expected a mapping, got %T", cat.Key, cat.Value)
	}
}

func checkEntry(category, id string, value any) error {
	switch category {
	case CategoryGlobal:
		return nil
	case CategorySources, CategoryTransforms, CategorySinks:
		if _, ok := value.(*types.Fragment); !ok {
			return fmt.Errorf("topology.%s.%s: expected a mapping, got %T", category, id, value)
		}
		return nil
	default:
		return fmt.Errorf("topology: unknown category %q", category)
	}
}
