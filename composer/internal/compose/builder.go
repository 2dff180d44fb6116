package compose

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/vectorconf/pkg/types"
)

// Builder accumulates the namespace of one composition run. Each run owns
// its Builder; nothing is shared between runs.
type Builder struct {
	header []string

	// root holds top-level keys in first-written order: section tables
	// (*types.Fragment keyed by component id) and global options.
	root  types.Fragment
	owner map[string]Section
}

// NewBuilder returns an empty Builder whose document starts with the given
// comment lines.
func NewBuilder(header ...string) *Builder {
	return &Builder{
		header: header,
		owner:  make(map[string]Section),
	}
}

// Put stores c under its id, replacing any component already registered with
// that id. A replacement in the same section keeps its position; one in a
// different section moves the id to the new section.
func (b *Builder) Put(c Component) {
	id, sec := c.ComponentID(), c.Section()
	if prev, ok := b.owner[id]; ok && prev != sec {
		b.section(prev).Delete(id)
	}
	b.section(sec).Set(id, c.Fragment().Clone())
	b.owner[id] = sec
}

// AppendIf puts c only when ok is true. It composes with resolvers that
// return (component, present).
func (b *Builder) AppendIf(c Component, ok bool) *Builder {
	if ok {
		b.Put(c)
	}
	return b
}

// SetGlobal stores a top-level option. Keys naming a component section are
// rejected.
func (b *Builder) SetGlobal(key string, value any) error {
	if isSection(key) {
		return fmt.Errorf("global option %q collides with a component section", key)
	}
	b.root.Set(key, types.CloneValue(value))
	return nil
}

// Lookup returns the section and fragment registered under id. The fragment
// belongs to the Builder and must not be modified.
func (b *Builder) Lookup(id string) (Section, *types.Fragment, bool) {
	sec, ok := b.owner[id]
	if !ok {
		return "", nil, false
	}
	v, _ := b.section(sec).Get(id)
	frag, _ := v.(*types.Fragment)
	return sec, frag, true
}

// Global returns the top-level option stored under key.
func (b *Builder) Global(key string) (any, bool) {
	if isSection(key) {
		return nil, false
	}
	return b.root.Get(key)
}

// ComponentIDs returns every component id in document order.
func (b *Builder) ComponentIDs() []string {
	var ids []string
	for _, e := range b.root.Entries() {
		if !isSection(e.Key) {
			continue
		}
		ids = append(ids, e.Value.(*types.Fragment).Keys()...)
	}
	return ids
}

// Document renders the header block followed by the YAML body. Sections left
// empty by overrides are omitted; with nothing contributed, only the header
// is written.
func (b *Builder) Document() ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range b.header {
		for _, l := range strings.Split(line, "\n") {
			if l == "" {
				buf.WriteString("#\n")
				continue
			}
			buf.WriteString("# " + l + "\n")
		}
	}

	body := b.body()
	if body.Len() == 0 {
		return buf.Bytes(), nil
	}

	node, err := body.Node()
	if err != nil {
		return nil, fmt.Errorf("compose: build document: %w", err)
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("compose: encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("compose: encode document: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *Builder) body() *types.Fragment {
	out := &types.Fragment{}
	for _, e := range b.root.Entries() {
		if isSection(e.Key) && e.Value.(*types.Fragment).Len() == 0 {
			continue
		}
		out.Set(e.Key, e.Value)
	}
	return out
}

func (b *Builder) section(s Section) *types.Fragment {
	if v, ok := b.root.Get(string(s)); ok {
		return v.(*types.Fragment)
	}
	f := &types.Fragment{}
	b.root.Set(string(s), f)
	return f
}
