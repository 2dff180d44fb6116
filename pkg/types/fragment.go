package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Entry is one key/value pair of a Fragment.
type Entry struct {
	Key   string
	Value any
}

// Fragment is an ordered mapping from string keys to values. Values are
// scalars, nested *Fragment, []any, or RawText.
//
// The zero value is an empty Fragment ready to use.
type Fragment struct {
	entries []Entry
	index   map[string]int
}

// NewFragment returns a Fragment holding the given entries in order. A later
// entry with a duplicate key replaces the earlier value.
func NewFragment(entries ...Entry) *Fragment {
	f := &Fragment{}
	for _, e := range entries {
		f.Set(e.Key, e.Value)
	}
	return f
}

// Len returns the number of keys.
func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	return len(f.entries)
}

// Get returns the value stored under key.
func (f *Fragment) Get(key string) (any, bool) {
	if f == nil || f.index == nil {
		return nil, false
	}
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.entries[i].Value, true
}

// Has reports whether key is present.
func (f *Fragment) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Set stores value under key. An existing key keeps its position.
func (f *Fragment) Set(key string, value any) {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[key]; ok {
		f.entries[i].Value = value
		return
	}
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, Entry{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (f *Fragment) Delete(key string) bool {
	if f == nil || f.index == nil {
		return false
	}
	i, ok := f.index[key]
	if !ok {
		return false
	}
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	delete(f.index, key)
	for j := i; j < len(f.entries); j++ {
		f.index[f.entries[j].Key] = j
	}
	return true
}

// Keys returns the keys in order.
func (f *Fragment) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.entries))
	for i, e := range f.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a shallow copy of the entries in order.
func (f *Fragment) Entries() []Entry {
	if f == nil {
		return nil
	}
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Merge sets every entry of other onto f, in other's order. Values are deep
// copied so f never shares nested fragments or slices with other.
func (f *Fragment) Merge(other *Fragment) {
	for _, e := range other.Entries() {
		f.Set(e.Key, CloneValue(e.Value))
	}
}

// Clone returns a deep copy of f.
func (f *Fragment) Clone() *Fragment {
	out := &Fragment{}
	out.Merge(f)
	return out
}

// CloneValue deep copies nested fragments and slices inside v. Scalars are
// returned as is.
func CloneValue(v any) any {
	switch val := v.(type) {
	case *Fragment:
		if val == nil {
			return (*Fragment)(nil)
		}
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// UnmarshalYAML decodes a mapping node, keeping the declared key order.
// A null node yields an empty Fragment; any other non-mapping node is an error.
func (f *Fragment) UnmarshalYAML(n *yaml.Node) error {
	n = resolve(n)
	*f = Fragment{}
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", n.Line, kindName(n))
	}
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		if isMergeKey(k) {
			merged, err := mergeSources(v)
			if err != nil {
				return err
			}
			for _, e := range merged.entries {
				if !explicit[e.Key] {
					f.Set(e.Key, e.Value)
				}
			}
			continue
		}
		val, err := decodeValue(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k.Value, err)
		}
		f.Set(k.Value, val)
		explicit[k.Value] = true
	}
	return nil
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.Value == "<<" && k.ShortTag() == "!!merge"
}

// mergeSources flattens the value of a "<<" key: one mapping, or a sequence
// of mappings where earlier mappings take precedence.
func mergeSources(v *yaml.Node) (*Fragment, error) {
	v = resolve(v)
	var sources []*yaml.Node
	switch v.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{v}
	case yaml.SequenceNode:
		sources = v.Content
	default:
		return nil, fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", v.Line)
	}

	out := &Fragment{}
	for _, src := range sources {
		if resolve(src).Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", src.Line)
		}
		var m Fragment
		if err := m.UnmarshalYAML(src); err != nil {
			return nil, err
		}
		for _, e := range m.entries {
			if !out.Has(e.Key) {
				out.Set(e.Key, e.Value)
			}
		}
	}
	return out, nil
}

// MarshalYAML encodes f as an ordered mapping node.
func (f Fragment) MarshalYAML() (any, error) {
	return f.Node()
}

// Node builds the YAML mapping node for f.
func (f *Fragment) Node() (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if f == nil {
		return out, nil
	}
	for _, e := range f.entries {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
		v := &yaml.Node{}
		if err := v.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Key, err)
		}
		out.Content = append(out.Content, k, v)
	}
	return out, nil
}

func decodeValue(n *yaml.Node) (any, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		child := &Fragment{}
		if err := child.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return child, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for i, item := range n.Content {
			v, err := decodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch {
		case n.Kind == yaml.DocumentNode && len(n.Content) > 0:
			n = n.Content[0]
		case n.Kind == yaml.AliasNode && n.Alias != nil:
			n = n.Alias
		default:
			return n
		}
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return fmt.Sprintf("scalar %q", n.Value)
	default:
		return "an unsupported node"
	}
}

// RawText is passed through to the agent as unparsed text. It always encodes
// as a literal block scalar; text a literal block cannot hold is rejected by
// Validate instead of being quoted.
type RawText string

// Validate reports whether r can be written as a literal block scalar and
// read back unchanged. A literal block cannot carry carriage returns or other
// control characters, whitespace at the end of a line, or a tab as the very
// first character.
func (r RawText) Validate() error {
	s := string(r)
	if !utf8.ValidString(s) {
		return errors.New("raw text is not valid UTF-8")
	}
	if strings.HasPrefix(s, "\t") {
		return errors.New("raw text must not start with a tab")
	}
	line := 1
	for i, c := range s {
		switch {
		case c == '\n':
			line++
		case c == '\r':
			return fmt.Errorf("line %d: raw text must use \\n line endings, found a carriage return", line)
		case c == '\t':
		case !printable(c):
			return fmt.Errorf("line %d: raw text contains control character %U", line, c)
		case c == ' ' && (i+1 == len(s) || s[i+1] == '\n'):
			return fmt.Errorf("line %d: raw text has trailing whitespace", line)
		}
	}
	return nil
}

func printable(c rune) bool {
	switch {
	case c < 0x20, c == 0x7f:
		return false
	case c >= 0x80 && c <= 0x9f:
		return false
	case c == 0x2028, c == 0x2029, c == 0xfeff, c == 0xfffe, c == 0xffff:
		return false
	}
	return true
}

// MarshalYAML implements yaml.Marshaler.
func (r RawText) MarshalYAML() (any, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!str",
		Style: yaml.LiteralStyle,
		Value: string(r),
	}, nil
}
