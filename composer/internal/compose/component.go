package compose

import (
	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/pkg/types"
)

// Section is a top-level component table of the document.
type Section string

const (
	SectionSources    Section = config.CategorySources
	SectionTransforms Section = config.CategoryTransforms
	SectionSinks      Section = config.CategorySinks
)

func isSection(key string) bool {
	switch Section(key) {
	case SectionSources, SectionTransforms, SectionSinks:
		return true
	}
	return false
}

// Component is one pipeline node headed for the document. The set of
// implementations is closed: IngressSource, PartialComponent and TopologyNode.
type Component interface {
	ComponentID() string
	Section() Section
	Fragment() *types.Fragment

	component()
}

// IngressSource is the resolved built-in vector-to-vector source.
type IngressSource struct {
	ID   string
	Body *types.Fragment
}

func (s IngressSource) ComponentID() string       { return s.ID }
func (s IngressSource) Section() Section          { return SectionSources }
func (s IngressSource) Fragment() *types.Fragment { return s.Body }
func (IngressSource) component()                  {}

// PartialComponent is a node emitted by a Partial.
type PartialComponent struct {
	// Partial names the partial that produced the node.
	Partial string
	ID      string
	Kind    Section
	Body    *types.Fragment
}

func (c PartialComponent) ComponentID() string       { return c.ID }
func (c PartialComponent) Section() Section          { return c.Kind }
func (c PartialComponent) Fragment() *types.Fragment { return c.Body }
func (PartialComponent) component()                  {}

// TopologyNode is a node declared in the user topology.
type TopologyNode struct {
	ID   string
	Kind Section
	Body *types.Fragment
}

func (n TopologyNode) ComponentID() string       { return n.ID }
func (n TopologyNode) Section() Section          { return n.Kind }
func (n TopologyNode) Fragment() *types.Fragment { return n.Body }
func (TopologyNode) component()                  {}
