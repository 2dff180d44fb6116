package compose

import (
	"fmt"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/pkg/types"
)

// RenderTopology puts the declared topology into b in declaration order.
// Component entries replace any built-in with the same id; global entries
// become top-level options.
func RenderTopology(b *Builder, t config.Topology) error {
	if t.Empty() {
		return nil
	}
	for _, cat := range t.Categories() {
		for _, e := range cat.Entries.Entries() {
			if !cat.IsComponent() {
				if err := b.SetGlobal(e.Key, e.Value); err != nil {
					return fmt.Errorf("topology.%s: %w", cat.Name, err)
				}
				continue
			}
			body, ok := e.Value.(*types.Fragment)
			if !ok {
				return fmt.Errorf("topology.%s.%s: expected a mapping, got %T", cat.Name, e.Key, e.Value)
			}
			b.Put(TopologyNode{ID: e.Key, Kind: Section(cat.Name), Body: body})
		}
	}
	return nil
}
