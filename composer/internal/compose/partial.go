package compose

import (
	"fmt"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
	"github.com/obsidianstack/vectorconf/pkg/types"
)

// Contribution is what one partial adds to the document.
type Contribution struct {
	Components []Component
	Globals    *types.Fragment
}

// Partial renders a self-contained block from the values alone. It never
// sees the Builder, so it cannot depend on the ingress source or topology.
type Partial interface {
	Name() string
	Render(v config.Values) Contribution
}

// DefaultPartials returns the built-in partials in rendering order.
func DefaultPartials() []Partial {
	return []Partial{MetricsExporter{}, APIServer{}}
}

// AssemblePartials renders each partial and applies its contribution to b.
// Every partial gets its own deep copy of v.
func AssemblePartials(b *Builder, v config.Values, partials ...Partial) error {
	for _, p := range partials {
		c := p.Render(*v.Clone())
		for _, comp := range c.Components {
			b.Put(comp)
		}
		for _, g := range c.Globals.Entries() {
			if err := b.SetGlobal(g.Key, g.Value); err != nil {
				return fmt.Errorf("partial %s: %w", p.Name(), err)
			}
		}
	}
	return nil
}

// MetricsExporter publishes the agent's own metrics: an internal_metrics
// source feeding a prometheus_exporter sink.
type MetricsExporter struct{}

func (MetricsExporter) Name() string { return "metrics_exporter" }

func (m MetricsExporter) Render(v config.Values) Contribution {
	s := v.MetricsExporter
	if !s.Enabled {
		return Contribution{}
	}

	src := types.NewFragment(
		types.Entry{Key: "type", Value: "internal_metrics"},
		types.Entry{Key: "scrape_interval_secs", Value: int(s.ScrapeInterval.Seconds())},
	)
	if s.Namespace != "" {
		src.Set("namespace", s.Namespace)
	}

	sink := types.NewFragment(
		types.Entry{Key: "type", Value: "prometheus_exporter"},
		types.Entry{Key: "inputs", Value: []any{s.SourceID}},
		types.Entry{Key: "address", Value: ExporterAddress(s)},
	)

	return Contribution{Components: []Component{
		PartialComponent{Partial: m.Name(), ID: s.SourceID, Kind: SectionSources, Body: src},
		PartialComponent{Partial: m.Name(), ID: s.SinkID, Kind: SectionSinks, Body: sink},
	}}
}

// ExporterAddress is the listen address of the prometheus_exporter sink.
func ExporterAddress(s config.MetricsExporter) string {
	return s.ListenAddress + ":" + string(s.ListenPort)
}

// APIServer sets the agent's api global option.
type APIServer struct{}

func (APIServer) Name() string { return "api" }

func (APIServer) Render(v config.Values) Contribution {
	s := v.API
	if !s.Enabled {
		return Contribution{}
	}
	api := types.NewFragment(
		types.Entry{Key: "enabled", Value: true},
		types.Entry{Key: "address", Value: s.ListenAddress + ":" + string(s.ListenPort)},
		types.Entry{Key: "playground", Value: s.Playground},
	)
	return Contribution{Globals: types.NewFragment(types.Entry{Key: "api", Value: api})}
}
