package compose

import (
	"errors"
	"fmt"

	"github.com/obsidianstack/vectorconf/composer/internal/config"
)

// Banner is the first comment line of every generated document.
const Banner = "Generated by vectorconf. Changes are overwritten on the next render."

type options struct {
	partials []Partial
	banner   []string
}

// Option customizes a composition run.
type Option func(*options)

// WithPartials replaces the default partials.
func WithPartials(p ...Partial) Option {
	return func(o *options) { o.partials = p }
}

// WithBanner replaces the default banner lines. Values.Header lines are still
// appended after it.
func WithBanner(lines ...string) Option {
	return func(o *options) { o.banner = lines }
}

// Build runs the three stages over a fresh Builder and returns it.
func Build(v *config.Values, opts ...Option) (*Builder, error) {
	if v == nil {
		return nil, errors.New("compose: nil values")
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	o := options{partials: DefaultPartials(), banner: []string{Banner}}
	for _, opt := range opts {
		opt(&o)
	}

	header := append(append([]string{}, o.banner...), v.Header...)
	b := NewBuilder(header...)

	b.AppendIf(ResolveSource(v.Ingress))

	if err := AssemblePartials(b, *v, o.partials...); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	if err := RenderTopology(b, v.Topology); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	return b, nil
}

// Compose renders the document for v.
func Compose(v *config.Values, opts ...Option) ([]byte, error) {
	b, err := Build(v, opts...)
	if err != nil {
		return nil, err
	}
	return b.Document()
}
