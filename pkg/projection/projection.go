// Package projection groups compiled patterns into named packages of
// projections and scans syntax trees for their matches.
package projection

import (
	"maps"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
)

// Projection binds a root pattern to the text of the rendering that replaces
// matched source. Render uses ${name} markers; sub-projection renders added
// by extensions use <%name%> markers.
type Projection struct {
	Pattern     *pattern.Pattern
	renders     map[string]string
	Name        string
	Description string
	Render      string
	mu          sync.RWMutex
}

// New creates a projection.
func New(name, description, render string, p *pattern.Pattern) *Projection {
	return &Projection{
		Name:        name,
		Description: description,
		Render:      render,
		Pattern:     p,
		renders:     map[string]string{},
	}
}

// AddRender records the render text of a sub-projection (a chain link or
// aggregation part) by pattern name.
func (p *Projection) AddRender(sub, render string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.renders[sub] = render
}

// Renders returns a copy of the sub-projection renders.
func (p *Projection) Renders() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return maps.Clone(p.renders)
}

// Preview expands the render text with the values of a match. Aggregation
// and chain bindings expand to their parts' renders, or their source text
// when a part has none.
func (p *Projection) Preview(m *pattern.Match) string {
	tmpl, err := pattern.ParseTemplate(p.Render, pattern.DollarBraces)
	if err != nil {
		return p.Render
	}

	return tmpl.Expand(p.values(m))
}

func (p *Projection) values(m *pattern.Match) map[string]string {
	values := make(map[string]string, len(m.Bindings))

	for name, b := range m.Bindings {
		switch b.Kind {
		case pattern.KindAggregation:
			values[name] = p.previewParts(b.Parts, ", ")
		case pattern.KindChain:
			values[name] = strings.TrimSpace(p.previewParts([]*pattern.Match{b.Start}, "") + " " + p.previewParts(b.Parts, " "))
		default:
			values[name] = b.Text()
		}
	}

	return values
}

func (p *Projection) previewParts(parts []*pattern.Match, sep string) string {
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == nil {
			continue
		}

		render, ok := p.Renders()[part.Pattern]
		if !ok {
			out = append(out, part.Node.Text())

			continue
		}

		tmpl, err := pattern.ParseTemplate(render, pattern.PercentAngles)
		if err != nil {
			out = append(out, render)

			continue
		}

		out = append(out, tmpl.Expand(p.values(part)))
	}

	return strings.Join(out, sep)
}
