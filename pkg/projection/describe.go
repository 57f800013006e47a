package projection

import "github.com/Sumatoshi-tech/projector/pkg/pattern"

// Description is a serializable summary of a compiled root projection.
type Description struct {
	Package      string                   `json:"package"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description,omitempty"`
	Template     string                   `json:"template"`
	Render       string                   `json:"render"`
	Renders      map[string]string        `json:"renders,omitempty"`
	Placeholders []PlaceholderDescription `json:"placeholders"`
	Shape        string                   `json:"shape"`
}

// PlaceholderDescription summarizes one placeholder. Candidates lists the
// part names of an aggregation, or the start and link names of a chain.
type PlaceholderDescription struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Accepts    []string `json:"accepts,omitempty"`
	NodeType   string   `json:"nodeType,omitempty"`
	Mode       string   `json:"mode,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Describe summarizes proj as a member of package pkg.
func Describe(pkg string, proj *Projection) Description {
	out := Description{
		Package:     pkg,
		Name:        proj.Name,
		Description: proj.Description,
		Template:    proj.Pattern.Template().Source,
		Render:      proj.Render,
		Renders:     proj.Renders(),
		Shape:       proj.Pattern.String(),
	}

	for _, ph := range proj.Pattern.Placeholders() {
		entry := PlaceholderDescription{Name: ph.Name(), Kind: ph.Kind().String()}

		switch def := ph.(type) {
		case *pattern.Argument:
			entry.Accepts = def.Kinds()
		case *pattern.Aggregation:
			entry.NodeType = def.NodeType()
			entry.Mode = def.Mode().String()

			for _, part := range def.Parts() {
				entry.Candidates = append(entry.Candidates, part.Name())
			}
		case *pattern.Chain:
			entry.Candidates = append(entry.Candidates, def.Start().Name())

			for _, link := range def.Links() {
				entry.Candidates = append(entry.Candidates, link.Name())
			}
		}

		out.Placeholders = append(out.Placeholders, entry)
	}

	return out
}
