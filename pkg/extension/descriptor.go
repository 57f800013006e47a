// Package extension decodes externally authored projection extensions and
// splices the chain links and aggregation parts they describe into compiled
// projection packages.
package extension

// Descriptor type values.
const (
	TypeProjectionExtension = "projectionExtension"
	TypeChainLink           = "chainLink"
	TypeAggregationPart     = "aggregationPart"
)

// ProjectionExtension adds sub-projections to the chain or aggregation named
// ParentParameter inside the root projection Projection of Package.
type ProjectionExtension struct {
	Type            string                    `json:"type"`
	Package         string                    `json:"package"`
	Projection      string                    `json:"projection"`
	ParentParameter string                    `json:"parentParameter"`
	SubProjections  []SubProjectionDefinition `json:"subProjections"`

	// Source is file#index for descriptors read by ReadFile.
	Source string `json:"-"`
}

// SubProjectionDefinition is one chain link or aggregation part. Template is
// the code to match and Projection the rendered text; both use <%name%>
// markers naming entries of Arguments.
type SubProjectionDefinition struct {
	Type        string                       `json:"type"`
	Name        string                       `json:"name"`
	Description string                       `json:"description,omitempty"`
	Template    string                       `json:"template"`
	Projection  string                       `json:"projection,omitempty"`
	Arguments   []TemplateArgumentDefinition `json:"arguments,omitempty"`
}

// TemplateArgumentDefinition declares a placeholder and the node kinds it
// accepts. No types means any node.
type TemplateArgumentDefinition struct {
	Name  string   `json:"name"`
	Types []string `json:"types,omitempty"`
}

func (s SubProjectionDefinition) argument(name string) (TemplateArgumentDefinition, bool) {
	for _, arg := range s.Arguments {
		if arg.Name == name {
			return arg, true
		}
	}

	return TemplateArgumentDefinition{}, false
}
