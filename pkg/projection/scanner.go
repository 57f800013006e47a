package projection

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/projector/pkg/pattern"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// Result is one projection match found by a scan.
type Result struct {
	Match      *pattern.Match
	Projection *Projection
	Package    string
}

// Scanner attempts every root pattern of its packages at every node.
type Scanner struct {
	language string
	packages []*Package
}

// NewScanner creates a scanner over the packages compiled for language.
// Packages of other languages are skipped. Every package is frozen: once
// scanning starts, extension is over.
func NewScanner(language string, packages ...*Package) *Scanner {
	s := &Scanner{language: language}

	for _, pkg := range packages {
		if pkg.Language() != language {
			continue
		}

		pkg.Freeze()
		s.packages = append(s.packages, pkg)
	}

	return s
}

// Language returns the language the scanner matches.
func (s *Scanner) Language() string { return s.language }

// Packages returns the scanned packages.
func (s *Scanner) Packages() []*Package { return slices.Clone(s.packages) }

// Scan returns every match in the tree, ordered by start byte and then by
// declaration order.
func (s *Scanner) Scan(tree *syntax.Tree, ctx *pattern.MatchContext) []Result {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var results []Result

	tree.Root.Walk(func(n *syntax.Node) bool {
		for _, pkg := range s.packages {
			for _, proj := range pkg.Projections() {
				if m := proj.Pattern.Match(n, ctx); m != nil {
					results = append(results, Result{Package: pkg.Name(), Projection: proj, Match: m})
				}
			}
		}

		return true
	})

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(a.Match.Range.Start, b.Match.Range.Start)
	})

	return results
}

// ScanOutermost is Scan without matches nested inside an earlier match of
// the same projection.
func (s *Scanner) ScanOutermost(tree *syntax.Tree, ctx *pattern.MatchContext) []Result {
	all := s.Scan(tree, ctx)
	out := all[:0:0]

	for _, r := range all {
		nested := slices.ContainsFunc(out, func(kept Result) bool {
			return kept.Projection == r.Projection && kept.Match.Range.Contains(r.Match.Range)
		})
		if !nested {
			out = append(out, r)
		}
	}

	return out
}
