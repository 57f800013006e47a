package pattern

import (
	"slices"

	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// matchChain walks a chain from its first link inward. At every chainable
// node the links are tried in order; when no link leads to a complete match
// the node must match the start pattern. Links are returned in source order.
func matchChain(chain *Chain, lang *langconfig.LanguageConfig, n *syntax.Node, ctx *MatchContext) ([]*Match, *Match, bool) {
	first := Path(lang.Chains.PathToFirstLink).Resolve(n)
	if first == nil {
		return nil, nil, false
	}

	return walkChain(chain, lang, first, ctx)
}

// walkChain returns the link matches innermost first, which for a
// left-to-right chain is source order.
func walkChain(chain *Chain, lang *langconfig.LanguageConfig, n *syntax.Node, ctx *MatchContext) ([]*Match, *Match, bool) {
	if cfg, ok := lang.Chainable(n.Type); ok {
		if next := Path(cfg.PathToNextLink).Resolve(n); next != nil {
			for _, link := range chain.links {
				lm := link.Match(n, ctx)
				if lm == nil {
					continue
				}

				if inner, start, ok := walkChain(chain, lang, next, ctx); ok {
					return append(slices.Clip(inner), lm), start, true
				}
			}
		}
	}

	start := chain.start.Match(n, ctx)
	if start == nil {
		return nil, nil, false
	}

	return nil, start, true
}
