package pattern

import (
	"github.com/Sumatoshi-tech/projector/pkg/langconfig"
	"github.com/Sumatoshi-tech/projector/pkg/syntax"
)

// matchAggregation splits an aggregatable node into delimited groups and
// matches each group against the first accepting part.
func matchAggregation(agg *Aggregation, lang *langconfig.LanguageConfig, n *syntax.Node, ctx *MatchContext) ([]*Match, bool) {
	if n.Type != agg.nodeType {
		return nil, false
	}

	cfg, ok := lang.Aggregatable(agg.nodeType)
	if !ok {
		return nil, false
	}

	groups, ok := splitGroups(significant(lang, n), cfg)
	if !ok {
		return nil, false
	}

	if agg.mode == OneToOne && len(groups) != 1 {
		return nil, false
	}

	matches := make([]*Match, 0, len(groups))

	for _, group := range groups {
		matched := matchFirst(agg.parts, group, ctx)
		if matched == nil {
			return nil, false
		}

		matches = append(matches, matched)
	}

	return matches, true
}

func matchFirst(candidates []*Pattern, n *syntax.Node, ctx *MatchContext) *Match {
	for _, candidate := range candidates {
		if m := candidate.Match(n, ctx); m != nil {
			return m
		}
	}

	return nil
}

// splitGroups strips the start and end tokens and splits the rest on the
// delimiter. Every group must be a single node; one trailing delimiter is
// allowed, an empty group anywhere else is not.
func splitGroups(kids []*syntax.Node, cfg langconfig.AggregatableNodeType) ([]*syntax.Node, bool) {
	inner := kids

	if cfg.StartToken != "" {
		if len(inner) == 0 || inner[0].Type != cfg.StartToken {
			return nil, false
		}

		inner = inner[1:]
	}

	if cfg.EndToken != "" {
		if len(inner) == 0 || inner[len(inner)-1].Type != cfg.EndToken {
			return nil, false
		}

		inner = inner[:len(inner)-1]
	}

	var (
		groups  []*syntax.Node
		current []*syntax.Node
	)

	for _, kid := range inner {
		if kid.Type != cfg.DelimiterToken {
			current = append(current, kid)

			continue
		}

		if len(current) != 1 {
			return nil, false
		}

		groups = append(groups, current[0])
		current = nil
	}

	switch len(current) {
	case 0:
	case 1:
		groups = append(groups, current[0])
	default:
		return nil, false
	}

	return groups, true
}
