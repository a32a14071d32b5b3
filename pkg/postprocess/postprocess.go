// Package postprocess converts raw per-head model scores into ranked,
// filtered classification results.
package postprocess

import (
	"sort"

	"github.com/menta2k/image-classifier/pkg/engine"
	"github.com/menta2k/image-classifier/pkg/labelmap"
	"github.com/menta2k/image-classifier/pkg/options"
	"github.com/menta2k/image-classifier/pkg/types"
)

// Run applies the resolved configuration to raw head scores. Heads are
// processed independently and in input order; a head whose classes were
// all filtered out still emits an empty Classifications entry.
func Run(heads []engine.HeadScores, lookup labelmap.Lookup, cfg *options.Config) types.ClassificationResult {
	allow := toSet(cfg.Allowlist)
	deny := toSet(cfg.Denylist)

	result := types.ClassificationResult{
		Classifications: make([]types.Classifications, 0, len(heads)),
	}
	for _, head := range heads {
		result.Classifications = append(result.Classifications, rankHead(head, lookup, cfg, allow, deny))
	}
	return result
}

func rankHead(head engine.HeadScores, lookup labelmap.Lookup, cfg *options.Config, allow, deny map[string]struct{}) types.Classifications {
	classes := make([]types.Category, 0, len(head.Scores))
	for index, score := range head.Scores {
		var name string
		var named bool
		if lookup != nil {
			name, named = lookup(index)
		}
		switch {
		case len(allow) > 0:
			// Classes with no resolvable name cannot match an allowlist
			// entry and are dropped.
			if !named {
				continue
			}
			if _, listed := allow[name]; !listed {
				continue
			}
		case len(deny) > 0:
			// Classes with no resolvable name cannot match a denylist
			// entry and are kept.
			if named {
				if _, listed := deny[name]; listed {
					continue
				}
			}
		}
		if cfg.ScoreThreshold != nil && score < *cfg.ScoreThreshold {
			continue
		}
		classes = append(classes, types.Category{Index: index, Score: score, ClassName: name})
	}

	// Stable sort: equal scores keep class-index ascending order, so the
	// ranking is deterministic.
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].Score > classes[j].Score
	})

	if cfg.MaxResults > 0 && len(classes) > cfg.MaxResults {
		classes = classes[:cfg.MaxResults]
	}
	return types.Classifications{HeadIndex: head.HeadIndex, Classes: classes}
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
