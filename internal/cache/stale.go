package cache

import (
	"github.com/rodekruis/qfa/internal/model"
	"github.com/rodekruis/qfa/internal/taxonomy"
)

// IsStale reports whether a cached tree no longer matches its source. The
// tree is stale when the markers differ, or when the probe carries per-level
// counts and any of them differs from the tree's.
func IsStale(tree *taxonomy.Tree, probe model.Probe) bool {
	if tree.VersionMarker() != probe.Marker {
		return true
	}
	if probe.Counts == nil {
		return false
	}
	have := tree.Counts()
	if len(have) != len(probe.Counts) {
		return true
	}
	for level, n := range probe.Counts {
		if have[level] != n {
			return true
		}
	}
	return false
}
