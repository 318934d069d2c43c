package services

import (
	"iter"
	"slices"

	"github.com/kerbaras/anonclone/pkg/data"
)

// Flatten lazily walks node depth-first, pre-order, yielding one record per
// leaf: the keys leading to it followed by the leaf value. Siblings come in
// the order the listing declared them.
func Flatten(node data.ManifestNode) iter.Seq[data.FlatRecord] {
	return func(yield func(data.FlatRecord) bool) {
		walk(node, nil, yield)
	}
}

func walk(node data.ManifestNode, prefix []string, yield func(data.FlatRecord) bool) bool {
	switch n := node.(type) {
	case data.Branch:
		for _, e := range n {
			// Clip so siblings never share the prefix's backing array.
			if !walk(e.Node, append(slices.Clip(prefix), e.Key), yield) {
				return false
			}
		}
	case data.Leaf:
		rec := make(data.FlatRecord, 0, len(prefix)+1)
		rec = append(rec, prefix...)
		return yield(append(rec, string(n)))
	}
	return true
}
