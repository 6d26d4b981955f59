package pyromb

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// closestNode returns the index of the node nearest pt, or NilNode when the
// minimum distance exceeds tol; a node exactly at distance tol matches. Ties
// keep the first node in list order (strict less-than during the scan). The
// minimum distance found is returned alongside for warning context.
func closestNode(pt orb.Point, nodes []Node, tol float64) (int, float64) {
	imin, dmin := NilNode, math.Inf(1)
	for i := range nodes {
		if d := planar.Distance(nodes[i].At, pt); d < dmin {
			imin, dmin = i, d
		}
	}
	if dmin > tol {
		return NilNode, dmin
	}
	return imin, dmin
}

// nodeAt re-identifies a node from stored coordinates: the same computation as
// closestNode under a distinct name, as the two call sites carry different
// tolerances (loose for endpoint binding, tight for re-identification).
func nodeAt(pt orb.Point, nodes []Node, tol float64) int {
	i, _ := closestNode(pt, nodes, tol)
	return i
}
