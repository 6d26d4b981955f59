package pyromb

import (
	"log"

	"github.com/pkg/errors"
)

// connState tags a (node, reach) pair in the connection table.
type connState uint8

const (
	connNone connState = iota
	connUS             // node is the upstream end of the reach
	connDS             // node is the downstream end of the reach
)

// buildConnections binds each reach's two endpoints to their nearest nodes
// within the binding tolerance. A reach with an unresolved endpoint, or whose
// two endpoints collapse onto one node, is logged, left unbound and counted on
// the report; the build carries on without it.
func (c *Catchment) buildConnections(rpt *ConnectReport) [][]connState {
	tbl := make([][]connState, len(c.Nodes))
	for i := range tbl {
		tbl[i] = make([]connState, len(c.Reaches))
	}
	for j := range c.Reaches {
		r := &c.Reaches[j]
		iu, du := closestNode(r.US(), c.Nodes, c.BindTol)
		id, dd := closestNode(r.DS(), c.Nodes, c.BindTol)
		if iu == NilNode || id == NilNode {
			log.Printf("WARNING reach %q: endpoint bound to no node within %g (us %v nearest %.4g; ds %v nearest %.4g); reach excluded",
				r.Name, c.BindTol, r.US(), du, r.DS(), dd)
			rpt.SkippedReaches++
			continue
		}
		if iu == id {
			log.Printf("WARNING reach %q: both endpoints bound to node %q; reach excluded", r.Name, c.Nodes[iu].Name)
			rpt.SkippedReaches++
			continue
		}
		tbl[iu][j] = connUS
		tbl[id][j] = connDS
	}
	return tbl
}

// findOutlet scans for the single outlet-flagged confluence. Zero or several
// outlets is a fatal configuration error.
func (c *Catchment) findOutlet() (int, error) {
	out := NilNode
	for i := range c.Nodes {
		if !c.Nodes[i].IsOutlet() {
			continue
		}
		if out != NilNode {
			return NilNode, errors.Wrapf(ErrMultipleOutlets, "nodes %q and %q", c.Nodes[out].Name, c.Nodes[i].Name)
		}
		out = i
	}
	if out == NilNode {
		return NilNode, ErrNoOutlet
	}
	return out, nil
}
