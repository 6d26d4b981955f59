// Package pyromb converts GIS catchment features (sub-basin outlines,
// confluence and centroid points, stream reaches) into a directed flow tree
// rooted at a single outlet, and traverses that tree in a canonical order to
// drive hydrology-model runfile generation.
package pyromb

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Sentinels. NilNode marks an unset incidence entry ("no node via this
// reach"); EndTraversal marks the end of a traversal and the downstream side
// of the outlet. Kept distinct so a finished cursor can never be mistaken for
// an unset table entry, and neither collides with a valid index.
const (
	NilNode      = -1
	EndTraversal = -2
)

// Default endpoint-binding and coordinate re-identification tolerances, in the
// projected units of the input layers.
const (
	DefaultBindTol  = 0.1
	DefaultExactTol = 1e-6
)

// Catchment is the tree of attributes describing how water flows through the
// model: nodes (confluences ∪ basins) and the reaches connecting them, plus
// the two incidence tables derived by Connect. Node and reach indices are
// stable for the life of a connected catchment; nothing mutates after Connect
// returns, so any number of Travellers may read it.
type Catchment struct {
	Nodes   []Node
	Reaches []Reach
	DS, US  [][]int // node×reach; DS[v][j]=w: reach j leads downstream from v to w. US symmetric, leading upstream.
	Out     int     // resolved outlet node index

	BindTol, ExactTol float64
}

// ConnectReport accumulates the recoverable data-quality issues found while
// connecting. Fatal conditions are returned as errors instead, never counted
// here.
type ConnectReport struct {
	SkippedReaches   int // endpoint bound to no node, or both ends to one node
	UnmatchedLookups int // coordinate re-identification failures during propagation
	UnreachableNodes int // nodes the upstream propagation never reached
}

func (r *ConnectReport) Warnings() int {
	return r.SkippedReaches + r.UnmatchedLookups + r.UnreachableNodes
}

// NewCatchment assembles an unconnected catchment. Confluences precede basins
// in the node list, matching the layer load order the serializers expect.
func NewCatchment(confluences, basins []Node, reaches []Reach) *Catchment {
	nodes := make([]Node, 0, len(confluences)+len(basins))
	nodes = append(nodes, confluences...)
	nodes = append(nodes, basins...)
	return &Catchment{
		Nodes:    nodes,
		Reaches:  reaches,
		Out:      NilNode,
		BindTol:  DefaultBindTol,
		ExactTol: DefaultExactTol,
	}
}

// Connect derives the directed flow tree: binds reach endpoints to their
// nearest nodes, resolves the single outlet, and builds the downstream and
// upstream incidence tables by breadth-first propagation from the outlet.
// Connect recomputes from scratch on every call; reconnecting an unmodified
// catchment yields identical tables.
func (c *Catchment) Connect() (*ConnectReport, error) {
	rpt := &ConnectReport{}
	c.DS, c.US, c.Out = nil, nil, NilNode

	tbl := c.buildConnections(rpt)
	out, err := c.findOutlet()
	if err != nil {
		return nil, err
	}
	ds, us := c.buildIncidence(tbl, out, rpt)

	// a node with two downstream reaches is not a tree
	for i := range ds {
		n := 0
		for _, w := range ds[i] {
			if w != NilNode {
				n++
			}
		}
		if n > 1 {
			return nil, errors.Wrapf(ErrMalformedTopology, "node %q has %d downstream reaches", c.Nodes[i].Name, n)
		}
	}

	c.DS, c.US, c.Out = ds, us, out
	return rpt, nil
}

func (c *Catchment) connected() bool { return c.DS != nil && c.Out != NilNode }

func (c *Catchment) NumNodes() int   { return len(c.Nodes) }
func (c *Catchment) NumReaches() int { return len(c.Reaches) }

// Outlet returns the resolved outlet index, NilNode before Connect.
func (c *Catchment) Outlet() int { return c.Out }

// Node returns the node at index i.
func (c *Catchment) Node(i int) (Node, error) {
	if i < 0 || i >= len(c.Nodes) {
		return Node{}, errors.Wrapf(ErrIndexOutOfRange, "node %d of %d", i, len(c.Nodes))
	}
	return c.Nodes[i], nil
}

// Direction selects an incidence table.
type Direction int

const (
	Downstream Direction = iota
	Upstream
)

// ReachesFrom lists the indices of the reaches leading away from node i in the
// given direction.
func (c *Catchment) ReachesFrom(i int, d Direction) ([]int, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}
	if i < 0 || i >= len(c.Nodes) {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "node %d of %d", i, len(c.Nodes))
	}
	tbl := c.DS
	if d == Upstream {
		tbl = c.US
	}
	var o []int
	for j, w := range tbl[i] {
		if w != NilNode {
			o = append(o, j)
		}
	}
	return o, nil
}

// upsOf lists the nodes directly upstream of i, deduplicated, in reach-index
// order.
func (c *Catchment) upsOf(i int) []int {
	var o []int
	for _, w := range c.US[i] {
		if w == NilNode {
			continue
		}
		dup := false
		for _, x := range o {
			if x == w {
				dup = true
				break
			}
		}
		if !dup {
			o = append(o, w)
		}
	}
	return o
}

// downOf returns the single node directly downstream of i, EndTraversal at the
// outlet.
func (c *Catchment) downOf(i int) int {
	for _, w := range c.DS[i] {
		if w != NilNode {
			return w
		}
	}
	return EndTraversal
}

func (c *Catchment) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return errors.Wrap(err, "catchment.SaveGob")
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrap(err, "catchment.SaveGob")
	}
	return nil
}

func LoadGobCatchment(fp string) (*Catchment, error) {
	var c Catchment
	f, err := os.Open(fp)
	if err != nil {
		return nil, errors.Wrap(err, "catchment.LoadGob")
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "catchment.LoadGob")
	}
	return &c, nil
}
