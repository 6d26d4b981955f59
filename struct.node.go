package pyromb

import "github.com/paulmach/orb"

// NodeKind discriminates the two point-like catchment entities.
type NodeKind int

const (
	ConfluenceNode NodeKind = iota // pure junction
	BasinNode                      // contributing sub-area
)

// Node is a point-like entity of the catchment tree: either a contributing
// Basin or a pass-through Confluence. Kind-specific fields are zero-valued for
// the other kind. Nodes are built once and never modified after assembly.
type Node struct {
	Name string
	At   orb.Point
	Kind NodeKind
	Area float64 // basin contributing area (km²)
	Fi   float64 // basin fraction impervious
	Out  bool    // confluence outlet flag
}

func NewBasin(name string, x, y, areaKm2, fi float64) Node {
	return Node{Name: name, At: orb.Point{x, y}, Kind: BasinNode, Area: areaKm2, Fi: fi}
}

func NewConfluence(name string, x, y float64, out bool) Node {
	return Node{Name: name, At: orb.Point{x, y}, Kind: ConfluenceNode, Out: out}
}

func (n *Node) IsBasin() bool { return n.Kind == BasinNode }

// IsOutlet reports whether n is the confluence marking where flow exits the
// modelled system.
func (n *Node) IsOutlet() bool { return n.Kind == ConfluenceNode && n.Out }
