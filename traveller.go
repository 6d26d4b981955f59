package pyromb

import "github.com/pkg/errors"

// Traveller is a read-only cursor over a connected catchment. Independent
// Travellers over one catchment do not interfere.
//
// Two traversal surfaces are exposed. Next/Position step a pre-order sequence
// precomputed by a single depth-first walk from the outlet along upstream
// links, emitting each node when first reached: the outlet comes first, and
// the upstream neighbours of a node are taken in reach-index order, so the
// sequence is stable for a given input and lists every reachable node exactly
// once before pinning at EndTraversal.
//
// Step/StepPos/Top expose the climb-to-top walk the runfile serializers
// encode against: climb to the most upstream unvisited node, mark it, descend
// one node, repeat. Confluences are legitimately revisited on descent; the
// RORB control-vector state machine depends on those revisits.
type Traveller struct {
	c      *Catchment
	order  []int // precomputed pre-order
	cursor int   // index into order; -1 before the first Next
	pos    int   // serializer-walk position
	colour []int // serializer-walk visited marks
}

// NewTraveller wraps a connected catchment.
func NewTraveller(c *Catchment) (*Traveller, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}
	t := &Traveller{c: c, cursor: -1, pos: c.Out, colour: make([]int, len(c.Nodes))}
	t.order = t.preorder()
	return t, nil
}

// preorder walks depth-first from the outlet along upstream links with an
// explicit stack, emitting each node when first reached. The seen guard
// bounds the walk on malformed input.
func (t *Traveller) preorder() []int {
	seen := make([]bool, len(t.c.Nodes))
	order := make([]int, 0, len(t.c.Nodes))
	stack := []int{t.c.Out}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		order = append(order, i)
		ups := t.c.upsOf(i)
		for k := len(ups) - 1; k >= 0; k-- { // reversed so the lowest reach index is walked first
			if !seen[ups[k]] {
				stack = append(stack, ups[k])
			}
		}
	}
	return order
}

// Position returns the pre-order cursor's node index; EndTraversal before the
// first Next and once the walk has completed. Position alone cannot tell a
// cursor not yet started from a finished one: callers begin a traversal with
// Next, whose first call lands on the outlet.
func (t *Traveller) Position() int {
	if t.cursor < 0 || t.cursor >= len(t.order) {
		return EndTraversal
	}
	return t.order[t.cursor]
}

// Next advances the pre-order cursor and returns the new position. Past the
// end it is a no-op that keeps returning EndTraversal.
func (t *Traveller) Next() int {
	if t.cursor < len(t.order) {
		t.cursor++
	}
	return t.Position()
}

// Reset rewinds both the pre-order cursor and the serializer walk.
func (t *Traveller) Reset() {
	t.cursor = -1
	t.pos = t.c.Out
	for i := range t.colour {
		t.colour[i] = 0
	}
}

// GetNode is a direct lookup, independent of either cursor.
func (t *Traveller) GetNode(i int) (Node, error) { return t.c.Node(i) }

// Up lists the nodes directly upstream of i, deduplicated, in reach-index
// order.
func (t *Traveller) Up(i int) ([]int, error) {
	if err := t.check(i); err != nil {
		return nil, err
	}
	return t.c.upsOf(i), nil
}

// Down returns the single node directly downstream of i, EndTraversal when i
// is the outlet.
func (t *Traveller) Down(i int) (int, error) {
	if err := t.check(i); err != nil {
		return EndTraversal, err
	}
	return t.c.downOf(i), nil
}

// DownstreamReach returns the reach leaving node i downstream; ok is false at
// the outlet (and on any index out of range).
func (t *Traveller) DownstreamReach(i int) (*Reach, bool) {
	if t.check(i) != nil {
		return nil, false
	}
	for j, w := range t.c.DS[i] {
		if w != NilNode {
			return &t.c.Reaches[j], true
		}
	}
	return nil, false
}

// Top returns the most upstream node reachable from i that the serializer
// walk has not yet visited, following the first unvisited upstream link at
// each level; i itself when nothing unvisited remains above it.
func (t *Traveller) Top(i int) int {
	for guard := 0; guard <= len(t.c.Nodes); guard++ {
		next := i
		for _, u := range t.c.upsOf(i) {
			if t.colour[u] == 0 {
				next = u
				break
			}
		}
		if next == i {
			return i
		}
		i = next
	}
	return i // cycle-guarded; cannot trip on a well-formed tree
}

// StepPos returns the serializer walk's current position.
func (t *Traveller) StepPos() int { return t.pos }

// Step advances the serializer walk: climb toward the top while an unvisited
// node remains above the current position, otherwise mark the current node
// visited and descend one node. Returns the new position, EndTraversal once
// the walk has descended past the outlet.
func (t *Traveller) Step() int {
	if t.pos == EndTraversal {
		return EndTraversal
	}
	up := t.Top(t.pos)
	if up == t.pos {
		t.colour[t.pos] = 1
		t.pos = t.c.downOf(t.pos)
		return t.pos
	}
	t.pos = up
	return t.pos
}

// ResolveEffectiveDownstream follows Down repeatedly, skipping pure junctions
// (confluences not flagged as the outlet), until it reaches a contributing
// basin; reaching the outlet — whose downstream side terminates contributing
// topology — resolves to EndTraversal. The loop is bounded by the node count;
// overrunning it means the tables hold a cycle and fails loudly.
func (t *Traveller) ResolveEffectiveDownstream(i int) (int, error) {
	if err := t.check(i); err != nil {
		return EndTraversal, err
	}
	at := i
	for n := 0; n <= len(t.c.Nodes); n++ {
		ds := t.c.downOf(i)
		if ds == EndTraversal {
			return EndTraversal, nil
		}
		nd := t.c.Nodes[ds]
		if nd.IsBasin() {
			return ds, nil
		}
		if nd.IsOutlet() {
			return EndTraversal, nil
		}
		i = ds
	}
	return EndTraversal, errors.Wrapf(ErrMalformedTopology, "effective downstream of node %d did not resolve within %d steps", at, len(t.c.Nodes))
}

func (t *Traveller) check(i int) error {
	if i < 0 || i >= len(t.c.Nodes) {
		return errors.Wrapf(ErrIndexOutOfRange, "node %d of %d", i, len(t.c.Nodes))
	}
	return nil
}
