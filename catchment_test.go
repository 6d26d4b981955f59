package pyromb

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(pts ...orb.Point) orb.LineString { return orb.LineString(pts) }

// forkCatchment: two basins A and B each draining by one reach into the outlet
// confluence C. Node indices: C=0, A=1, B=2.
func forkCatchment() *Catchment {
	confl := []Node{NewConfluence("C", 0, 0, true)}
	basins := []Node{
		NewBasin("A", 0, 10, 1.2, 0.25),
		NewBasin("B", 10, 0, 3.4, 0.5),
	}
	reaches := []Reach{
		{Name: "RA", Line: line(orb.Point{0, 10}, orb.Point{0, 0}), Type: Natural},
		{Name: "RB", Line: line(orb.Point{10, 0}, orb.Point{0, 0}), Type: Natural},
	}
	return NewCatchment(confl, basins, reaches)
}

// chainCatchment: B2 -> B1 -> C2 -> C1 -> O, outlet O. Node indices:
// O=0, C1=1, C2=2, B1=3, B2=4.
func chainCatchment() *Catchment {
	confl := []Node{
		NewConfluence("O", 0, 0, true),
		NewConfluence("C1", 0, 10, false),
		NewConfluence("C2", 0, 20, false),
	}
	basins := []Node{
		NewBasin("B1", 0, 30, 2, 0.1),
		NewBasin("B2", 0, 40, 5, 0.2),
	}
	reaches := []Reach{
		{Name: "R0", Line: line(orb.Point{0, 10}, orb.Point{0, 0}), Type: Natural},
		{Name: "R1", Line: line(orb.Point{0, 20}, orb.Point{0, 10}), Type: Natural},
		{Name: "R2", Line: line(orb.Point{0, 30}, orb.Point{0, 20}), Type: Natural},
		{Name: "R3", Line: line(orb.Point{0, 40}, orb.Point{0, 30}), Type: Natural},
	}
	return NewCatchment(confl, basins, reaches)
}

func TestConnectFork(t *testing.T) {
	c := forkCatchment()
	rpt, err := c.Connect()
	require.NoError(t, err)
	assert.Zero(t, rpt.Warnings())
	assert.Equal(t, 0, c.Outlet())

	assert.Equal(t, []int{1, 2}, c.upsOf(0))
	assert.Equal(t, 0, c.downOf(1))
	assert.Equal(t, 0, c.downOf(2))
	assert.Equal(t, EndTraversal, c.downOf(0))

	ds, err := c.ReachesFrom(1, Downstream)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ds)
	us, err := c.ReachesFrom(0, Upstream)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, us)
}

func TestConnectIdempotent(t *testing.T) {
	c := forkCatchment()
	_, err := c.Connect()
	require.NoError(t, err)
	ds, us, out := c.DS, c.US, c.Out

	_, err = c.Connect()
	require.NoError(t, err)
	assert.Equal(t, ds, c.DS)
	assert.Equal(t, us, c.US)
	assert.Equal(t, out, c.Out)
}

func TestConnectNoOutlet(t *testing.T) {
	c := forkCatchment()
	c.Nodes[0].Out = false
	_, err := c.Connect()
	require.ErrorIs(t, err, ErrNoOutlet)
}

func TestConnectMultipleOutlets(t *testing.T) {
	c := forkCatchment()
	c.Nodes = append(c.Nodes, NewConfluence("C2", 50, 50, true))
	_, err := c.Connect()
	require.ErrorIs(t, err, ErrMultipleOutlets)
}

func TestConnectSkipsUnboundReach(t *testing.T) {
	c := forkCatchment()
	// dangles far from every node
	c.Reaches = append(c.Reaches, Reach{Name: "RX", Line: line(orb.Point{90, 90}, orb.Point{0, 0}), Type: Natural})
	rpt, err := c.Connect()
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.SkippedReaches)
	assert.Equal(t, []int{1, 2}, c.upsOf(0))
}

func TestConnectSkipsSelfLoopReach(t *testing.T) {
	c := forkCatchment()
	c.Reaches = append(c.Reaches, Reach{Name: "RL", Line: line(orb.Point{0, 10}, orb.Point{0.01, 10}), Type: Natural})
	rpt, err := c.Connect()
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.SkippedReaches)
}

func TestConnectCountsUnmatchedLookupOnce(t *testing.T) {
	c := forkCatchment()
	// RA's upstream end binds to A within the loose tolerance but fails the
	// tight re-identification
	c.Reaches[0].Line = line(orb.Point{0.05, 10}, orb.Point{0, 0})
	rpt, err := c.Connect()
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.UnmatchedLookups)
	assert.Equal(t, 1, rpt.UnreachableNodes, "A is never propagated to")
	assert.Equal(t, 2, rpt.Warnings())
}

func TestConnectReportsUnreachableNode(t *testing.T) {
	c := forkCatchment()
	c.Nodes = append(c.Nodes, NewBasin("X", 70, 70, 1, 0))
	rpt, err := c.Connect()
	require.NoError(t, err)
	assert.Equal(t, 1, rpt.UnreachableNodes)
}

func TestConnectRejectsMultipleDownstream(t *testing.T) {
	confl := []Node{
		NewConfluence("C", 0, 0, true),
		NewConfluence("D", 5, 0, false),
	}
	basins := []Node{NewBasin("A", 0, 10, 1, 0)}
	reaches := []Reach{
		{Name: "R0", Line: line(orb.Point{0, 10}, orb.Point{0, 0}), Type: Natural},
		{Name: "R1", Line: line(orb.Point{0, 10}, orb.Point{5, 0}), Type: Natural},
		{Name: "R2", Line: line(orb.Point{5, 0}, orb.Point{0, 0}), Type: Natural},
	}
	c := NewCatchment(confl, basins, reaches)
	_, err := c.Connect()
	require.ErrorIs(t, err, ErrMalformedTopology)
}

func TestNodeOutOfRange(t *testing.T) {
	c := forkCatchment()
	_, err := c.Node(99)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = c.Node(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestReachesFromBeforeConnect(t *testing.T) {
	c := forkCatchment()
	_, err := c.ReachesFrom(0, Downstream)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestGobRoundTrip(t *testing.T) {
	c := forkCatchment()
	_, err := c.Connect()
	require.NoError(t, err)

	fp := filepath.Join(t.TempDir(), "catchment.gob")
	require.NoError(t, c.SaveGob(fp))
	c2, err := LoadGobCatchment(fp)
	require.NoError(t, err)

	assert.Equal(t, c.Nodes, c2.Nodes)
	assert.Equal(t, c.DS, c2.DS)
	assert.Equal(t, c.US, c2.US)
	assert.Equal(t, c.Out, c2.Out)

	// connectivity survives the round trip
	_, err = NewTraveller(c2)
	require.NoError(t, err)
}
