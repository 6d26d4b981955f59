package model

import (
	"strings"
	"testing"

	"github.com/Chain-Frost/pyromb"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forkTraveller: basins A and B each draining by a 10 m reach into the outlet
// confluence C. Node indices: C=0, A=1, B=2.
func forkTraveller(t *testing.T) *pyromb.Traveller {
	confl := []pyromb.Node{pyromb.NewConfluence("C", 0, 0, true)}
	basins := []pyromb.Node{
		pyromb.NewBasin("A", 0, 10, 1.2, 0.25),
		pyromb.NewBasin("B", 10, 0, 3.4, 0.5),
	}
	reaches := []pyromb.Reach{
		{Name: "RA", Line: orb.LineString{{0, 10}, {0, 0}}, Type: pyromb.Natural},
		{Name: "RB", Line: orb.LineString{{10, 0}, {0, 0}}, Type: pyromb.Unlined, Slope: 0.015},
	}
	c := pyromb.NewCatchment(confl, basins, reaches)
	_, err := c.Connect()
	require.NoError(t, err)
	tr, err := pyromb.NewTraveller(c)
	require.NoError(t, err)
	return tr
}

func TestRORBControlVector(t *testing.T) {
	out, err := RORB{}.GetVector(forkTraveller(t))
	require.NoError(t, err)

	// graphical section precedes the vector section
	require.Less(t, strings.Index(out, graphicalHeader), strings.Index(out, vectorHeader))
	assert.Contains(t, out, graphicalTail)

	// walk A, store at C, walk B, pop, route out
	vec := out[strings.Index(out, vectorHeader):]
	want := vectorHeader +
		"1,1,0.01,-99\n" + // start at A, natural reach
		"3\n" +
		"1,2,0.01,0.015,-99\n" + // start at B, unlined reach carries slope
		"4\n" +
		"7\nout\n0\n" +
		"1.2,3.4,-99\n" +
		"1,0.25,0.5,-99\n"
	assert.Equal(t, want, vec)
}

func TestRORBGraphicalCounts(t *testing.T) {
	out, err := RORB{}.GetVector(forkTraveller(t))
	require.NoError(t, err)
	g := out[:strings.Index(out, graphicalTail)]

	assert.Contains(t, g, nodeHeader)
	assert.Contains(t, g, reachHeader)
	assert.Equal(t, 1, strings.Count(g, leadingToken+" 3\n"), "three display nodes")
	// the outlet has no downstream reach; two reach records only
	assert.Contains(t, g, leadingToken+"      2\n")
	assert.Contains(t, g, "RA")
	assert.Contains(t, g, "RB")
}

func TestRORBRepeatable(t *testing.T) {
	tr := forkTraveller(t)
	first, err := RORB{}.GetVector(tr)
	require.NoError(t, err)
	second, err := RORB{}.GetVector(tr)
	require.NoError(t, err)
	assert.Equal(t, first, second, "GetVector resets the traveller")
}

func TestRORBRejectsBareJunction(t *testing.T) {
	// a junction with no basin upstream has no control state
	confl := []pyromb.Node{
		pyromb.NewConfluence("O", 0, 0, true),
		pyromb.NewConfluence("X", 0, 10, false),
	}
	reaches := []pyromb.Reach{
		{Name: "R0", Line: orb.LineString{{0, 10}, {0, 0}}, Type: pyromb.Natural},
	}
	c := pyromb.NewCatchment(confl, nil, reaches)
	_, err := c.Connect()
	require.NoError(t, err)
	tr, err := pyromb.NewTraveller(c)
	require.NoError(t, err)

	_, err = RORB{}.GetVector(tr)
	require.ErrorIs(t, err, pyromb.ErrMalformedTopology)
	assert.Contains(t, err.Error(), "X")
}

func TestFstr(t *testing.T) {
	assert.Equal(t, "0.01", fstr(0.01, 3))
	assert.Equal(t, "1.235", fstr(1.2345678, 3))
	assert.Equal(t, "1", fstr(1.0, 3))
	assert.Equal(t, "0.015", fstr(0.015, -1))
}
