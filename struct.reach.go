package pyromb

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ReachType per the RORB reach classification.
type ReachType int

const (
	Natural ReachType = iota + 1
	Unlined
	Lined
	Drowned
)

// Reach is a directed stream segment connecting two nodes. By construction the
// first point of the line is the upstream end and the last the downstream end.
// Type and Slope are carried for the runfile serializers only; the graph core
// reads nothing but the endpoints.
type Reach struct {
	Name  string
	Line  orb.LineString
	Type  ReachType
	Slope float64 // m/m
}

// US returns the upstream end of the reach.
func (r *Reach) US() orb.Point { return r.Line[0] }

// DS returns the downstream end of the reach.
func (r *Reach) DS() orb.Point { return r.Line[len(r.Line)-1] }

// Length is the cartesian length of the reach polyline.
func (r *Reach) Length() float64 { return planar.Length(r.Line) }
