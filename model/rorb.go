package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Chain-Frost/pyromb"
	"github.com/pkg/errors"
)

// Header and token literals for the .catg control file (RORB manual version 6
// layout, Table 5-1).
const (
	leadingToken    = "C "
	vectorHeader    = "1\nCatchment generated by pyromb\n"
	graphicalHeader = "GRAPHICAL DATA VERSION 1\n"
	nodeHeader      = "C NODES\n"
	reachHeader     = "C REACHES\n"
	graphicalTail   = "END GRAPHICAL DATA\n"
)

// RORB builds the control vector for the RORB runoff routing model: the
// graphical block (node and reach display records) followed by the vector
// block (control codes, sub-areas, fraction impervious).
type RORB struct{}

func (RORB) GetVector(t *pyromb.Traveller) (string, error) {
	t.Reset()
	t.Step() // walk to the most upstream node
	vb := &vectorBlock{}
	gb := newGraphicsBlock()
	for t.StepPos() != pyromb.EndTraversal {
		sc, err := vb.step(t)
		if err != nil {
			return "", err
		}
		gb.step(sc, t)
	}
	return gb.build() + vb.build(t), nil
}

// stateCode pairs a RORB control code with the walk position it was produced
// at.
type stateCode struct{ code, pos int }

// vectorBlock accumulates the control vector while the serializer walk
// traverses the catchment.
type vectorBlock struct {
	stored  []int // confluence indices holding a stored hydrograph
	running bool  // a hydrograph is running
	states  []stateCode
	control []string
}

func (vb *vectorBlock) step(t *pyromb.Traveller) (stateCode, error) {
	sc, err := vb.state(t)
	if err != nil {
		return stateCode{}, err
	}
	vb.controlLine(sc, t)
	return sc, nil
}

// state derives the control code for the current walk position:
//
//	1 start a hydrograph at a sub-area
//	2 add a sub-area to the running hydrograph
//	3 store the running hydrograph at a confluence, climb the next reach
//	4 pop a stored hydrograph back off the stack
//	5 route the running hydrograph through a junction
func (vb *vectorBlock) state(t *pyromb.Traveller) (stateCode, error) {
	i := t.StepPos()
	if i == pyromb.EndTraversal {
		sc := stateCode{0, i}
		vb.states = append(vb.states, sc)
		return sc, nil
	}
	up := t.Top(i)
	n := mustNode(t, i)
	var ret stateCode
	switch {
	case !vb.running && n.IsBasin():
		vb.running = true
		t.Step()
		ret = stateCode{1, i}
	case len(vb.stored) > 0 && vb.stored[len(vb.stored)-1] == i && vb.running:
		vb.stored = vb.stored[:len(vb.stored)-1]
		ret = stateCode{4, i}
	case vb.running && n.IsBasin() && up == i:
		t.Step()
		ret = stateCode{2, i}
	case vb.running && up != i:
		vb.stored = append(vb.stored, i)
		vb.running = false
		t.Step()
		ret = stateCode{3, i}
	case vb.running && !n.IsBasin() && up == i:
		t.Step()
		ret = stateCode{5, i}
	default:
		return stateCode{}, errors.Wrapf(pyromb.ErrMalformedTopology,
			"no control state at junction %q: no contributing sub-area upstream", n.Name)
	}
	vb.states = append(vb.states, ret)
	return ret, nil
}

// controlLine formats the control vector entry for a state code. Codes 1, 2
// and 5 describe the reach leaving the node; the outlet has none and closes
// the vector with the code-7 out line.
func (vb *vectorBlock) controlLine(sc stateCode, t *pyromb.Traveller) {
	var line string
	switch sc.code {
	case 1, 2, 5:
		if r, ok := t.DownstreamReach(sc.pos); ok {
			if r.Type == pyromb.Natural || r.Type == pyromb.Drowned {
				line = fmt.Sprintf("%d,%d,%s,-99", sc.code, r.Type, fstr(r.Length()/1000, 3))
			} else {
				line = fmt.Sprintf("%d,%d,%s,%s,-99", sc.code, r.Type, fstr(r.Length()/1000, 3), fstr(r.Slope, -1))
			}
		} else {
			line = "7\nout\n0"
		}
	case 3, 4:
		line = strconv.Itoa(sc.code)
	case 0:
		line = "7\nout\n'0"
	}
	vb.control = append(vb.control, line)
}

// subAreaStr lists the contributing areas in order of travel.
func (vb *vectorBlock) subAreaStr(t *pyromb.Traveller) string {
	var sb strings.Builder
	for _, sc := range vb.states {
		if sc.code == 1 || sc.code == 2 {
			sb.WriteString(fstr(mustNode(t, sc.pos).Area, 6) + ",")
		}
	}
	sb.WriteString("-99")
	return sb.String()
}

// fracImpStr lists the fraction impervious in order of travel.
func (vb *vectorBlock) fracImpStr(t *pyromb.Traveller) string {
	sb := strings.Builder{}
	sb.WriteString("1,")
	for _, sc := range vb.states {
		if sc.code == 1 || sc.code == 2 {
			sb.WriteString(fstr(mustNode(t, sc.pos).Fi, 3) + ",")
		}
	}
	sb.WriteString("-99")
	return sb.String()
}

func (vb *vectorBlock) build(t *pyromb.Traveller) string {
	var sb strings.Builder
	sb.WriteString(vectorHeader)
	for _, c := range vb.control {
		sb.WriteString(c + "\n")
	}
	sb.WriteString(vb.subAreaStr(t) + "\n")
	sb.WriteString(vb.fracImpStr(t) + "\n")
	return sb.String()
}

type nodeRow struct {
	id             string
	x, y           float64
	icon           float64
	isBasin, isEnd int
	dsID           string
	name           string
	area, fi       float64
	prt, outx, cmt int
}

type reachRow struct {
	id            string
	name          string
	usID, dsID    string
	translation   int
	rtype         int
	prt           int
	length, slope float64
	ngp, cmt      int
	x, y          float64
}

// graphicsBlock accumulates the display records of the .catg graphical
// section. Display IDs are assigned in order of first appearance and resolved
// from their name tags when the block is built.
type graphicsBlock struct {
	idMap               map[string]int
	nodes               []nodeRow
	reaches             []reachRow
	nextNode, nextReach int
}

func newGraphicsBlock() *graphicsBlock {
	return &graphicsBlock{idMap: map[string]int{}}
}

func (gb *graphicsBlock) step(sc stateCode, t *pyromb.Traveller) {
	if sc.code != 1 && sc.code != 2 && sc.code != 5 {
		return
	}
	gb.nodeDisplay(sc, t)
	gb.reachDisplay(sc, t)
}

func (gb *graphicsBlock) nodeDisplay(sc stateCode, t *pyromb.Traveller) {
	n := mustNode(t, sc.pos)
	tag := "<" + n.Name + ">"
	gb.nextNode++
	gb.idMap[tag] = gb.nextNode

	dsTag := ""
	if ds, err := t.Down(sc.pos); err == nil && ds != pyromb.EndTraversal {
		dsTag = "<" + mustNode(t, ds).Name + ">"
	}
	isEnd := 0
	if n.IsOutlet() {
		isEnd = 1
	}
	isBasin := 0
	if n.IsBasin() {
		isBasin = 1
	}
	gb.nodes = append(gb.nodes, nodeRow{
		id: tag, x: n.At[0], y: n.At[1], icon: 1,
		isBasin: isBasin, isEnd: isEnd, dsID: dsTag,
		name: n.Name, area: n.Area, fi: n.Fi,
	})
}

func (gb *graphicsBlock) reachDisplay(sc stateCode, t *pyromb.Traveller) {
	r, ok := t.DownstreamReach(sc.pos)
	if !ok {
		return
	}
	tag := "<" + r.Name + ">"
	gb.nextReach++
	gb.idMap[tag] = gb.nextReach

	sp, ep := r.US(), r.DS()
	dsTag := ""
	if ds, err := t.Down(sc.pos); err == nil && ds != pyromb.EndTraversal {
		dsTag = "<" + mustNode(t, ds).Name + ">"
	}
	gb.reaches = append(gb.reaches, reachRow{
		id: tag, name: r.Name,
		usID: "<" + mustNode(t, sc.pos).Name + ">", dsID: dsTag,
		rtype:  int(r.Type),
		length: r.Length() / 1000, slope: r.Slope, ngp: 1,
		x: (ep[0]-sp[0])/2 + sp[0], y: (ep[1]-sp[1])/2 + sp[1],
	})
}

func (gb *graphicsBlock) build() string {
	// normalise display coordinates to a 0–100 frame spanned by the nodes
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	for _, r := range gb.nodes {
		xmin, xmax = math.Min(xmin, r.x), math.Max(xmax, r.x)
		ymin, ymax = math.Min(ymin, r.y), math.Max(ymax, r.y)
	}
	sx, sy := xmax-xmin, ymax-ymin
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	norm := func(x, y float64) (float64, float64) {
		return (x - xmin) / sx * 100, (y - ymin) / sy * 100
	}
	ref := func(tag string) int { return gb.idMap[tag] } // unknown tags display as 0

	var sb strings.Builder
	sb.WriteString(graphicalHeader)
	sb.WriteString(nodeHeader)
	sb.WriteString(leadingToken + " " + strconv.Itoa(len(gb.nodes)) + "\n")
	for _, r := range gb.nodes {
		x, y := norm(r.x, r.y)
		sb.WriteString(leadingToken)
		sb.WriteString(fmt.Sprintf("%7d", ref(r.id)))
		sb.WriteString(fmt.Sprintf("%15s", fstr(x, 3)))
		sb.WriteString(fmt.Sprintf("%15s", fstr(y, 3)))
		sb.WriteString(fmt.Sprintf("%15.3f", r.icon))
		sb.WriteString(fmt.Sprintf("%2d", r.isBasin))
		sb.WriteString(fmt.Sprintf("%2d", r.isEnd))
		sb.WriteString(fmt.Sprintf("%6d", ref(r.dsID)))
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("%-2s", r.name))
		sb.WriteString(fmt.Sprintf("%33.6f", r.area))
		sb.WriteString(fmt.Sprintf("%15.6f", r.fi))
		sb.WriteString(fmt.Sprintf("%3d", r.prt))
		sb.WriteString(fmt.Sprintf("%3d", r.outx))
		sb.WriteString(fmt.Sprintf("%3d", r.cmt))
		sb.WriteString("\n" + leadingToken + "\n")
	}

	sb.WriteString(leadingToken + "\n")
	sb.WriteString(reachHeader)
	sb.WriteString(leadingToken + fmt.Sprintf("%7d", len(gb.reaches)) + "\n")
	for _, r := range gb.reaches {
		x, y := norm(r.x, r.y)
		sb.WriteString(leadingToken)
		sb.WriteString(fmt.Sprintf("%7d", ref(r.id)))
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("%-8s", r.name))
		sb.WriteString(fmt.Sprintf("%18d", ref(r.usID)))
		sb.WriteString(fmt.Sprintf("%6d", ref(r.dsID)))
		sb.WriteString(fmt.Sprintf("%15d", r.translation))
		sb.WriteString(fmt.Sprintf("%2d", r.rtype))
		sb.WriteString(fmt.Sprintf("%2d", r.prt))
		sb.WriteString(fmt.Sprintf("%15.3f", r.length))
		sb.WriteString(fmt.Sprintf("%15.3f", r.slope))
		sb.WriteString(fmt.Sprintf("%6d", r.ngp))
		sb.WriteString(fmt.Sprintf("%3d", r.cmt))
		sb.WriteString("\n" + leadingToken + fmt.Sprintf("%16.3f", x))
		sb.WriteString("\n" + leadingToken + fmt.Sprintf("%16.3f", y))
		sb.WriteString("\n")
	}
	sb.WriteString(graphicalTail)
	return sb.String()
}

// fstr formats v rounded to prec decimals with trailing zeros trimmed; prec<0
// leaves v untouched.
func fstr(v float64, prec int) string {
	if prec >= 0 {
		p := math.Pow(10, float64(prec))
		v = math.Round(v*p) / p
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
