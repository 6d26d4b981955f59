package model

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/Chain-Frost/pyromb"
)

// WBNM creates a templated runfile from the catchment diagram. Only the
// catchment-derived blocks carry real data; storm and structure blocks are
// emitted as editable templates.
type WBNM struct {
	VersionNumber     string
	CatchmentName     string
	NonLinExp         float64
	LagParam          float64
	ImpLagFact        float64
	DischargeSwitch   int
	StreamRoutingType string
	StreamLagFactor   float64
}

func NewWBNM() *WBNM {
	return &WBNM{
		VersionNumber:     "2021_000",
		CatchmentName:     "Catchment",
		NonLinExp:         0.77,
		LagParam:          1.3,
		ImpLagFact:        0.1,
		DischargeSwitch:   -99,
		StreamRoutingType: "#####ROUTING",
		StreamLagFactor:   1,
	}
}

// subArea is a WBNM sub-catchment: a basin which generates a hydrograph and
// routes it to the downstream sub-area, or to the sink at the outlet.
type subArea struct {
	node   pyromb.Node
	stream bool   // has upstream reaches, so routes a stream channel
	dsName string // downstream sub-area name, "SINK" at the outlet
}

func (w *WBNM) GetVector(t *pyromb.Traveller) (string, error) {
	t.Reset()
	subs := w.subAreas(t)
	blocks := []string{
		w.blockPreamble(),
		w.blockStatus(),
		w.blockDisplay(),
		w.blockTopology(subs),
		w.blockSurface(subs),
		w.blockFlowPaths(subs),
		w.blockLocalStructures(),
		w.blockOutletStructures(),
	}
	return strings.Join(blocks, "\n\n\n") + "\n\n\n" + w.blockStorm(), nil
}

// subAreas enumerates the basins in traversal order. Confluences are not
// sub-areas in WBNM; the downstream sub-area is resolved by skipping them.
func (w *WBNM) subAreas(t *pyromb.Traveller) []subArea {
	var subs []subArea
	for i := t.Next(); i != pyromb.EndTraversal; i = t.Next() {
		n := mustNode(t, i)
		if !n.IsBasin() {
			continue
		}
		ups, _ := t.Up(i)
		dsName := "SINK"
		eff, err := t.ResolveEffectiveDownstream(i)
		if err != nil {
			log.Printf("WARNING sub-area %q: %v; routed to SINK", n.Name, err)
		} else if eff != pyromb.EndTraversal {
			dsName = mustNode(t, eff).Name
		}
		subs = append(subs, subArea{node: n, stream: len(ups) != 0, dsName: dsName})
	}
	return subs
}

// value fields are 12 characters wide: text left-justified, numbers right.
// Values longer than the field are truncated.

func vbs(s string) string {
	if len(s) > 12 {
		s = s[:12]
	}
	return fmt.Sprintf("%-12s", s)
}

func vbi(v int) string { return fmt.Sprintf("%12d", v) }

func vbf(v float64) string {
	var s string
	if v == math.Trunc(v) {
		s = strconv.FormatFloat(v, 'f', 1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if len(s) > 12 {
		s = s[:12]
	}
	return fmt.Sprintf("%12s", s)
}

func round(v float64, prec int) float64 {
	p := math.Pow(10, float64(prec))
	return math.Round(v*p) / p
}

func (w *WBNM) blockPreamble() string {
	return "#####START_PREAMBLE_BLOCK##########|###########|###########|###########|\n" +
		strings.Repeat("\n", 8) +
		"#####END_PREAMBLE_BLOCK############|###########|###########|###########|"
}

func (w *WBNM) blockStatus() string {
	return "#####START_STATUS_BLOCK############|###########|###########|###########|\n" +
		strings.Repeat("\n", 3) +
		vbs(w.VersionNumber) + "\n" +
		"#####END_STATUS_BLOCK##############|###########|###########|###########|"
}

func (w *WBNM) blockDisplay() string {
	return "#####START_DISPLAY_BLOCK###########|###########|###########|###########|\n" +
		vbi(0) + vbi(0) + vbi(0) + vbi(0) + "\n" +
		vbs("none") + "\n" +
		vbi(0) + vbi(0) + vbi(0) + vbi(0) + vbi(0) + vbi(0) + "\n" +
		"#####END_DISPLAY_BLOCK#############|###########|###########|###########|"
}

func (w *WBNM) blockTopology(subs []subArea) string {
	var sb strings.Builder
	sb.WriteString("#####START_TOPOLOGY_BLOCK###########|###########|###########|###########|\n")
	sb.WriteString(vbi(len(subs)) + " " + vbs(w.CatchmentName) + "\n")
	for _, s := range subs {
		sb.WriteString(vbs(s.node.Name))
		sb.WriteString(vbf(round(s.node.At[0], 3)))
		sb.WriteString(vbf(round(s.node.At[1], 3)))
		sb.WriteString(vbi(0) + vbi(0))
		sb.WriteString(" " + vbs(s.dsName) + "\n")
	}
	sb.WriteString("#####END_TOPOLOGY_BLOCK#############|###########|###########|###########|")
	return sb.String()
}

func (w *WBNM) blockSurface(subs []subArea) string {
	var sb strings.Builder
	sb.WriteString("#####START_SURFACES_BLOCK##########|###########|###########|###########|\n")
	sb.WriteString(vbf(w.NonLinExp) + vbf(w.LagParam) + vbf(w.ImpLagFact) + "\n")
	sb.WriteString(vbi(w.DischargeSwitch) + "\n")
	for _, s := range subs {
		// area in hectares
		sb.WriteString(vbs(s.node.Name) + vbf(round(s.node.Area*100, 2)) + vbf(round(s.node.Fi, 2)) + "\n")
	}
	sb.WriteString("#####END_SURFACES_BLOCK############|###########|###########|###########|")
	return sb.String()
}

func (w *WBNM) blockFlowPaths(subs []subArea) string {
	n := 0
	var sb strings.Builder
	sb.WriteString("#####START_FLOWPATHS_BLOCK#########|###########|###########|###########|\n")
	var lines strings.Builder
	for _, s := range subs {
		if !s.stream {
			continue
		}
		n++
		lines.WriteString(vbs(s.node.Name) + "\n")
		lines.WriteString(vbs(w.StreamRoutingType) + "\n")
		lines.WriteString(vbf(w.StreamLagFactor) + "\n")
	}
	sb.WriteString(strconv.Itoa(n) + "\n")
	sb.WriteString(lines.String())
	sb.WriteString("#####END_FLOWPATHS_BLOCK###########|###########|###########|###########|")
	return sb.String()
}

func (w *WBNM) blockLocalStructures() string {
	return "#####START_LOCAL_STRUCTURES_BLOCK##|###########|###########|###########|\n" +
		"0\n" +
		"#####END_LOCAL_STRUCTURES_BLOCK####|###########|###########|###########|"
}

func (w *WBNM) blockOutletStructures() string {
	return "#####START_OUTLET_STRUCTURES_BLOCK#|###########|###########|###########|\n" +
		"0\n" +
		"#####END_OUTLET_STRUCTURES_BLOCK###|###########|###########|###########|"
}

func (w *WBNM) blockStorm() string {
	return "#####START_STORM_BLOCK#############|###########|###########|###########|\n" +
		vbi(1) + "\n" +
		"#####START_STORM#1\n" +
		"1%AEP dura/patt spectrum  - losses 27/4 GLOBAL - ARF = Calculated from ARR\n" +
		vbf(1.0) + "\n" +
		vbf(5.0) + "\n" +
		"#####START_DESIGN_RAIN_ARR\n" +
		vbf(1.0) + vbi(-1) + vbi(-1) + vbi(-1) + "\n" +
		"IFD_DATA_IN_GAUGE_FILES\n" +
		vbi(2) + "\n" +
		"gauge_lower\n" +
		"gauge_upper\n" +
		"PAT_DATA_IN_REGION_FILE\n" +
		"pattern_increments.csv\n" +
		"CAT_DATA_IN_CATCHMENT_FILE\n" +
		"catchment_data.txt\n" +
		"#####END_DESIGN_RAIN_ARR\n" +
		"#####START_CALC_RAINGAUGE_WEIGHTS\n" +
		"#####END_CALC_RAINGAUGE_WEIGHTS\n" +
		"#####START_LOSS_RATES\n" +
		vbs("GLOBAL") + vbf(27.0) + vbf(4.0) + vbf(0.0) + "\n" +
		"#####END_LOSS_RATES\n" +
		"#####START_RECORDED_HYDROGRAPHS\n" +
		vbi(0) + "\n" +
		"#####END_RECORDED_HYDROGRAPHS\n" +
		"#####START_IMPORTED_HYDROGRAPHS\n" +
		vbi(0) + "\n" +
		"#####END_IMPORTED_HYDROGRAPHS\n" +
		"#####END_STORM#1\n" +
		"#####END_STORM_BLOCK###############|###########|###########|###########|"
}
