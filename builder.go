package pyromb

import (
	"log"
	"strconv"
	"strings"

	"github.com/gosuri/uiprogress"
	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// required attribute fields per layer
var expectedFields = map[string][]string{
	"reaches":     {"id", "t", "s"},
	"basins":      {},
	"centroids":   {"id", "fi"},
	"confluences": {"id", "out"},
}

// Builder creates the typed entities the catchment is assembled from: reaches
// from the stream layer, confluences from the junction layer, and basins from
// the centroid layer paired against the sub-catchment outline polygons.
// Building takes place before the catchment is connected and traversed.
type Builder struct {
	ReachFP, BasinFP, CentroidFP, ConfluenceFP string
}

type layer struct {
	shapes []shp.Shape
	attrs  []map[string]string
}

// readLayer loads a shapefile and validates its attribute table against the
// fields the given layer kind requires.
func readLayer(fp, kind string) (*layer, error) {
	r, err := shp.Open(fp)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s layer %s", kind, fp)
	}
	defer r.Close()

	fields := r.Fields()
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		names[strings.ToLower(f.String())] = true
	}
	for _, req := range expectedFields[kind] {
		if !names[req] {
			return nil, errors.Errorf("%s layer %s: required field %q missing", kind, fp, req)
		}
	}

	ly := &layer{}
	for r.Next() {
		row, s := r.Shape()
		at := make(map[string]string, len(fields))
		for i, f := range fields {
			at[strings.ToLower(f.String())] = strings.TrimSpace(r.ReadAttribute(row, i))
		}
		ly.shapes = append(ly.shapes, s)
		ly.attrs = append(ly.attrs, at)
	}
	return ly, nil
}

// Reach builds the reach objects from the stream layer.
func (b *Builder) Reach() ([]Reach, error) {
	ly, err := readLayer(b.ReachFP, "reaches")
	if err != nil {
		return nil, err
	}
	reaches := make([]Reach, 0, len(ly.shapes))
	for i, s := range ly.shapes {
		pl, ok := s.(*shp.PolyLine)
		if !ok {
			return nil, errors.Errorf("reaches feature %d: not a polyline", i)
		}
		if len(pl.Points) < 2 {
			log.Printf("WARNING reaches feature %d: fewer than 2 points; skipped", i)
			continue
		}
		ls := make(orb.LineString, len(pl.Points))
		for k, p := range pl.Points {
			ls[k] = orb.Point{p.X, p.Y}
		}
		rt, err := strconv.Atoi(ly.attrs[i]["t"])
		if err != nil || rt < int(Natural) || rt > int(Drowned) {
			return nil, errors.Errorf("reaches feature %d: bad type %q", i, ly.attrs[i]["t"])
		}
		slope, err := strconv.ParseFloat(ly.attrs[i]["s"], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "reaches feature %d: bad slope", i)
		}
		reaches = append(reaches, Reach{Name: ly.attrs[i]["id"], Line: ls, Type: ReachType(rt), Slope: slope})
	}
	return reaches, nil
}

// Confluence builds the confluence objects from the junction layer.
func (b *Builder) Confluence() ([]Node, error) {
	ly, err := readLayer(b.ConfluenceFP, "confluences")
	if err != nil {
		return nil, err
	}
	confl := make([]Node, 0, len(ly.shapes))
	for i, s := range ly.shapes {
		pt, ok := s.(*shp.Point)
		if !ok {
			return nil, errors.Errorf("confluences feature %d: not a point", i)
		}
		out, err := strconv.ParseFloat(ly.attrs[i]["out"], 64)
		if err != nil {
			return nil, errors.Errorf("confluences feature %d: bad out flag %q", i, ly.attrs[i]["out"])
		}
		confl = append(confl, NewConfluence(ly.attrs[i]["id"], pt.X, pt.Y, out != 0))
	}
	return confl, nil
}

// Basin builds the basin objects: each centroid is paired with the
// sub-catchment outline polygon containing it, from which the contributing
// area is taken. A centroid inside no polygon is skipped with a warning; a
// centroid inside several keeps the first.
func (b *Builder) Basin() ([]Node, error) {
	cly, err := readLayer(b.CentroidFP, "centroids")
	if err != nil {
		return nil, err
	}
	bly, err := readLayer(b.BasinFP, "basins")
	if err != nil {
		return nil, err
	}

	polys := make([]orb.Polygon, 0, len(bly.shapes))
	for i, s := range bly.shapes {
		pg, ok := s.(*shp.Polygon)
		if !ok {
			return nil, errors.Errorf("basins feature %d: not a polygon", i)
		}
		poly := toPolygon(pg)
		if len(poly) == 0 {
			log.Printf("WARNING basins feature %d: empty geometry; skipped", i)
			continue
		}
		polys = append(polys, poly)
	}

	basins := make([]Node, 0, len(cly.shapes))
	uiprogress.Start()
	bar := uiprogress.AddBar(len(cly.shapes)).AppendCompleted().PrependElapsed()
	for i, s := range cly.shapes {
		bar.Incr()
		pt, ok := s.(*shp.Point)
		if !ok {
			uiprogress.Stop()
			return nil, errors.Errorf("centroids feature %d: not a point", i)
		}
		id := cly.attrs[i]["id"]
		p := orb.Point{pt.X, pt.Y}
		hits := containingPolygons(p, polys)
		if len(hits) == 0 {
			log.Printf("WARNING centroid %q at %v contained by no basin polygon; skipped", id, p)
			continue
		}
		if len(hits) > 1 {
			log.Printf("WARNING centroid %q at %v contained by %d basin polygons; keeping the first", id, p, len(hits))
		}
		fi, err := strconv.ParseFloat(cly.attrs[i]["fi"], 64)
		if err != nil {
			uiprogress.Stop()
			return nil, errors.Errorf("centroids feature %d: bad fi %q", i, cly.attrs[i]["fi"])
		}
		areaKm2 := planar.Area(polys[hits[0]]) / 1e6 // layer units m² to km²
		basins = append(basins, NewBasin(id, pt.X, pt.Y, areaKm2, fi))
	}
	uiprogress.Stop()
	return basins, nil
}

// containingPolygons lists the indices of the polygons containing pt, in layer
// order.
func containingPolygons(pt orb.Point, polys []orb.Polygon) []int {
	var hits []int
	for j := range polys {
		if planar.PolygonContains(polys[j], pt) {
			hits = append(hits, j)
		}
	}
	return hits
}

// toPolygon converts a shapefile polygon, part by part, closing any open ring.
func toPolygon(p *shp.Polygon) orb.Polygon {
	n := len(p.Points)
	var pg orb.Polygon
	for k := 0; k < int(p.NumParts); k++ {
		a, b := int(p.Parts[k]), n
		if k+1 < int(p.NumParts) {
			b = int(p.Parts[k+1])
		}
		if b <= a {
			continue
		}
		ring := make(orb.Ring, 0, b-a+1)
		for _, q := range p.Points[a:b] {
			ring = append(ring, orb.Point{q.X, q.Y})
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		pg = append(pg, ring)
	}
	return pg
}
