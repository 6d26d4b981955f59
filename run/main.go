package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Chain-Frost/pyromb"
	"github.com/Chain-Frost/pyromb/model"
	"github.com/maseology/mmio"
)

// control file parameters:
//
//	reaches      stream polyline shapefile
//	basins       sub-catchment outline polygon shapefile
//	centroids    basin centroid point shapefile
//	confluences  junction point shapefile
//	out          output runfile path
//	model        rorb | wbnm
func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: pyromb <controlfile>")
		return
	}

	fmt.Println("")
	tt := mmio.NewTimer()
	defer tt.Lap("\nrunfile build complete")

	chkerr := func(err error) {
		if err != nil {
			log.Fatalln(err)
		}
	}

	ins := mmio.NewInstruct(os.Args[1])
	param := func(k string) string {
		v, ok := ins.Param[k]
		if !ok || len(v) == 0 {
			log.Fatalf("control file: parameter %q missing", k)
		}
		return v[0]
	}
	b := pyromb.Builder{
		ReachFP:      param("reaches"),
		BasinFP:      param("basins"),
		CentroidFP:   param("centroids"),
		ConfluenceFP: param("confluences"),
	}
	outFP, mdl := param("out"), strings.ToLower(param("model"))
	for _, fp := range []string{b.ReachFP, b.BasinFP, b.CentroidFP, b.ConfluenceFP} {
		if _, ok := mmio.FileExists(fp); !ok {
			log.Fatalf("input layer not found: %s", fp)
		}
	}

	reaches, err := b.Reach()
	chkerr(err)
	confl, err := b.Confluence()
	chkerr(err)
	basins, err := b.Basin()
	chkerr(err)
	tt.Print(fmt.Sprintf("layers built: %d reaches, %d confluences, %d basins\n", len(reaches), len(confl), len(basins)))

	c := pyromb.NewCatchment(confl, basins, reaches)
	rpt, err := c.Connect()
	chkerr(err)
	if n := rpt.Warnings(); n > 0 {
		fmt.Printf(" catchment connected with %d warnings\n", n)
	}
	tt.Print("catchment connected\n")

	trav, err := pyromb.NewTraveller(c)
	chkerr(err)
	var m model.Model
	switch mdl {
	case "rorb":
		m = model.RORB{}
	case "wbnm":
		m = model.NewWBNM()
	default:
		log.Fatalf("unknown model %q (want rorb or wbnm)", mdl)
	}
	vec, err := m.GetVector(trav)
	chkerr(err)
	chkerr(os.WriteFile(outFP, []byte(vec), 0644))
	fmt.Printf(" runfile written to %s\n", outFP)
}
