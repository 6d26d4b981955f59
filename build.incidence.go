package pyromb

import (
	"log"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// buildIncidence runs the two outlet-seeded breadth-first propagations. Both
// climb the tree from the outlet toward the leaves (the only direction with
// reaches to follow); the upstream pass records, at each frontier node, the
// node reached by following a reach upstream (US[frontier][reach] = upNode),
// while the downstream pass records the reverse view (DS[upNode][reach] =
// frontier). A visited marker per (node, reach) pair bounds each pass at
// O(nodes × reaches): reaches on a true cycle are simply never visited rather
// than looping forever. The upstream endpoint of each reach is re-identified
// from its stored coordinates under the tight tolerance; failed lookups are
// logged, left unset in the table and counted once on the report (the two
// passes fail identically).
func (c *Catchment) buildIncidence(tbl [][]connState, out int, rpt *ConnectReport) (ds, us [][]int) {
	nn, nr := len(c.Nodes), len(c.Reaches)
	ds, us = newIncidence(nn, nr), newIncidence(nn, nr)

	reached := make([]bool, nn)
	reached[out] = true

	// upstream pass
	visited := make([][]bool, nn)
	for i := range visited {
		visited[i] = make([]bool, nr)
	}
	q := linkedlistqueue.New()
	q.Enqueue(out)
	for !q.Empty() {
		v, _ := q.Dequeue()
		i := v.(int)
		for j := 0; j < nr; j++ {
			if tbl[i][j] != connDS || visited[i][j] {
				continue
			}
			visited[i][j] = true
			up := nodeAt(c.Reaches[j].US(), c.Nodes, c.ExactTol)
			if up == NilNode {
				log.Printf("WARNING reach %q: upstream node at %v not re-identified within %g; left unset",
					c.Reaches[j].Name, c.Reaches[j].US(), c.ExactTol)
				rpt.UnmatchedLookups++
				continue
			}
			us[i][j] = up
			reached[up] = true
			q.Enqueue(up)
		}
	}

	// downstream pass, independent with its own marker table
	visited = make([][]bool, nn)
	for i := range visited {
		visited[i] = make([]bool, nr)
	}
	q = linkedlistqueue.New()
	q.Enqueue(out)
	for !q.Empty() {
		v, _ := q.Dequeue()
		i := v.(int)
		for j := 0; j < nr; j++ {
			if tbl[i][j] != connDS || visited[i][j] {
				continue
			}
			visited[i][j] = true
			up := nodeAt(c.Reaches[j].US(), c.Nodes, c.ExactTol)
			if up == NilNode {
				continue // already logged and counted in the upstream pass
			}
			ds[up][j] = i
			q.Enqueue(up)
		}
	}

	for i, ok := range reached {
		if !ok {
			log.Printf("WARNING node %q at %v unreachable from the outlet; it will never be traversed", c.Nodes[i].Name, c.Nodes[i].At)
			rpt.UnreachableNodes++
		}
	}
	return
}

func newIncidence(nn, nr int) [][]int {
	m := make([][]int, nn)
	for i := range m {
		row := make([]int, nr)
		for j := range row {
			row[j] = NilNode
		}
		m[i] = row
	}
	return m
}
