// Package model generates hydrology-model input files from a traversed
// catchment. Serializers consume only the Traveller surface; they never touch
// the incidence tables directly.
package model

import "github.com/Chain-Frost/pyromb"

// Model serialises a catchment, via its Traveller, into the text body of a
// model input file. Topology the serializer's walk cannot encode fails with
// an error rather than producing a partial runfile.
type Model interface {
	GetVector(t *pyromb.Traveller) (string, error)
}

// mustNode is for indices the traversal itself produced; they cannot be out of
// range.
func mustNode(t *pyromb.Traveller, i int) pyromb.Node {
	n, _ := t.GetNode(i)
	return n
}
