package profile

import (
	"fmt"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

// Change records a single field-level difference between two profiles.
type Change struct {
	Field string
	A, B  string
}

// Diff computes a field-level structural diff between two profiles: which
// scalar fields changed, and which libraries/files were added or removed.
// This is the "profile diff" operation named in spec section 4.5/6.
func Diff(a, b Profile) []Change {
	var changes []Change

	scalar := func(field, av, bv string) {
		if av != bv {
			changes = append(changes, Change{Field: field, A: av, B: bv})
		}
	}
	scalar("backend", string(a.Backend), string(b.Backend))
	scalar("image", a.Image, b.Image)
	scalar("source", a.Source, b.Source)
	scalar("wi4mpi", a.Wi4mpi, b.Wi4mpi)
	scalar("wi4mpi_options", a.Wi4mpiOptions, b.Wi4mpiOptions)

	changes = append(changes, diffRecords("libraries", a.Libraries, b.Libraries)...)
	changes = append(changes, diffRecords("files", a.Files, b.Files)...)

	return changes
}

func diffRecords(field string, a, b []pathrecord.Record) []Change {
	byKeyA := map[string]pathrecord.Record{}
	for _, r := range a {
		byKeyA[r.Key()] = r
	}
	byKeyB := map[string]pathrecord.Record{}
	for _, r := range b {
		byKeyB[r.Key()] = r
	}

	var changes []Change
	for k := range byKeyA {
		if _, ok := byKeyB[k]; !ok {
			changes = append(changes, Change{Field: field, A: k, B: fmt.Sprintf("removed from %s", field)})
		}
	}
	for k := range byKeyB {
		if _, ok := byKeyA[k]; !ok {
			changes = append(changes, Change{Field: field, A: fmt.Sprintf("added to %s", field), B: k})
		}
	}
	return changes
}
