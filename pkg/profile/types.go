// Package profile implements the profile store (C5): persistent named
// records holding backend, image, file list, library list, setup script,
// and translation-layer path, per spec section 3/4.5.
package profile

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/E4S-Project/e4s-cl/pkg/pathrecord"
)

// Backend identifies a container backend driver (C4).
type Backend string

const (
	Apptainer   Backend = "apptainer"
	Singularity Backend = "singularity"
	Docker      Backend = "docker"
	Podman      Backend = "podman"
	Shifter     Backend = "shifter"
	NoBackend   Backend = "none"
)

var validBackends = map[Backend]struct{}{
	Apptainer: {}, Singularity: {}, Docker: {}, Podman: {}, Shifter: {}, NoBackend: {},
}

// Profile is the persisted bundle of spec section 3.
type Profile struct {
	Name          string             `json:"name"`
	Backend       Backend            `json:"backend,omitempty"`
	Image         string             `json:"image,omitempty"`
	Libraries     []pathrecord.Record `json:"libraries,omitempty"`
	Files         []pathrecord.Record `json:"files,omitempty"`
	Source        string             `json:"source,omitempty"`
	Wi4mpi        string             `json:"wi4mpi,omitempty"`
	Wi4mpiOptions string             `json:"wi4mpi_options,omitempty"`
}

// ValidationError is a typed error for a profile that violates an
// invariant of spec section 3; C5.Update rejects a patch that produces
// one, per spec 4.5's consistency contract.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid profile: " + e.Reason }

// Validate checks the structural invariants of spec section 3 that do not
// require touching the filesystem (wi4mpi directory existence is checked
// separately by ValidateFS, since it requires I/O and callers may want to
// validate offline).
func (p *Profile) Validate() error {
	if p.Name == "" {
		return &ValidationError{Reason: "name must not be empty"}
	}
	if p.Backend != "" {
		if _, ok := validBackends[p.Backend]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("unknown backend %q", p.Backend)}
		}
	}

	seen := map[string]struct{}{}
	for _, lib := range p.Libraries {
		if lib.Kind != pathrecord.Library {
			return &ValidationError{Reason: "libraries list contains a non-library record: " + lib.HostPath}
		}
		if _, dup := seen[lib.Key()]; dup {
			return &ValidationError{Reason: "duplicate library soname/realpath: " + lib.Key()}
		}
		seen[lib.Key()] = struct{}{}
	}

	filePaths := map[string]struct{}{}
	for _, f := range p.Files {
		if f.Kind != pathrecord.File && f.Kind != pathrecord.Directory {
			return &ValidationError{Reason: "files list contains a library record: " + f.HostPath}
		}
		filePaths[f.Realpath] = struct{}{}
	}
	for _, lib := range p.Libraries {
		if _, dup := filePaths[lib.Realpath]; dup {
			return &ValidationError{Reason: "path present in both libraries and files: " + lib.Realpath}
		}
	}

	return nil
}

// ValidateFS checks filesystem-dependent invariants: if wi4mpi is set, it
// must point to an existing directory.
func (p *Profile) ValidateFS() error {
	if p.Wi4mpi == "" {
		return nil
	}
	fi, err := os.Stat(p.Wi4mpi)
	if err != nil {
		return errors.Wrapf(err, "wi4mpi path %q", p.Wi4mpi)
	}
	if !fi.IsDir() {
		return &ValidationError{Reason: "wi4mpi path is not a directory: " + p.Wi4mpi}
	}
	return nil
}

// MergeLibraries adds recs to p.Libraries, deduplicating by Key() so that
// e.g. running "--add-libraries" twice with the same path is a no-op
// (spec 8 scenario 5).
func (p *Profile) MergeLibraries(recs []pathrecord.Record) {
	existing := map[string]struct{}{}
	for _, l := range p.Libraries {
		existing[l.Key()] = struct{}{}
	}
	for _, r := range recs {
		if _, ok := existing[r.Key()]; ok {
			continue
		}
		existing[r.Key()] = struct{}{}
		p.Libraries = append(p.Libraries, r)
	}
}

// MergeFiles adds recs to p.Files, deduplicating by Realpath.
func (p *Profile) MergeFiles(recs []pathrecord.Record) {
	existing := map[string]struct{}{}
	for _, f := range p.Files {
		existing[f.Realpath] = struct{}{}
	}
	for _, r := range recs {
		if _, ok := existing[r.Realpath]; ok {
			continue
		}
		existing[r.Realpath] = struct{}{}
		p.Files = append(p.Files, r)
	}
}
