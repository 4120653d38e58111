package container

import (
	"fmt"

	"github.com/E4S-Project/e4s-cl/pkg/profile"
)

// New builds the Backend value for the given profile backend name. Each
// backend is a plain value built once from read-only configuration (spec
// section 9's "tagged-variant + per-variant method table" design note) —
// there is no class hierarchy, just this one switch.
func New(name profile.Backend) (Backend, error) {
	switch name {
	case profile.Apptainer:
		return newApptainerBackend(), nil
	case profile.Singularity:
		return newSingularityBackend(), nil
	case profile.Docker:
		return newDockerBackend(), nil
	case profile.Podman:
		return newPodmanBackend(), nil
	case profile.Shifter:
		return newShifterBackend(), nil
	case profile.NoBackend, "":
		return newNoneBackend(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
