package profile

import (
	"os"
	"path/filepath"

	"github.com/E4S-Project/e4s-cl/internal/pkg/buildcfg"
)

// Level is one of the two independent profile stores (spec section 3).
type Level int

const (
	// UserLevel is read-write, looked up first.
	UserLevel Level = iota
	// SystemLevel is read-only at runtime, used as a fallback.
	SystemLevel
)

func (l Level) String() string {
	if l == SystemLevel {
		return "system"
	}
	return "user"
}

// DefaultUserPath returns $HOME/.local/e4s_cl/user.json.
func DefaultUserPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "e4s_cl", "user.json"), nil
}

// DefaultSystemPath returns <install-prefix>/e4s_cl/system.json.
func DefaultSystemPath() string {
	return filepath.Join(buildcfg.PREFIX, "e4s_cl", "system.json")
}
