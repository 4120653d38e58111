package cli

import (
	"os"
	"os/exec"
	"strings"

	"github.com/E4S-Project/e4s-cl/pkg/config"
	"github.com/E4S-Project/e4s-cl/pkg/profile"
	"github.com/E4S-Project/e4s-cl/pkg/resolve"
)

func newStore() (*profile.Store, error) {
	return profile.NewStore("", "")
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.SearchPaths())
}

// defaultPolicy builds the resolve.Policy used by "init" and "profile
// detect" from the host's actual dynamic linker defaults, falling back to
// the conventional glibc search path if ldconfig isn't reachable.
func defaultPolicy() resolve.Policy {
	policy := resolve.Policy{
		HostRootfs:            "/",
		ContainerOnlyPrefixes: []string{"/.e4s-cl", "/proc", "/sys"},
		LDLibraryPath:         splitPathList(os.Getenv("LD_LIBRARY_PATH")),
		SystemSearchDirs:      []string{"/lib", "/lib64", "/usr/lib", "/usr/lib64"},
		LdconfigCache:         ldconfigCache(),
	}
	return policy
}

func splitPathList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ":")
}

func ldconfigCache() map[string]string {
	out := map[string]string{}
	raw, err := exec.Command("ldconfig", "-p").Output()
	if err != nil {
		return out
	}
	parsed := resolve.ParseLdconfigCache(string(raw))
	for soname, rec := range parsed {
		out[soname] = rec.Realpath
	}
	return out
}
