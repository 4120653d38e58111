// Package config implements the YAML configuration layer of spec
// section 6: load, in order, /etc/e4s-cl/e4s-cl.yaml, <prefix>/e4s-cl.yaml,
// and $HOME/.config/e4s-cl.yaml, with later files overriding earlier ones.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/E4S-Project/e4s-cl/internal/pkg/buildcfg"
	"github.com/E4S-Project/e4s-cl/internal/pkg/sylog"
)

// BackendOptions is one of the per-backend sub-tables named in spec
// section 6.
type BackendOptions struct {
	Options    []string `yaml:"options"`
	RunOptions []string `yaml:"run_options"`
	Executable string   `yaml:"executable"`
}

// Config is the fully-merged configuration object.
type Config struct {
	ContainerDirectory   string   `yaml:"container_directory"`
	LauncherOptions      []string `yaml:"launcher_options"`
	PreloadRootLibraries bool     `yaml:"preload_root_libraries"`
	DisableRankedLog     bool     `yaml:"disable_ranked_log"`

	Apptainer   BackendOptions `yaml:"apptainer"`
	Singularity BackendOptions `yaml:"singularity"`
	Docker      BackendOptions `yaml:"docker"`
	Podman      BackendOptions `yaml:"podman"`
	Shifter     BackendOptions `yaml:"shifter"`
}

// Default returns a Config with the spec's documented defaults.
func Default() *Config {
	return &Config{ContainerDirectory: "/.e4s-cl"}
}

var knownTopLevelKeys = map[string]struct{}{
	"container_directory":     {},
	"launcher_options":        {},
	"preload_root_libraries":  {},
	"disable_ranked_log":      {},
	"apptainer":               {},
	"singularity":             {},
	"docker":                  {},
	"podman":                  {},
	"shifter":                 {},
}

var knownBackendKeys = map[string]struct{}{
	"options":     {},
	"run_options": {},
	"executable":  {},
}

// SearchPaths returns the three configuration file locations of spec
// section 6, in override order (later wins).
func SearchPaths() []string {
	paths := []string{"/etc/e4s-cl/e4s-cl.yaml", buildcfg.PREFIX + "/e4s-cl.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home+"/.config/e4s-cl.yaml")
	}
	return paths
}

// Load reads every existing path in paths, in order, merging into a single
// Config (later files override earlier ones field-by-field where set).
// Unrecognized keys are reported via sylog.Warningf and ignored; a known
// key with the wrong YAML value shape is a hard error (spec section 6/9).
func Load(paths []string) (*Config, error) {
	cfg := Default()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}

		warnUnknownKeys(p, data)

		var layer Config
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}
		merge(cfg, &layer, data)
	}
	return cfg, nil
}

// LoadError is a configuration error per spec section 7: malformed YAML
// or an unknown backend name/shape, reported with the offending file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "config: " + e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

func warnUnknownKeys(path string, data []byte) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return // the real Unmarshal call below will surface the shape error
	}
	for k, v := range raw {
		if _, ok := knownTopLevelKeys[k]; !ok {
			sylog.Warningf("%s: unrecognized configuration key %q, ignoring", path, k)
			continue
		}
		if _, isBackend := map[string]struct{}{"apptainer": {}, "singularity": {}, "docker": {}, "podman": {}, "shifter": {}}[k]; isBackend {
			var sub map[string]yaml.Node
			if v.Decode(&sub) == nil {
				for bk := range sub {
					if _, ok := knownBackendKeys[bk]; !ok {
						sylog.Warningf("%s: unrecognized key %q under %q, ignoring", path, bk, k)
					}
				}
			}
		}
	}
}

// merge overlays non-zero fields of layer onto dst. Only keys actually
// present in this file's raw bytes are considered "set", so a later file
// that omits container_directory doesn't blank out an earlier one.
func merge(dst, layer *Config, data []byte) {
	var present map[string]yaml.Node
	if err := yaml.Unmarshal(data, &present); err != nil {
		return
	}
	if _, ok := present["container_directory"]; ok {
		dst.ContainerDirectory = layer.ContainerDirectory
	}
	if _, ok := present["launcher_options"]; ok {
		dst.LauncherOptions = layer.LauncherOptions
	}
	if _, ok := present["preload_root_libraries"]; ok {
		dst.PreloadRootLibraries = layer.PreloadRootLibraries
	}
	if _, ok := present["disable_ranked_log"]; ok {
		dst.DisableRankedLog = layer.DisableRankedLog
	}
	if _, ok := present["apptainer"]; ok {
		dst.Apptainer = layer.Apptainer
	}
	if _, ok := present["singularity"]; ok {
		dst.Singularity = layer.Singularity
	}
	if _, ok := present["docker"]; ok {
		dst.Docker = layer.Docker
	}
	if _, ok := present["podman"]; ok {
		dst.Podman = layer.Podman
	}
	if _, ok := present["shifter"]; ok {
		dst.Shifter = layer.Shifter
	}
}

// EnvBackendOptions reads the named backend options environment variable
// (e.g. E4S_CL_APPTAINER_EXEC_OPTIONS, E4S_CL_PODMAN_RUN_OPTIONS or
// E4S_CL_DOCKER_OPTIONS) and splits it on whitespace, for verbatim
// appending to the backend's command line (spec section 6).
func EnvBackendOptions(backendEnvVar string) []string {
	v := os.Getenv(backendEnvVar)
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}
