// Package buildcfg holds the handful of compile-time constants the rest of
// e4s-cl needs: the install prefix that locates the system-level profile
// store and system-level YAML config (spec section 6).
package buildcfg

// PREFIX is overridden at link time via -ldflags "-X" in release builds;
// the default here matches a from-source install under /usr/local.
var PREFIX = "/usr/local"

const (
	PACKAGE_NAME    = "e4s-cl"
	PACKAGE_VERSION = "0.0.0-dev"
)
