package e4scl

// ProbeArgv returns the built-in MPI probe invocation of spec 4.7 step 1
// when the user supplies no sample command of their own: a two-rank run
// of a trivial ping-pong binary expected to be installed alongside e4s-cl,
// exercising one point-to-point and one collective call.
func ProbeArgv(launcher string) []string {
	if launcher == "" {
		launcher = "mpirun"
	}
	return []string{launcher, "-n", "2", "e4s-cl-probe"}
}
