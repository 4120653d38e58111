package e4scl

import "strings"

// rankEnvVars is the ordered list of environment variables different MPI
// launchers use to tell a rank its own index, checked in this order since
// a process can inherit more than one family's variables at once.
var rankEnvVars = []string{"PMI_RANK", "OMPI_COMM_WORLD_RANK", "SLURM_PROCID"}

// RankFromEnv returns the first rank-index value found in env, or "" if
// none of the known launcher variables are set (spec's per-rank log
// prefixing, gated by the disable_ranked_log config key).
func RankFromEnv(env []string) string {
	values := map[string]string{}
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			values[kv[:i]] = kv[i+1:]
		}
	}
	for _, name := range rankEnvVars {
		if v, ok := values[name]; ok && v != "" {
			return v
		}
	}
	return ""
}
