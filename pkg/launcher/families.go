package launcher

// mpirunFamily covers Open MPI's mpirun/mpiexec and MPICH/Hydra's
// mpiexec/mpiexec.hydra, which share enough of a flag table for launcher
// splitting purposes (the set used here only needs to be complete enough
// to find the program boundary, not to fully validate the command line).
var mpirunFamily = Family{
	Name:      "mpirun",
	Basenames: []string{"mpirun", "mpiexec", "mpiexec.hydra"},
	Options: map[string]ArgArity{
		"-n": Arity1, "--n": Arity1, "-np": Arity1, "--np": Arity1,
		"-c": Arity1, "-N": Arity1,
		"--host": Arity1, "-host": Arity1,
		"--hostfile": Arity1, "-hostfile": Arity1, "-f": Arity1,
		"--map-by": Arity1, "-map-by": Arity1,
		"--bind-to": Arity1, "-bind-to": Arity1,
		"--rank-by": Arity1, "-rank-by": Arity1,
		"-x": Arity1,
		"--mca": Arity1, "-mca": Arity1,
		"--wdir": Arity1, "-wd": Arity1,
		"--app": Arity1,
		"--oversubscribe": Arity0, "-oversubscribe": Arity0,
		"--verbose": Arity0, "-v": Arity0,
		"--version": Arity0,
	},
	ProcessCountFlag: "-np",
}

var srunFamily = Family{
	Name:      "srun",
	Basenames: []string{"srun"},
	Options: map[string]ArgArity{
		"-n": Arity1, "--ntasks": Arity1,
		"-N": Arity1, "--nodes": Arity1,
		"-p": Arity1, "--partition": Arity1,
		"-t": Arity1, "--time": Arity1,
		"--cpus-per-task": Arity1, "-c": Arity1,
		"--nodelist": Arity1, "-w": Arity1,
		"--mpi": Arity1,
		"--export": Arity1,
		"--exclusive": Arity0,
		"--verbose": Arity0, "-v": Arity0,
	},
	ProcessCountFlag: "-n",
}

var aprunFamily = Family{
	Name:      "aprun",
	Basenames: []string{"aprun"},
	Options: map[string]ArgArity{
		"-n": Arity1, "-N": Arity1, "-d": Arity1,
		"-cc": Arity1, "-L": Arity1, "-S": Arity1,
		"-j": Arity1, "-m": Arity1,
		"-q": Arity0, "-b": Arity0,
	},
	ProcessCountFlag: "-np",
}

var jsrunFamily = Family{
	Name:      "jsrun",
	Basenames: []string{"jsrun"},
	Options: map[string]ArgArity{
		"-n": Arity1, "--nrs": Arity1,
		"-a": Arity1, "--tasks_per_rs": Arity1,
		"-c": Arity1, "--cpu_per_rs": Arity1,
		"-g": Arity1, "--gpu_per_rs": Arity1,
		"-r": Arity1, "--rs_per_host": Arity1,
		"-b": Arity1, "--bind": Arity1,
		"--smpiargs": Arity1,
		"-E": Arity1,
		"--verbose": Arity0,
	},
	ProcessCountFlag: "-np",
}
