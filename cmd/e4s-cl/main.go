// Command e4s-cl runs MPI applications inside containers without
// requiring the container image's MPI to exactly match the host's.
package main

import (
	"fmt"
	"os"

	"github.com/E4S-Project/e4s-cl/internal/pkg/cli"
	"github.com/E4S-Project/e4s-cl/internal/pkg/errs"
)

func main() {
	err := cli.Execute()
	if err == nil {
		os.Exit(0)
	}

	fmt.Fprintln(os.Stderr, err)
	if hint := errs.Hint(err); hint != "" {
		fmt.Fprintln(os.Stderr, "hint:", hint)
	}
	os.Exit(int(errs.ExitCode(err)))
}
