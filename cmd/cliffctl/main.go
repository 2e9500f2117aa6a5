// cliffctl is the command-line interface to the PharmaCliff Intelligence
// platform.
package main

import (
	"os"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
