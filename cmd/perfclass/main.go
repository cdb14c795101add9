// Command perfclass serves the classroom performance-competition service.
package main

import (
	"fmt"
	"os"

	"github.com/classbench/perfclass/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
