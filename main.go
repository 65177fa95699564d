package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"bridgeus/service"
)

// exit is swapped out by tests.
var exit = os.Exit

func main() {
	exit(RealMain(os.Args[1:], os.Stdout, os.Stderr))
}

// RealMain runs the CLI with args and returns the process exit code.
func RealMain(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	cmd := service.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
