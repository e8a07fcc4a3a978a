// Command codewiki fetches CodeWiki documentation for GitHub repositories
// by driving the codewiki tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "codewiki: %v\n\n", err)
		fmt.Fprint(stderr, cmd.UsageString())
		return 1
	}
	fmt.Fprintf(stderr, "codewiki: %v\n", err)
	return 1
}

// usageError reports a missing or malformed command-line invocation.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }
