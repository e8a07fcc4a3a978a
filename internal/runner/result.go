package runner

import "time"

// Request describes a single invocation of an executable.
type Request struct {
	Executable string        // path to the binary; bare names are resolved via PATH
	Args       []string      // arguments after the executable
	Timeout    time.Duration // upper bound on the run; <= 0 means DefaultTimeout
}

// Argv returns the full command line of the request.
func (r Request) Argv() []string {
	return append([]string{r.Executable}, r.Args...)
}

// Result holds the output of a command execution.
type Result struct {
	RunID     string        // unique identifier for this run
	ExitCode  int           // process exit code; -1 when killed
	Stdout    string        // captured stdout (may be truncated)
	Stderr    string        // captured stderr (may be truncated)
	Truncated bool          // true if output exceeded the size cap
	TimedOut  bool          // true if the run was killed after Timeout elapsed
	Duration  time.Duration // wall time from start to reap
}
