package wiki

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRepoRef is returned when a repository reference is not of the
// form owner/repo.
var ErrInvalidRepoRef = errors.New("repository must be of the form owner/repo")

// ExecutionError is returned when the codewiki tool exits with a nonzero
// status. Stderr carries the tool's diagnostic.
type ExecutionError struct {
	RunID     string
	Operation string
	Args      []string
	ExitCode  int
	Stderr    string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("codewiki %s failed with exit code %d", command(e.Operation, e.Args), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// TimeoutError is returned when the codewiki tool does not exit within the
// configured bound. The process has been killed by the time it is returned.
type TimeoutError struct {
	RunID     string
	Operation string
	Args      []string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("codewiki %s timed out after %s", command(e.Operation, e.Args), e.Timeout)
}

// DecodeError is returned when a JSON-producing operation writes output
// that is not the expected JSON value.
type DecodeError struct {
	RunID     string
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding codewiki %s output: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RunID returns the invocation id carried by err, or "" if err did not
// come from a completed invocation.
func RunID(err error) string {
	var (
		execErr    *ExecutionError
		timeoutErr *TimeoutError
		decodeErr  *DecodeError
	)
	switch {
	case errors.As(err, &execErr):
		return execErr.RunID
	case errors.As(err, &timeoutErr):
		return timeoutErr.RunID
	case errors.As(err, &decodeErr):
		return decodeErr.RunID
	}
	return ""
}

func command(op string, args []string) string {
	return strings.Join(append([]string{op}, args...), " ")
}
