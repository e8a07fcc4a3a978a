// Package report keeps records of codewiki tool invocations so that a
// failed or truncated run can be examined after the fact.
package report

import (
	"fmt"
	"time"
)

// Operation identifies the codewiki tool verb that was run.
type Operation string

const (
	// Featured lists the featured repositories.
	Featured Operation = "featured"
	// Repo fetches a repository's documentation as JSON.
	Repo Operation = "repo"
	// Doc fetches a repository's documentation as Markdown.
	Doc Operation = "doc"
)

// Store persists and retrieves invocation records.
type Store interface {
	Save(inv *Invocation) error
	Load(runID string) (*Invocation, error)
}

// Invocation is the record of one codewiki tool run.
type Invocation struct {
	ID         string        `json:"id"`
	Operation  Operation     `json:"operation"`
	Args       []string      `json:"args,omitempty"`
	Executable string        `json:"executable"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	ExitCode   int           `json:"exit_code"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Stdout     string        `json:"stdout,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
}

// Status summarises the outcome of the run.
func (inv *Invocation) Status() string {
	switch {
	case inv.TimedOut:
		return "timeout"
	case inv.ExitCode != 0:
		return fmt.Sprintf("exit %d", inv.ExitCode)
	default:
		return "ok"
	}
}
