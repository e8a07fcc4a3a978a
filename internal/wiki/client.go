// Package wiki is the client for the external codewiki tool. Every
// operation runs the tool once as a child process and returns its output,
// either verbatim or decoded as generic JSON.
package wiki

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/deixis/codewiki/internal/report"
	"github.com/deixis/codewiki/internal/runner"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = runner.DefaultTimeout

// CommandRunner executes a single request.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, req runner.Request) (*runner.Result, error)
}

// Client invokes the codewiki tool. It holds no mutable state and is safe
// for concurrent use; each call spawns its own process.
type Client struct {
	runner     CommandRunner
	executable string
	timeout    time.Duration
	logger     *log.Logger
	recorder   report.Store
}

// Option configures a Client.
type Option func(*Client)

// WithExecutable overrides the path to the codewiki tool.
func WithExecutable(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.executable = path
		}
	}
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for invocation diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder saves a record of every completed invocation to s.
func WithRecorder(s report.Store) Option {
	return func(c *Client) {
		c.recorder = s
	}
}

// New creates a Client that runs the tool through r.
func New(r CommandRunner, opts ...Option) *Client {
	c := &Client{
		runner:     r,
		executable: DefaultExecutable(),
		timeout:    DefaultTimeout,
		logger:     log.New(io.Discard),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DefaultExecutable returns ~/tools/codewiki/codewiki. The path is not
// checked for existence.
func DefaultExecutable() string {
	rel := filepath.Join("tools", "codewiki", "codewiki")
	home, err := os.UserHomeDir()
	if err != nil {
		return rel
	}
	return filepath.Join(home, rel)
}

// Executable returns the resolved path to the codewiki tool.
func (c *Client) Executable() string { return c.executable }

// Timeout returns the per-invocation timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// RunRaw runs `<executable> <operation> [args...]` and returns its stdout
// verbatim on a zero exit.
func (c *Client) RunRaw(ctx context.Context, operation string, args ...string) (string, error) {
	res, err := c.invoke(ctx, operation, args)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// FeaturedRepos lists the featured repositories. Every element of the
// tool's JSON array must be an object.
func (c *Client) FeaturedRepos(ctx context.Context) ([]*Record, error) {
	res, err := c.invoke(ctx, string(report.Featured), nil)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		return &DecodeError{RunID: res.RunID, Operation: string(report.Featured), Err: err}
	}
	v, err := decodeJSON(res.Stdout)
	if err != nil {
		return nil, fail(err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fail(fmt.Errorf("expected a JSON array, got %s", kind(v)))
	}
	repos := make([]*Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(*Record)
		if !ok {
			return nil, fail(fmt.Errorf("element %d: expected a JSON object, got %s", i, kind(item)))
		}
		repos = append(repos, rec)
	}
	return repos, nil
}

// RepoDocs fetches the documentation of owner/repo as a JSON object.
func (c *Client) RepoDocs(ctx context.Context, owner, repo string) (*Record, error) {
	res, err := c.invoke(ctx, string(report.Repo), []string{owner + "/" + repo})
	if err != nil {
		return nil, err
	}
	v, err := decodeJSON(res.Stdout)
	if err != nil {
		return nil, &DecodeError{RunID: res.RunID, Operation: string(report.Repo), Err: err}
	}
	doc, ok := v.(*Record)
	if !ok {
		return nil, &DecodeError{RunID: res.RunID, Operation: string(report.Repo), Err: fmt.Errorf("expected a JSON object, got %s", kind(v))}
	}
	return doc, nil
}

// RepoMarkdown fetches the documentation of owner/repo as Markdown,
// unmodified.
func (c *Client) RepoMarkdown(ctx context.Context, owner, repo string) (string, error) {
	return c.RunRaw(ctx, string(report.Doc), owner+"/"+repo)
}

// DocsURL returns the CodeWiki page for owner/repo without running the tool.
func (c *Client) DocsURL(owner, repo string) string {
	return DocsURL(owner, repo)
}

// invoke runs the tool once and maps the outcome to the client's error
// kinds. The returned result always has a zero exit code.
func (c *Client) invoke(ctx context.Context, operation string, args []string) (*runner.Result, error) {
	req := runner.Request{
		Executable: c.executable,
		Args:       append([]string{operation}, args...),
		Timeout:    c.timeout,
	}

	started := time.Now()
	res, err := c.runner.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("codewiki %s: %w", command(operation, args), err)
	}
	c.record(operation, args, started, res)

	if res.Truncated {
		c.logger.Warn("output truncated", "id", res.RunID, "operation", operation)
	}

	switch {
	case res.TimedOut:
		return nil, &TimeoutError{RunID: res.RunID, Operation: operation, Args: args, Timeout: c.timeout}
	case res.ExitCode != 0:
		return nil, &ExecutionError{RunID: res.RunID, Operation: operation, Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

func (c *Client) record(operation string, args []string, started time.Time, res *runner.Result) {
	c.logger.Debug("invocation", "id", res.RunID, "operation", operation, "args", args,
		"exit", res.ExitCode, "timed_out", res.TimedOut, "duration", res.Duration)
	if c.recorder == nil {
		return
	}
	inv := &report.Invocation{
		ID:         res.RunID,
		Operation:  report.Operation(operation),
		Args:       args,
		Executable: c.executable,
		StartedAt:  started,
		Duration:   res.Duration,
		ExitCode:   res.ExitCode,
		TimedOut:   res.TimedOut,
		Truncated:  res.Truncated,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
	if err := c.recorder.Save(inv); err != nil {
		c.logger.Warn("saving invocation record", "id", res.RunID, "err", err)
	}
}
