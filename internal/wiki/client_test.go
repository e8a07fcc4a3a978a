package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/deixis/codewiki/internal/report"
	"github.com/deixis/codewiki/internal/runner"
)

// fakeRunner is a test double for CommandRunner. It returns predetermined
// results keyed by the operation (the first argument) and records every
// request it receives.
type fakeRunner struct {
	Results map[string]*runner.Result
	Err     map[string]error

	requests []runner.Request
}

func (f *fakeRunner) Run(_ context.Context, req runner.Request) (*runner.Result, error) {
	f.requests = append(f.requests, req)
	key := ""
	if len(req.Args) > 0 {
		key = req.Args[0]
	}
	if err, ok := f.Err[key]; ok {
		return nil, err
	}
	if r, ok := f.Results[key]; ok {
		return r, nil
	}
	// Default: success with no output.
	return &runner.Result{RunID: "fake", ExitCode: 0}, nil
}

// memStore is an in-memory report.Store.
type memStore struct {
	saved []*report.Invocation
}

func (m *memStore) Save(inv *report.Invocation) error {
	m.saved = append(m.saved, inv)
	return nil
}

func (m *memStore) Load(runID string) (*report.Invocation, error) {
	for _, inv := range m.saved {
		if inv.ID == runID {
			return inv, nil
		}
	}
	return nil, errors.New("not found")
}

func TestNew_Defaults(t *testing.T) {
	c := New(&fakeRunner{})
	if !strings.HasSuffix(c.Executable(), "tools/codewiki/codewiki") {
		t.Errorf("Executable() = %q, want suffix tools/codewiki/codewiki", c.Executable())
	}
	if c.Timeout() != 120*time.Second {
		t.Errorf("Timeout() = %v, want 120s", c.Timeout())
	}
}

func TestNew_Overrides(t *testing.T) {
	c := New(&fakeRunner{}, WithExecutable("/opt/cw"), WithTimeout(5*time.Second))
	if c.Executable() != "/opt/cw" {
		t.Errorf("Executable() = %q, want /opt/cw", c.Executable())
	}
	if c.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", c.Timeout())
	}
}

func TestRunRaw_BuildsCommandLine(t *testing.T) {
	fr := &fakeRunner{}
	c := New(fr, WithExecutable("/opt/cw"), WithTimeout(7*time.Second))

	if _, err := c.RunRaw(context.Background(), "repo", "owner/repo"); err != nil {
		t.Fatalf("RunRaw: %v", err)
	}
	if len(fr.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(fr.requests))
	}
	req := fr.requests[0]
	if got, want := req.Argv(), []string{"/opt/cw", "repo", "owner/repo"}; !slices.Equal(got, want) {
		t.Errorf("argv = %q, want %q", got, want)
	}
	if req.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", req.Timeout)
	}
}

func TestRunRaw_PreservesWhitespace(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"doc": {Stdout: "  body\n\n"},
	}}
	c := New(fr)
	got, err := c.RunRaw(context.Background(), "doc", "a/b")
	if err != nil {
		t.Fatalf("RunRaw: %v", err)
	}
	if got != "  body\n\n" {
		t.Errorf("RunRaw = %q, want %q", got, "  body\n\n")
	}
}

func TestRunRaw_NonZeroExit(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"featured": {RunID: "r1", ExitCode: 1, Stderr: "boom\n"},
	}}
	c := New(fr)
	_, err := c.RunRaw(context.Background(), "featured")

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ExecutionError", err)
	}
	if execErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", execErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want to contain stderr", err)
	}
	if RunID(err) != "r1" {
		t.Errorf("RunID(err) = %q, want r1", RunID(err))
	}
}

func TestRunRaw_Timeout(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"featured": {RunID: "r2", ExitCode: -1, TimedOut: true},
	}}
	c := New(fr, WithTimeout(3*time.Second))
	_, err := c.RunRaw(context.Background(), "featured")

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if timeoutErr.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", timeoutErr.Timeout)
	}
	if !strings.Contains(err.Error(), "3s") {
		t.Errorf("error = %q, want to name the bound", err)
	}
}

func TestRunRaw_SpawnError(t *testing.T) {
	spawnErr := errors.New("executing /nope: no such file or directory")
	fr := &fakeRunner{Err: map[string]error{"featured": spawnErr}}
	c := New(fr)
	_, err := c.RunRaw(context.Background(), "featured")
	if !errors.Is(err, spawnErr) {
		t.Fatalf("error = %v, want to wrap spawn error", err)
	}
	if RunID(err) != "" {
		t.Errorf("RunID(err) = %q, want empty", RunID(err))
	}
}

func TestFeaturedRepos(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"featured": {Stdout: `[{"name":"x"}]` + "\n"},
	}}
	c := New(fr)
	got, err := c.FeaturedRepos(context.Background())
	if err != nil {
		t.Fatalf("FeaturedRepos: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(FeaturedRepos) = %d, want 1", len(got))
	}
	if v, _ := got[0].Get("name"); v != "x" {
		t.Errorf(`name = %#v, want "x"`, v)
	}
}

func TestFeaturedRepos_DecodeErrors(t *testing.T) {
	for _, out := range []string{"not json", "", `{"a":1}`, "null", `[1]`, `[] []`} {
		fr := &fakeRunner{Results: map[string]*runner.Result{
			"featured": {RunID: "r3", Stdout: out},
		}}
		c := New(fr)
		_, err := c.FeaturedRepos(context.Background())

		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("stdout %q: error = %v, want *DecodeError", out, err)
			continue
		}
		if decodeErr.RunID != "r3" {
			t.Errorf("stdout %q: RunID = %q, want r3", out, decodeErr.RunID)
		}
	}
}

func TestRepoDocs(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"repo": {Stdout: `{"a":1,"toc":[{"level":"H2"}],"big":12345678901234567890}`},
	}}
	c := New(fr)
	got, err := c.RepoDocs(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("RepoDocs: %v", err)
	}
	if a, _ := got.Get("a"); a != json.Number("1") {
		t.Errorf(`a = %#v, want json.Number("1")`, a)
	}
	if big, _ := got.Get("big"); big != json.Number("12345678901234567890") {
		t.Errorf(`big = %#v, want exact number`, big)
	}
	if keys := got.Keys(); !slices.Equal(keys, []string{"a", "toc", "big"}) {
		t.Errorf("keys = %q, want [a toc big]", keys)
	}
	if got := fr.requests[0].Args; !slices.Equal(got, []string{"repo", "owner/repo"}) {
		t.Errorf("args = %q, want [repo owner/repo]", got)
	}
}

func TestRepoDocs_DecodeErrors(t *testing.T) {
	for _, out := range []string{"not json", "[]", "null", `"s"`, `{"a":1`} {
		fr := &fakeRunner{Results: map[string]*runner.Result{"repo": {Stdout: out}}}
		_, err := New(fr).RepoDocs(context.Background(), "o", "r")
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("stdout %q: error = %v, want *DecodeError", out, err)
		}
	}
}

func TestRepoMarkdown(t *testing.T) {
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"doc": {Stdout: "# Title\n"},
	}}
	c := New(fr)
	got, err := c.RepoMarkdown(context.Background(), "owner", "repo")
	if err != nil {
		t.Fatalf("RepoMarkdown: %v", err)
	}
	if got != "# Title\n" {
		t.Errorf("RepoMarkdown = %q, want %q", got, "# Title\n")
	}
	if got := fr.requests[0].Args; !slices.Equal(got, []string{"doc", "owner/repo"}) {
		t.Errorf("args = %q, want [doc owner/repo]", got)
	}
}

func TestRecorder_SavesEveryInvocation(t *testing.T) {
	store := &memStore{}
	fr := &fakeRunner{Results: map[string]*runner.Result{
		"featured": {RunID: "ok-run", Stdout: "[]"},
		"repo":     {RunID: "bad-run", ExitCode: 2, Stderr: "nope"},
	}}
	c := New(fr, WithRecorder(store), WithExecutable("/opt/cw"))

	if _, err := c.FeaturedRepos(context.Background()); err != nil {
		t.Fatalf("FeaturedRepos: %v", err)
	}
	if _, err := c.RepoDocs(context.Background(), "a", "b"); err == nil {
		t.Fatal("RepoDocs: expected error")
	}

	if len(store.saved) != 2 {
		t.Fatalf("saved %d invocations, want 2", len(store.saved))
	}
	bad, err := store.Load("bad-run")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bad.Operation != report.Repo || bad.ExitCode != 2 || bad.Stderr != "nope" || bad.Executable != "/opt/cw" {
		t.Errorf("record = %+v", bad)
	}
	if !slices.Equal(bad.Args, []string{"a/b"}) {
		t.Errorf("record.Args = %q, want [a/b]", bad.Args)
	}
}
