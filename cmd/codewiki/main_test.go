//go:build unix

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stubScript = `#!/bin/sh
case "$1" in
featured) printf '[{"stars":"1.2k","name":"x"}]' ;;
repo) printf '{"title":"T","owner":"o","body":"a < b && c","n":1,"toc":[]}' ;;
doc) printf '# Title\n\nBody\n' ;;
esac
if [ "$2" = "broken/repo" ]; then echo "boom" >&2; exit 1; fi
`

// runCLI runs the CLI against a stub tool and returns exit status, stdout
// and stderr.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	exe := filepath.Join(t.TempDir(), "codewiki")
	if err := os.WriteFile(exe, []byte(stubScript), 0o755); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--executable", exe}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestFeatured_PrettyPrints(t *testing.T) {
	code, stdout, stderr := runCLI(t, "featured")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	want := "[\n  {\n    \"stars\": \"1.2k\",\n    \"name\": \"x\"\n  }\n]\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRepo_PrettyPrints(t *testing.T) {
	code, stdout, stderr := runCLI(t, "repo", "facebook/react")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	// Members print in the tool's order, with HTML characters left alone.
	want := "{\n  \"title\": \"T\",\n  \"owner\": \"o\",\n  \"body\": \"a < b && c\",\n  \"n\": 1,\n  \"toc\": []\n}\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestDoc_Verbatim(t *testing.T) {
	code, stdout, stderr := runCLI(t, "doc", "facebook/react")
	if code != 0 {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	if stdout != "# Title\n\nBody\n" {
		t.Errorf("stdout = %q, want verbatim Markdown", stdout)
	}
}

func TestURL(t *testing.T) {
	code, stdout, _ := runCLI(t, "url", "facebook/react")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if stdout != "https://codewiki.google/github.com/facebook/react\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"bogus"},
		{"repo"},
		{"repo", "facebook"},
		{"doc", "a/b/c"},
		{"doc", "/react"},
		{"featured", "extra"},
		{"--no-such-flag", "featured"},
	}
	for _, args := range cases {
		code, stdout, stderr := runCLI(t, args...)
		if code != 1 {
			t.Errorf("%q: exit = %d, want 1", args, code)
		}
		if stdout != "" {
			t.Errorf("%q: stdout = %q, want empty", args, stdout)
		}
		if !strings.Contains(stderr, "Usage:") {
			t.Errorf("%q: stderr lacks usage:\n%s", args, stderr)
		}
	}
}

func TestExecutionError_ExitsNonZero(t *testing.T) {
	code, stdout, stderr := runCLI(t, "repo", "broken/repo")
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "boom") {
		t.Errorf("stderr = %q, want to contain boom", stderr)
	}
	if strings.Contains(stderr, "Usage:") {
		t.Errorf("runtime failure should not print usage:\n%s", stderr)
	}
}

func TestMCPInstructions(t *testing.T) {
	code, stdout, _ := runCLI(t, "mcp", "--instructions")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout, "codewiki_doc") {
		t.Errorf("instructions missing tool names:\n%s", stdout)
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if strings.TrimSpace(stdout) == "" {
		t.Error("version printed nothing")
	}
}
