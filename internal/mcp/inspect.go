package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deixis/codewiki/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run id from a failed codewiki tool result"`
	Stdout bool   `json:"stdout,omitempty" jsonschema:"include the captured stdout (can be large). Default: false."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if h.store == nil {
		return errorResult("invocation records are not enabled on this server")
	}

	inv, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatInspectOutput(inv, params.Stdout))
}

func formatInspectOutput(inv *report.Invocation, withStdout bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", inv.ID)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(append([]string{inv.Executable, string(inv.Operation)}, inv.Args...), " "))
	fmt.Fprintf(&b, "Started: %s\n", inv.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration: %s\n", inv.Duration)
	fmt.Fprintf(&b, "Status: %s\n", inv.Status())
	if inv.Truncated {
		fmt.Fprintln(&b, "Output: truncated")
	}

	writeStream(&b, "Stderr", inv.Stderr)
	if withStdout {
		writeStream(&b, "Stdout", inv.Stdout)
	} else if inv.Stdout != "" {
		fmt.Fprintf(&b, "\nStdout: %d bytes (pass stdout=true to include)\n", len(inv.Stdout))
	}

	return b.String()
}

func writeStream(b *strings.Builder, name, text string) {
	fmt.Fprintln(b)
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
