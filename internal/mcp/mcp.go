// Package mcp provides the codewiki MCP server, registering the client
// operations as tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/codewiki"
	"github.com/deixis/codewiki/internal/report"
	"github.com/deixis/codewiki/internal/wiki"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	client *wiki.Client
	store  report.Store // nil if invocations are not recorded
}

// NewServer creates an MCP server with all codewiki tools registered.
// store should be the same Store the client records into; it backs
// codewiki_inspect.
func NewServer(client *wiki.Client, store report.Store) *mcp.Server {
	h := &handler{client: client, store: store}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "codewiki", Version: codewiki.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "codewiki_featured",
		Description: "List the repositories featured on CodeWiki, as a JSON array.",
	}, h.featuredHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "codewiki_repo",
		Description: `Fetch the CodeWiki documentation of a GitHub repository as JSON.

The document schema belongs to the CodeWiki tool; fields are returned as-is.`,
	}, h.repoHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "codewiki_doc",
		Description: `Fetch the CodeWiki documentation of a GitHub repository as Markdown.

Use this to read a repository's generated docs.`,
	}, h.docHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "codewiki_url",
		Description: "Return the CodeWiki page URL for a GitHub repository without fetching it.",
	}, h.urlHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "codewiki_inspect",
		Description: `Show the outcome of an earlier codewiki run: exit status, stderr and stdout.

Use the run id reported by a failed codewiki_featured, codewiki_repo or codewiki_doc call.`,
	}, h.inspectHandler)

	return s
}

type featuredParams struct{}

type repoParams struct {
	Repo string `json:"repo" jsonschema:"GitHub repository as owner/repo (e.g. facebook/react)"`
}

func (h *handler) featuredHandler(ctx context.Context, req *mcp.CallToolRequest, _ featuredParams) (*mcp.CallToolResult, any, error) {
	repos, err := h.client.FeaturedRepos(ctx)
	if err != nil {
		return invocationError(err)
	}
	return jsonResult(repos)
}

func (h *handler) repoHandler(ctx context.Context, req *mcp.CallToolRequest, params repoParams) (*mcp.CallToolResult, any, error) {
	ref, err := wiki.ParseRepoRef(params.Repo)
	if err != nil {
		return errorResult(err.Error())
	}
	doc, err := h.client.RepoDocs(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return invocationError(err)
	}
	return jsonResult(doc)
}

func (h *handler) docHandler(ctx context.Context, req *mcp.CallToolRequest, params repoParams) (*mcp.CallToolResult, any, error) {
	ref, err := wiki.ParseRepoRef(params.Repo)
	if err != nil {
		return errorResult(err.Error())
	}
	md, err := h.client.RepoMarkdown(ctx, ref.Owner, ref.Repo)
	if err != nil {
		return invocationError(err)
	}
	return textResult(md)
}

func (h *handler) urlHandler(ctx context.Context, req *mcp.CallToolRequest, params repoParams) (*mcp.CallToolResult, any, error) {
	ref, err := wiki.ParseRepoRef(params.Repo)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(h.client.DocsURL(ref.Owner, ref.Repo))
}

// invocationError reports a failed tool run, pointing at codewiki_inspect
// when the run was recorded.
func invocationError(err error) (*mcp.CallToolResult, any, error) {
	msg := err.Error()
	if id := wiki.RunID(err); id != "" {
		msg += fmt.Sprintf("\n\nRun: %s\nInspect with codewiki_inspect(run_id=%q).", id, id)
	}
	return errorResult(msg)
}

// jsonResult renders v as indented JSON text without HTML escaping.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errorResult(fmt.Sprintf("encoding result: %v", err))
	}
	return textResult(strings.TrimSuffix(buf.String(), "\n"))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
