package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/deixis/codewiki"
	"github.com/deixis/codewiki/internal/config"
	cwmcp "github.com/deixis/codewiki/internal/mcp"
	"github.com/deixis/codewiki/internal/report"
	"github.com/deixis/codewiki/internal/runner"
	"github.com/deixis/codewiki/internal/wiki"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

const rootLongDesc = `
codewiki fetches the documentation Google CodeWiki generates for GitHub
repositories. It drives the codewiki tool (by default ~/tools/codewiki/codewiki)
and prints its results: JSON pretty-printed, Markdown verbatim.

Examples:
  codewiki featured
  codewiki repo facebook/react
  codewiki doc anthropics/anthropic-sdk-python
  codewiki url facebook/react
`

// cliApp holds global flags and the resources derived from them.
type cliApp struct {
	stdout io.Writer
	stderr io.Writer

	executable string
	timeout    time.Duration
	logLevel   string

	cfg    *config.Config
	home   string
	logger *log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	app := &cliApp{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "codewiki <command> [owner/repo]",
		Short:         "Fetch CodeWiki documentation for GitHub repositories",
		Long:          strings.TrimSpace(rootLongDesc),
		Args:          noUnknownCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usageError{msg: "missing command"}
		},
	}
	cmd.DisableAutoGenTag = true
	cmd.Version = codewiki.Version
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.executable, "executable", "", "path to the codewiki tool (default ~/tools/codewiki/codewiki)")
	flags.DurationVar(&app.timeout, "timeout", 0, "per-invocation timeout (default 2m)")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")

	cmd.AddCommand(
		newFeaturedCmd(app),
		newRepoCmd(app),
		newDocCmd(app),
		newURLCmd(app),
		newMCPCmd(app),
		newVersionCmd(app),
	)
	return cmd
}

// noUnknownCommand rejects positional arguments on the root command, which
// only occur when the first argument names no subcommand.
func noUnknownCommand(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
	}
	return nil
}

// noArgs rejects positional arguments.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{msg: fmt.Sprintf("%s takes no arguments", cmd.Name())}
	}
	return nil
}

// repoArg requires exactly one owner/repo positional argument.
func repoArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError{msg: fmt.Sprintf("%s requires exactly one owner/repo argument", cmd.Name())}
	}
	if _, err := wiki.ParseRepoRef(args[0]); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

// setup loads configuration and builds the logger. Flags override the
// config file.
func (a *cliApp) setup() error {
	home, _ := os.UserHomeDir()
	a.home = home

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(wd, home)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = loaded.Config

	level := a.cfg.LogLevel()
	if a.logLevel != "" {
		lvl, err := log.ParseLevel(a.logLevel)
		if err != nil {
			return usageError{msg: fmt.Sprintf("invalid --log-level: %v", err)}
		}
		level = lvl
	}
	a.logger = log.NewWithOptions(a.stderr, log.Options{
		Prefix: "codewiki",
		Level:  level,
	})
	if loaded.Path != "" {
		a.logger.Debug("loaded config", "path", loaded.Path)
	}
	return nil
}

// newClient builds a wiki client from config and flags.
func (a *cliApp) newClient(opts ...wiki.Option) *wiki.Client {
	exe := a.cfg.ExecutablePath(a.home)
	if a.executable != "" {
		exe = a.executable
	}
	timeout := a.cfg.Timeout()
	if a.timeout > 0 {
		timeout = a.timeout
	}

	r := &runner.Runner{
		MaxOutput: a.cfg.MaxOutputBytes(),
		Logger:    a.logger,
	}
	base := []wiki.Option{
		wiki.WithExecutable(exe),
		wiki.WithTimeout(timeout),
		wiki.WithLogger(a.logger),
	}
	return wiki.New(r, append(base, opts...)...)
}

// printJSON writes v indented by two spaces, leaving <, > and & as is.
func (a *cliApp) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// --- featured ---

func newFeaturedCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "List featured repositories (JSON)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := app.newClient().FeaturedRepos(cmd.Context())
			if err != nil {
				return err
			}
			return app.printJSON(repos)
		},
	}
}

// --- repo ---

func newRepoCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "repo owner/repo",
		Short: "Get full documentation (JSON)",
		Args:  repoArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := wiki.ParseRepoRef(args[0])
			doc, err := app.newClient().RepoDocs(cmd.Context(), ref.Owner, ref.Repo)
			if err != nil {
				return err
			}
			return app.printJSON(doc)
		},
	}
}

// --- doc ---

func newDocCmd(app *cliApp) *cobra.Command {
	var (
		render bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "doc owner/repo",
		Short: "Get documentation (Markdown)",
		Args:  repoArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := wiki.ParseRepoRef(args[0])
			md, err := app.newClient().RepoMarkdown(cmd.Context(), ref.Owner, ref.Repo)
			if err != nil {
				return err
			}
			if render {
				out, err := renderMarkdown(md, width)
				if err != nil {
					return fmt.Errorf("rendering markdown: %w", err)
				}
				md = out
			}
			_, err = fmt.Fprint(app.stdout, md)
			return err
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "render Markdown for the terminal instead of printing it verbatim")
	cmd.Flags().IntVar(&width, "width", 100, "word-wrap width for --render")
	return cmd
}

// --- url ---

func newURLCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "url owner/repo",
		Short: "Print the CodeWiki URL of a repository",
		Args:  repoArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, _ := wiki.ParseRepoRef(args[0])
			_, err := fmt.Fprintln(app.stdout, wiki.DocsURL(ref.Owner, ref.Repo))
			return err
		},
	}
}

// --- mcp ---

func newMCPCmd(app *cliApp) *cobra.Command {
	var (
		instructions bool
		httpAddr     string
		recordsDir   string
		recordsCap   int
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				_, err := fmt.Fprint(app.stdout, cwmcp.Instructions)
				return err
			}

			store := report.NewLRUStore(recordsCap, report.NewDiskStore(recordsDir))
			client := app.newClient(wiki.WithRecorder(store))
			server := cwmcp.NewServer(client, store)

			if httpAddr != "" {
				return serveHTTP(cmd.Context(), server, httpAddr, app.logger)
			}
			return server.Run(cmd.Context(), &mcpsdk.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	cmd.Flags().StringVar(&recordsDir, "records", "", "directory for invocation records (default: a temp directory)")
	cmd.Flags().IntVar(&recordsCap, "records-cache", 20, "invocation records kept in memory")
	return cmd
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger *log.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- version ---

func newVersionCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(app.stdout, codewiki.Version)
			return err
		},
	}
}
