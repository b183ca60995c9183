// Secretary is a conversational assistant for university students.
//
// It turns natural-language requests into calls to local data tools
// (schedule, budget, courses, weather, memory) and answers from their
// results. Configuration is loaded from a YAML file discovered
// automatically (see [config.DefaultSearchPaths]); without one the
// defaults and the GEMINI_* environment variables are used.
//
// Usage:
//
//	secretary [chat]           Interactive chat (default)
//	secretary ask <question>   Ask a single question
//	secretary serve            Start the HTTP API server
//	secretary eval <cases>     Run an evaluation case file
//	secretary init [dir]       Initialize a working directory
//	secretary version          Print version and build information
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campuskit/secretary/internal/agent"
	"github.com/campuskit/secretary/internal/api"
	"github.com/campuskit/secretary/internal/buildinfo"
	"github.com/campuskit/secretary/internal/config"
	"github.com/campuskit/secretary/internal/eval"
	"github.com/campuskit/secretary/internal/llm"
	"github.com/campuskit/secretary/internal/paths"
	"github.com/campuskit/secretary/internal/prompts"
	"github.com/campuskit/secretary/internal/tools"
)

// shutdownTimeout bounds how long serve waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// main only wires the process environment into [run] so the whole
// command can be driven from tests.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		cancel()
		os.Exit(1)
	}
}

// run is the real entry point. args is os.Args[1:]. Flags are parsed by
// hand so run holds no global state. Logs go to stderr; replies and
// command output go to stdout.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		case command != "":
			cmdArgs = append(cmdArgs, args[i])
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "", "chat":
		return runChat(ctx, stdin, stdout, stderr, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: secretary ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, outputFmt, cmdArgs)
	case "serve":
		return runServe(ctx, stderr, configPath)
	case "eval":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: secretary eval <cases.json|cases.yaml>")
		}
		return runEval(ctx, stdout, stderr, configPath, outputFmt, cmdArgs[0])
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Secretary - campus assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: secretary [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat           Interactive chat (default)")
	fmt.Fprintln(w, "  ask <text>     Ask a single question")
	fmt.Fprintln(w, "  serve          Start the HTTP API server")
	fmt.Fprintln(w, "  eval <file>    Run evaluation cases (JSON or YAML)")
	fmt.Fprintln(w, "  init [dir]     Initialize a working directory (default: .)")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/secretary/config.yaml, /etc/secretary/config.yaml")
	return nil
}

// loadConfig locates and parses the configuration. When no file is found
// by search (and none was named), the defaults plus environment
// overrides are used. The returned path is empty in that case.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if errors.Is(err, config.ErrNoConfig) {
		cfg := config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", cfg.Validate()
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// app holds what every agent-running command needs.
type app struct {
	cfg        *config.Config
	layout     paths.Layout
	logger     *slog.Logger
	client     llm.Client
	templates  *prompts.Loader
	dispatcher *tools.Dispatcher
}

// newApp loads the configuration and builds the model client, template
// loader, and tool dispatcher. Logs go to logw.
func newApp(ctx context.Context, logw io.Writer, configPath string) (*app, error) {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel) // checked by Validate
	logger := config.NewLogger(logw, level, cfg.LogFormat)

	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	if err := layout.EnsureData(); err != nil {
		return nil, err
	}
	logger.Debug("config loaded",
		"path", cfgPath,
		"base", layout.Base,
		"tools", layout.Tools,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
	)

	client, err := llm.New(ctx, llm.Config{
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Name,
		APIKey:   cfg.Model.APIKey,
		BaseURL:  cfg.Model.BaseURL,
		Timeout:  cfg.ModelTimeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("model client: %w", err)
	}

	return &app{
		cfg:       cfg,
		layout:    layout,
		logger:    logger,
		client:    client,
		templates: prompts.NewLoader(layout.Templates),
		dispatcher: tools.NewDispatcher(tools.Config{
			Dir:            layout.Tools,
			DataDir:        layout.Data,
			Timeout:        cfg.ToolTimeout(),
			MaxOutputBytes: cfg.Tools.MaxOutputBytes,
		}, logger),
	}, nil
}

// newLoop returns an agent loop with an empty conversation.
func (a *app) newLoop() *agent.Loop {
	return agent.NewLoop(a.logger, a.client, a.templates, a.dispatcher, agent.Config{
		MaxHistory: a.cfg.Agent.MaxHistory,
		Template:   a.cfg.Agent.Template,
		Locale:     a.cfg.Agent.Locale,
	})
}

// runAsk answers one question and exits.
func runAsk(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt string, args []string) error {
	a, err := newApp(ctx, stderr, configPath)
	if err != nil {
		return err
	}

	resp := a.newLoop().Chat(ctx, strings.Join(args, " "))
	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(stdout, resp.Content)
	}
	if resp.Finish == agent.FinishError {
		return fmt.Errorf("ask: %w", resp.Err)
	}
	return nil
}

// runServe starts the HTTP API and blocks until ctx is canceled.
func runServe(ctx context.Context, stderr io.Writer, configPath string) error {
	a, err := newApp(ctx, stderr, configPath)
	if err != nil {
		return err
	}
	a.logger.Info("starting secretary", "build", buildinfo.String(), "listen", a.cfg.ListenAddr())

	if names, err := a.dispatcher.List(); err != nil {
		a.logger.Warn("tools directory unreadable", "dir", a.layout.Tools, "error", err)
	} else {
		a.logger.Info("tools available", "dir", a.layout.Tools, "tools", names)
	}
	if names, err := a.templates.Names(); err != nil {
		a.logger.Warn("templates directory unreadable", "dir", a.templates.Dir(), "error", err)
	} else {
		a.logger.Info("templates available", "dir", a.templates.Dir(), "templates", names)
	}

	server := api.NewServer(api.Config{
		Address: a.cfg.Listen.Address,
		Port:    a.cfg.Listen.Port,
	}, api.NewSessions(a.newLoop, 0), a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// runEval runs a case file and prints the report.
func runEval(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt, casesPath string) error {
	cases, err := eval.LoadCases(casesPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, stderr, configPath)
	if err != nil {
		return err
	}

	runner := eval.NewRunner(a.newLoop, a.logger)
	var progress func(eval.Case, eval.Metrics)
	if outputFmt == "text" {
		fmt.Fprintf(stdout, "Running %d evaluation cases...\n\n", len(cases))
		progress = func(c eval.Case, m eval.Metrics) {
			mark := "FAIL"
			if m.Success {
				mark = "PASS"
			}
			fmt.Fprintf(stdout, "[%s] #%d %s: %s (%.2fs)\n", mark, c.ID, c.Name, c.Query, m.Duration.Seconds())
		}
	}
	results := runner.Run(ctx, cases, progress)

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"results": results,
			"summary": eval.Summarize(results),
		})
	}
	fmt.Fprintln(stdout)
	return eval.WriteReport(stdout, results)
}
