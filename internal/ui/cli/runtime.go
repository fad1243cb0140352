package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "calcscript/internal/core/app"
	"calcscript/internal/core/config"
	"calcscript/internal/core/errors"
	"calcscript/internal/core/ports"
	"calcscript/internal/core/watcher"
	"calcscript/internal/server"
	"calcscript/internal/shared/version"
)

const shutdownTimeout = 5 * time.Second

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Println(version.String())
		return 0
	}

	if err := validateModeCompatibility(opts); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildRuntime(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize runtime", "error", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		deps.Close(closeCtx)
	}()

	if opts.history > 0 {
		return printHistory(ctx, deps.history, opts.history, os.Stdout)
	}

	if !isLongRunning(opts) {
		inputs, err := readInputs(opts.args, os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		return runScripts(ctx, deps.interp, inputs, opts.tokens, os.Stdout, os.Stderr)
	}

	if cfgPath != "" {
		cw := config.NewWatcher(cfgPath, func(next *config.Config) {
			deps.interp.SetMaxDepth(next.Engine.MaxDepth)
			slog.Info("config reloaded", "max_depth", next.Engine.MaxDepth)
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	if opts.serve || cfg.Server.Enabled {
		srv, err := startServer(ctx, cfg, deps)
		if err != nil {
			slog.Error("failed to start api server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				slog.Warn("api server shutdown failed", "error", err)
			}
		}()
	}

	switch {
	case opts.ui:
		path := ""
		if len(opts.args) > 0 {
			path = opts.args[0]
		}
		if err := runUI(ctx, deps.interp, path, watchOptions(cfg)); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	case opts.watch:
		paths := opts.args
		if len(paths) == 0 {
			paths = cfg.Watch.Paths
		}
		if err := runWatchMode(ctx, deps.interp, paths, watchOptions(cfg), opts.tokens, os.Stdout, os.Stderr); err != nil {
			slog.Error("watch mode failed", "error", err)
			return 1
		}
		return 0
	default:
		<-ctx.Done()
		return 0
	}
}

func isLongRunning(opts cliOptions) bool {
	return opts.ui || opts.watch || opts.serve
}

func validateModeCompatibility(opts cliOptions) error {
	modes := 0
	for _, on := range []bool{opts.ui, opts.watch, opts.serve, opts.history > 0} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("--ui, --watch, --serve and --history cannot be combined")
	}
	if opts.tokens && (opts.ui || opts.serve || opts.history > 0) {
		return fmt.Errorf("--tokens only applies to script and watch modes")
	}
	if opts.history < 0 {
		return fmt.Errorf("--history must be positive, got %d", opts.history)
	}
	if opts.ui && len(opts.args) > 1 {
		return fmt.Errorf("--ui accepts at most one script path")
	}
	return nil
}

func watchOptions(cfg *config.Config) watcher.Options {
	return watcher.Options{
		Debounce: cfg.Watch.Debounce,
		Include:  cfg.Watch.Include,
		Exclude:  cfg.Watch.Exclude,
	}
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, "", err
	}
	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			return cfg, candidate, nil
		}
		if !os.IsNotExist(loadErr) {
			return nil, "", loadErr
		}
	}

	// No config file is fine; every setting has a default.
	cfg := config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, "", errs[0]
	}
	return cfg, "", nil
}

func discoverDefaultConfig(cwd string) ([]string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "data/config/calcscript.toml")),
		filepath.Clean(filepath.Join(cwd, "calcscript.toml")),
	}, nil
}

type scriptInput struct {
	source string
	script string
}

// readInputs reads every path in args, or stdin when args is empty or "-".
func readInputs(args []string, stdin io.Reader) ([]scriptInput, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]scriptInput, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			inputs = append(inputs, scriptInput{source: "stdin", script: string(data)})
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, scriptInput{source: arg, script: string(data)})
	}
	return inputs, nil
}

// runScripts runs each input in turn and returns the process exit code.
// A faulting script still prints the variables assigned before the fault.
func runScripts(ctx context.Context, svc ports.ScriptService, inputs []scriptInput, tokens bool, out, errOut io.Writer) int {
	code := 0
	for _, in := range inputs {
		if len(inputs) > 1 {
			fmt.Fprintf(out, "# %s\n", in.source)
		}
		if !runOne(ctx, svc, in, tokens, out, errOut) {
			code = 1
		}
	}
	return code
}

func runOne(ctx context.Context, svc ports.ScriptService, in scriptInput, tokens bool, out, errOut io.Writer) bool {
	if tokens {
		fmt.Fprint(out, coreapp.FormatTokens(svc.Tokenize(ctx, in.script)))
		return true
	}

	res, err := svc.Execute(ctx, ports.RunRequest{Source: in.source, Script: in.script})
	if res != nil {
		fmt.Fprint(out, coreapp.FormatVariables(res.Names, res.Variables))
	}
	if err != nil {
		fmt.Fprintf(errOut, "%s: %s\n", in.source, errors.Message(err))
		return false
	}
	return true
}

// runWatchMode runs the script files named in paths once, then re-runs any
// accepted file under paths each time it changes, until ctx is done.
func runWatchMode(ctx context.Context, svc ports.ScriptService, paths []string, opts watcher.Options, tokens bool, out, errOut io.Writer) error {
	if len(paths) == 0 {
		return fmt.Errorf("watch mode needs a script path or watch.paths in config")
	}

	rerun := func(changed []string) {
		for _, path := range changed {
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("failed to read changed script", "path", path, "error", err)
				continue
			}
			fmt.Fprintf(out, "# %s\n", path)
			runOne(ctx, svc, scriptInput{source: path, script: string(data)}, tokens, out, errOut)
		}
	}

	w, err := watcher.New(opts, rerun)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(paths); err != nil {
		return err
	}

	var initial []string
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			initial = append(initial, path)
		}
	}
	rerun(initial)

	slog.Info("watching scripts", "paths", paths)
	<-ctx.Done()
	return nil
}

func startServer(ctx context.Context, cfg *config.Config, deps *runtimeDeps) (*server.Server, error) {
	srv, err := server.New(server.Options{
		Address:     cfg.Server.Address,
		RateLimit:   cfg.Server.RateLimit,
		Burst:       cfg.Server.Burst,
		LimiterTTL:  cfg.Server.LimiterTTL,
		MaxBodySize: cfg.Server.MaxBodySize,
		Metrics:     cfg.Observability.MetricsEnabled,
	}, deps.interp, deps.health)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}

func printHistory(ctx context.Context, store ports.RunHistory, limit int, out io.Writer) int {
	if store == nil {
		fmt.Fprintln(os.Stderr, "--history requires history.enabled = true in config")
		return 1
	}
	runs, err := store.LoadRuns(ctx, time.Time{}, limit)
	if err != nil {
		slog.Error("failed to load history", "error", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return 0
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %s  %-5s  %-10s  statements=%d variables=%d",
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.ID,
			run.Status,
			run.Source,
			run.Statements,
			len(run.Variables),
		)
		if run.ErrorMessage != "" {
			line += "  " + run.ErrorMessage
		}
		fmt.Fprintln(out, line)
	}
	return 0
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	// Stdout carries script output, so logs go to stderr.
	output := os.Stderr
	var closeFn func() = func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "calcscript", "calcscript.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "calcscript", "calcscript.log")
	}

	return "calcscript.log"
}
