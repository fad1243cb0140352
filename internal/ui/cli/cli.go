package cli

import "flag"

const defaultConfigPath = "./data/config/calcscript.toml"

type cliOptions struct {
	configPath string
	tokens     bool
	ui         bool
	watch      bool
	serve      bool
	history    int
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("calcscript", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.tokens, "tokens", false, "Print the token list instead of running the script")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run scripts when they change on disk")
	fs.BoolVar(&opts.serve, "serve", false, "Start the HTTP API")
	fs.IntVar(&opts.history, "history", 0, "Print the N most recent recorded runs and exit (requires history.enabled)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
