package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	playground "github.com/canopy-network/plugin-playground"
	"github.com/canopy-network/plugin-playground/internal/bootstrap"
	"github.com/canopy-network/plugin-playground/internal/cliconfig"
	"github.com/canopy-network/plugin-playground/pkg/log"
)

var longHelp = strings.TrimSpace(`
Canopy Plugin Playground: a minimal plugin process for a Canopy node.

The plugin connects to the FSM host over the unix socket in its data
directory, introduces itself with a handshake and answers FSM requests until
it receives SIGINT or SIGTERM.

Configuration is read from defaults, the config file, a .env file,
CANOPY_PLUGIN_* environment variables and flags, later sources winning.
`)

var exampleUsage = strings.TrimSpace(`
  playground
  playground --chain-id 1 --data-dir /tmp/plugin/
  playground --config $HOME/.canopy-plugin/playground.toml --health-addr 127.0.0.1:9090
`)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger, _ := log.New(log.Options{Out: os.Stderr})
		logger.Error("playground", log.Err(err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := playground.DefaultConfig()
	var cfgPath, envPath string

	root := &cobra.Command{
		Use:           "playground",
		Short:         "Canopy Plugin Playground",
		Long:          longHelp,
		Example:       exampleUsage,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return bootstrap.Run(ctx, bootstrap.Options{
				Version: playground.Version,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
				Load: func() (cliconfig.Config, error) {
					return loadConfig(cmd.Flags(), cfg, cfgPath, envPath)
				},
				NewPlugin: func(c cliconfig.Config, logger log.Logger) (bootstrap.Handle, error) {
					return playground.NewPlugin(c, logger)
				},
			})
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.canopy-plugin/playground.toml)")
	f.StringVar(&envPath, "env-file", ".env", "path to a .env file (ignored if missing)")
	f.Uint64Var(&cfg.ChainID, "chain-id", cfg.ChainID, "chain id served by the plugin")
	f.StringVar(&cfg.DataDirPath, "data-dir", cfg.DataDirPath, "data directory holding the FSM socket")
	f.StringVar(&cfg.SocketName, "socket", cfg.SocketName, "FSM socket file name inside data-dir")
	f.StringVar(&cfg.PluginName, "plugin-name", cfg.PluginName, "plugin name sent in the handshake")
	f.Uint64Var(&cfg.PluginID, "plugin-id", cfg.PluginID, "plugin id sent in the handshake")
	f.Uint64Var(&cfg.PluginVersion, "plugin-version", cfg.PluginVersion, "plugin version sent in the handshake")
	f.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "time budget for reaching the FSM socket")
	f.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "time budget for the handshake reply")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "bound on in-flight requests at shutdown (0 waits)")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent request handlers")
	f.IntVar(&cfg.MaxFrameBytes, "max-frame-bytes", cfg.MaxFrameBytes, "largest accepted frame")
	f.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "address for /live, /ready and /metrics (disabled if empty)")
	f.BoolVar(&cfg.StatusFile, "status-file", cfg.StatusFile, "write playground.status.json into data-dir")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the playground version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), playground.Version)
		},
	})

	return root
}

// loadConfig layers the config file, the .env file and CANOPY_PLUGIN_*
// variables under the flags. cfg already holds defaults and flag values.
func loadConfig(flags *pflag.FlagSet, cfg cliconfig.Config, cfgPath, envPath string) (cliconfig.Config, error) {
	changed := map[string]bool{}
	flags.Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
			return cfg, err
		}
	} else if cfgPath != "" {
		return cfg, fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.LoadDotEnv(envPath); err != nil {
		return cfg, err
	}
	if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
