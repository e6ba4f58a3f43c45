package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/http-diskcache/pkg/config"
	"github.com/Sternrassler/http-diskcache/pkg/logging"
)

// app carries the loaded configuration to the subcommands.
type app struct {
	cfgFile  string
	logLevel string
	pretty   bool

	cfg    config.Config
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "apicache",
		Short: "Cache and pace outbound HTTP calls",
		Long: `apicache fetches URLs through a disk (or Redis) backed response cache.
Cache misses are paced by a minimum-interval rate limiter; hits never touch
the network.

Configuration is read from defaults, the --config YAML file and APICACHE_*
environment variables (APICACHE_RATELIMITER__MINWAITMSBETWEENCALLS=250).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (.yaml, .yml, .json, .toml or .tml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "human-readable log output")

	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newKeyCmd(a))
	rootCmd.AddCommand(newInspectCmd(a))

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	if cmd.Flags().Changed("log-level") {
		if _, err := logging.ParseLevel(a.logLevel); err != nil {
			return err
		}
	}

	cfg, err := config.NewLoader(config.DefaultEnvPrefix, a.cfgFile).Load(cmd.Context())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Logging.Pretty = a.pretty
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: a.errOut,
	})
	a.cfg = cfg
	return nil
}
