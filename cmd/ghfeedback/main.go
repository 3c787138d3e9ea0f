// Package main provides the CLI entrypoint for ghfeedback.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JohanCodinha/ghfeedback/internal/config"
	"github.com/JohanCodinha/ghfeedback/internal/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile  string
	logLevel string
	logFile  string
	v        *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}
	opts.v.SetDefault("app_version", version)

	root := &cobra.Command{
		Use:   "ghfeedback",
		Short: "Follow up on the GitHub issues you reported",
		Long: `ghfeedback keeps a local cache of the issues you opened in a repository,
tells you when a maintainer is waiting for more information, and sends
your response back with logs and state dumps attached.

Example:
  ghfeedback refresh --repo owner/repo
  ghfeedback respond 42 -m "Still happens on 1.4" --include log`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is .ghfeedback.yaml)")
	flags.String("repo", "", "repository in owner/repo format")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", "", "mirror log lines into this file")
	_ = opts.v.BindPFlag("repo", flags.Lookup("repo"))

	root.AddCommand(
		newRefreshCmd(opts),
		newListCmd(opts),
		newOutstandingCmd(opts),
		newRespondCmd(opts),
		newOutboxCmd(opts),
	)
	return root
}

func (o *rootOptions) init() error {
	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if o.logFile != "" {
		if err := logger.SetLogFile(o.logFile); err != nil {
			return err
		}
	}

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		o.v.AddConfigPath(cwd)
		if home, err := os.UserHomeDir(); err == nil {
			o.v.AddConfigPath(home)
		}
		o.v.SetConfigType("yaml")
		o.v.SetConfigName(config.FileName)
	}

	if err := o.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		logger.Debug("using config file %s", o.v.ConfigFileUsed())
	}
	return nil
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
