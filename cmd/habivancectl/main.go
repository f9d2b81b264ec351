// Package main implements habivancectl, the operator CLI for the habit store.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nadmax/habivance/internal/config"
	"github.com/nadmax/habivance/internal/logger"
	"github.com/nadmax/habivance/internal/repository"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "habivancectl",
		Short:        "Habivance - maintenance tools for the habit store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				logger.SetOutput(cmd.ErrOrStderr())
				return nil
			}
			return logger.Init(logger.Config{Prefix: "ctl"})
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("HABIVANCE_CONFIG"), "path to the TOML config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(opts),
		newRolloverCmd(opts),
		newStreaksCmd(opts),
	)

	return root
}

// openStore loads the config and opens the repository it points at.
func openStore(opts *options) (*config.Config, *repository.SQLHabitRepository, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	repo, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	return cfg, repo, nil
}

func closeStore(repo *repository.SQLHabitRepository) {
	if err := repo.Close(); err != nil {
		logger.Error("failed to close repository", "err", err)
	}
}
