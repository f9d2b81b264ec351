package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nadmax/habivance/internal/service"
)

// migrate
func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := openStore(opts)
			if err != nil {
				return err
			}
			defer closeStore(repo)

			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

// rollover
func newRolloverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Record missed days for every habit and refresh cached streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := openStore(opts)
			if err != nil {
				return err
			}
			defer closeStore(repo)

			location, err := cfg.Location()
			if err != nil {
				return err
			}

			habits := service.NewHabitService(repo, service.SystemClock{Location: location}, nil)
			updated, err := habits.Rollover(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d habits updated\n", updated)
			return nil
		},
	}
}

// streaks <user-id>
func newStreaksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "streaks <user-id>",
		Short: "Show a user's current and longest streaks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := openStore(opts)
			if err != nil {
				return err
			}
			defer closeStore(repo)

			location, err := cfg.Location()
			if err != nil {
				return err
			}

			habits := service.NewHabitService(repo, service.SystemClock{Location: location}, nil)
			views, err := habits.Streaks(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "no habits")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HABIT\tCATEGORY\tCURRENT\tLONGEST\tTIER")
			for _, v := range views {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", v.Name, v.Category, v.Current, v.Longest, v.Tier.Name)
			}
			return w.Flush()
		},
	}
}
