package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/booking-sync/backend/internal/calendar"
	"github.com/booking-sync/backend/internal/registry"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Manage registered feed pairs",
}

var pairsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Register the feeds declared in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := registry.Load(args[0])
		if err != nil {
			return err
		}

		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		a, err := newApp(cmd.Context(), cfg, log, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := registry.Import(cmd.Context(), a.feeds, f, cfg.Sync.DefaultIntervalMin, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %d feed pair(s)\n", n)
		return nil
	},
}

var pairsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered feed pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		a, err := newApp(cmd.Context(), cfg, log, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		pairs, err := a.feeds.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range pairs {
			last := "never"
			if p.LastSyncAt != nil {
				last = p.LastSyncAt.Format("2006-01-02 15:04")
				if p.LastOutcome != nil {
					last += " " + *p.LastOutcome
				}
			}
			fmt.Fprintf(out, "%-20s %-8s every %3dm enabled=%-5t last=%s %s\n",
				p.UnitID, p.Platform, p.SyncIntervalMin, p.Enabled, last, calendar.RedactURL(p.URL))
		}
		return nil
	},
}

func init() {
	pairsCmd.AddCommand(pairsImportCmd, pairsListCmd)
	rootCmd.AddCommand(pairsCmd)
}
