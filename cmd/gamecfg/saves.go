package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gamecfg/internal/data/loader"
	"gamecfg/internal/data/records"
	"gamecfg/internal/persistence/savedb"
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage save games seeded from the built engine settings",
}

var savesNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a save using world_seed and world size from engine_settings.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loader.Load(cfg.SettingsOutput())
		if err != nil {
			return fmt.Errorf("read built settings (run gamecfg build first): %w", err)
		}
		settings, err := records.DecodeSettings(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.SettingsOutput(), err)
		}

		store, err := savedb.Open(cfg.SaveDB)
		if err != nil {
			return err
		}
		defer store.Close()

		sv, err := store.Create(cmd.Context(), args[0], settings, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created save %d %q seed=%d at (%.1f, %.1f)\n",
			sv.ID, sv.Name, sv.WorldSeed, sv.PlayerX, sv.PlayerY)
		return nil
	},
}

var savesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := savedb.Open(cfg.SaveDB)
		if err != nil {
			return err
		}
		defer store.Close()

		saves, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSEED\tPLAYER\tUPDATED")
		for _, sv := range saves {
			fmt.Fprintf(tw, "%d\t%s\t%d\t(%.1f, %.1f)\t%s\n",
				sv.ID, sv.Name, sv.WorldSeed, sv.PlayerX, sv.PlayerY, sv.UpdatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var savesLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recently played save",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := savedb.Open(cfg.SaveDB)
		if err != nil {
			return err
		}
		defer store.Close()

		sv, err := store.Latest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Save %d %q seed=%d at (%.1f, %.1f) updated %s\n",
			sv.ID, sv.Name, sv.WorldSeed, sv.PlayerX, sv.PlayerY, sv.UpdatedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	savesCmd.AddCommand(savesNewCmd)
	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesLatestCmd)
}
