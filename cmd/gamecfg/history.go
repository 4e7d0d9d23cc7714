package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gamecfg/internal/persistence/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent builds from the build journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := journal.ReadAll(cfg.HistoryDir)
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "BUILT\tBUILD\tARTIFACT\tVERSION\tDIGEST\tCOUNT")
		for _, e := range entries {
			digest := e.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
				e.BuiltAt.Format(time.RFC3339), e.BuildID, e.Artifact, e.Version, digest, e.Count)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "show at most N entries (0 for all)")
}
