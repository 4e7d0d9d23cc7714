package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gamecfg/internal/build"
	"gamecfg/internal/persistence/indexdb"
	"gamecfg/internal/persistence/journal"
	"gamecfg/internal/persistence/publish"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build engine_settings.json and items.json from the data sources",
	Long: `Build loads the settings and items sources, validates every item,
stamps both payloads with the config version and writes them to the build
directory. Any item diagnostic aborts the build before anything is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, closeFn := newBuilder()
		defer closeFn()

		results, err := b.BuildAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s from %s\n", filepath.Base(r.Path), r.Source)
		}
		return nil
	},
}

// newBuilder wires the optional index, journal and publisher. None of them is
// required for a build, so setup failures are logged and skipped.
func newBuilder() (*build.Builder, func()) {
	var (
		opts    []build.Option
		closers []func() error
	)
	if !cfg.DisableIndex {
		idx, err := indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			logger.Warn("open index; continuing without it", zap.String("path", cfg.IndexDB), zap.Error(err))
		} else {
			opts = append(opts, build.WithIndex(idx))
			closers = append(closers, idx.Close)
		}
	}
	if !cfg.DisableHistory {
		j := journal.NewBuildJournal(cfg.HistoryDir)
		opts = append(opts, build.WithJournal(j))
		closers = append(closers, j.Close)
	}
	if cfg.Publish.Enabled() {
		pc := cfg.Publish
		client, err := publish.New(pc.Endpoint, pc.Bucket, pc.AccessKey, pc.SecretKey)
		if err != nil {
			logger.Warn("publish disabled", zap.String("endpoint", pc.Endpoint), zap.Error(err))
		} else {
			opts = append(opts, build.WithPublisher(publish.NewPublisher(client, pc.Prefix, logger)))
		}
	}
	return build.New(cfg, logger, opts...), func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close", zap.Error(err))
			}
		}
	}
}
