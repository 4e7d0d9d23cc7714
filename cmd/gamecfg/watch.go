package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gamecfg/internal/transport/notify"
	"gamecfg/internal/watch"
)

var (
	watchNotify   string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild artifacts whenever a source changes",
	Long: `Watch builds once, then rebuilds every time a source document in the
data directory changes. Results are pushed to runtime clients connected to
ws://<notify>/v1/artifacts unless --notify is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := cfg.NotifyAddr
		if cmd.Flags().Changed("notify") {
			addr = watchNotify
		}

		b, closeFn := newBuilder()
		defer closeFn()
		hub := notify.NewHub(logger)

		rebuild := func(ctx context.Context, changed []string) {
			if len(changed) > 0 {
				logger.Info("rebuilding", zap.Strings("changed", changed))
			}
			results, err := b.BuildAll(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "build failed:", err)
				hub.Broadcast(notify.Message{Type: notify.TypeBuildFailed, Error: err.Error()})
				return
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s from %s\n", filepath.Base(r.Path), r.Source)
				hub.Broadcast(notify.Message{
					Type:     notify.TypeArtifactBuilt,
					BuildID:  r.BuildID,
					Artifact: string(r.Kind),
					Version:  r.Version,
					Digest:   r.Digest,
					Path:     r.Path,
				})
			}
		}
		rebuild(ctx, nil)

		g, gctx := errgroup.WithContext(ctx)
		if addr != "" {
			mux := http.NewServeMux()
			mux.HandleFunc("/v1/artifacts", hub.Handler())
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			g.Go(func() error {
				logger.Info("notify listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				hub.Close()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}
		w := watch.New(watchDirs(), watchDebounce, logger, rebuild)
		g.Go(func() error { return w.Run(gctx) })
		return g.Wait()
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchNotify, "notify", "", "websocket listen address for runtime notifications (empty disables; default from config)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before rebuilding")
}

// watchDirs is the data directory plus the directories of explicitly
// configured sources.
func watchDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for _, d := range []string{cfg.DataDir, filepath.Dir(cfg.SettingsPath()), filepath.Dir(cfg.ItemsPath())} {
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}
