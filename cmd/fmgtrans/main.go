// fmgtrans is a chunked batch translation tool for FMG localization
// corpora: extract a corpus into bounded chunks, translate them through
// an AI provider in token-budgeted batches, and merge the result back.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mistward/fmgtrans/internal/config"
	"github.com/mistward/fmgtrans/internal/persistence"
	"github.com/mistward/fmgtrans/internal/service"
	"github.com/mistward/fmgtrans/pkg/file"
	"github.com/mistward/fmgtrans/pkg/log"
)

// Version information (set via -ldflags during build)
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fmgtrans",
		Short:         "Batch translation pipeline for FMG localization corpora",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; environment variables win either way.
			_ = godotenv.Load()

			level := log.ParseLevel(os.Getenv("LOG_LEVEL"))
			if path := os.Getenv("LOG_FILE"); path != "" {
				if _, err := log.InitFileLogger(path, level); err != nil {
					log.InitLogger(level)
					log.Warn("log file %s unavailable, logging to stdout: %v", path, err)
				}
			} else {
				log.InitLogger(level)
			}
		},
	}
	root.AddCommand(newExtractCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newTranslateCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newExtractCmd() *cobra.Command {
	var chunkSize int
	var format string

	cmd := &cobra.Command{
		Use:   "extract <corpus.json>",
		Short: "Flatten a corpus into a header plus chunk files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := service.Extract(args[0], chunkSize, format)
			if err != nil {
				return err
			}
			fmt.Printf("extracted %d chunks into %s\n", store.ChunkCount(), store.Dir())
			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 250, "entries per chunk, 0 for a single chunk")
	cmd.Flags().StringVar(&format, "format", "array", "chunk file format: array or table")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var out string
	var allowPartial bool

	cmd := &cobra.Command{
		Use:   "merge <chunk-dir>",
		Short: "Reassemble a chunk directory into a corpus file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := service.Merge(args[0], out, allowPartial)
			if err != nil {
				return err
			}
			fmt.Printf("merged into %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: <parent>/<dir>_merged.json)")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "tolerate missing chunk files, e.g. after a stopped run")
	return cmd
}

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <chunk-dir>",
		Short: "Translate an extracted corpus chunk by chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return err
			}

			store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runner := service.NewRunner(cfg, store)
			handle, err := runner.Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			// First interrupt requests a graceful stop; the second kills.
			sigCh := make(chan os.Signal, 2)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Warn("stop requested, waiting for in-flight batches")
				handle.Session.Stop()
				<-sigCh
				os.Exit(1)
			}()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p := handle.Session.Progress()
					fmt.Printf("\rprogress: %d/%d (%.1f%%)", p.Done, p.Total, p.Percent())
				case <-handle.Done():
					p := handle.Session.Progress()
					fmt.Printf("\rprogress: %d/%d (%.1f%%)\n", p.Done, p.Total, p.Percent())
					if err := handle.Err(); err != nil {
						return err
					}
					fmt.Printf("output: %s\n", file.TranslatedDir(args[0]))
					return nil
				}
			}
		},
	}
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status API and, if configured, the watch scanner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return err
			}

			store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runner := service.NewRunner(cfg, store)

			var watcher *service.Watcher
			if cfg.Server.WatchDir != "" {
				watcher = service.NewWatcher(runner, cfg.Server.WatchDir, cfg.Server.CronExpr)
				if err := watcher.Start(); err != nil {
					return err
				}
				defer watcher.Stop()
			}

			api := service.NewAPI(runner, store, watcher)
			server := &http.Server{
				Addr:    cfg.Server.HTTPAddr,
				Handler: api.Handler(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening on %s", cfg.Server.HTTPAddr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	return cmd
}
