package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		workers int
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the JSON API for the dashboard",
		Example: `  dithap serve --addr :9000`,
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = viper.GetString("server.addr")
			}
			return runServe(addr, workers)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr, :8080)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of ontologies tested in parallel (0 = all CPUs)")
	return cmd
}

func runServe(addr string, workers int) error {
	store, files, err := openCurves()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	} else {
		logger.Warn("depletion curves disabled: data.gene_lfc not set")
	}

	srv := server.New(loadDataset(), server.Options{
		Curves:     store,
		CurveFiles: files,
		STRING:     newStringClient(),
		Workers:    workers,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", zap.String("addr", addr))
	return srv.Run(ctx, addr)
}
