package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/rtree"
	"github.com/1F47E/earthgrid/pkg/server"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /pollution and /overlay over HTTP",
	Long: `Run the HTTP API. Hotspot files configured under hotspot_files are watched
and reloaded on change without restarting the server.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		return err
	}

	for layer, file := range cfg.HotspotFiles {
		hotspots, err := layerHotspots(layer)
		if err != nil {
			return err
		}
		srv.SetHotspots(layer, hotspots)
		logger.Info("Hotspots loaded",
			zap.String("layer", string(layer)),
			zap.String("file", file),
			zap.Int("count", len(hotspots)))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	for layer, file := range cfg.HotspotFiles {
		g.Go(func() error {
			return rtree.WatchFile(ctx, file, logger, func(hs []models.Hotspot) {
				srv.SetHotspots(layer, hs)
			})
		})
	}

	logger.Info("Layers ready", zap.Strings("layers", layerNames()))
	return g.Wait()
}

func layerNames() []string {
	layers := grid.Layers()
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = string(l)
	}
	return out
}
