package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/stations"
)

var (
	nearLat float64
	nearLon float64
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Manage the monitoring station store",
}

var stationsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema and seed the default stations",
	RunE:  runStationsInit,
}

var stationsNearCmd = &cobra.Command{
	Use:   "near",
	Short: "List stations near a point",
	RunE:  runStationsNear,
}

func init() {
	stationsNearCmd.Flags().Float64Var(&nearLat, "lat", 0, "Latitude")
	stationsNearCmd.Flags().Float64Var(&nearLon, "lon", 0, "Longitude")
	stationsCmd.AddCommand(stationsInitCmd, stationsNearCmd)
}

// openStore connects the configured store and makes sure its schema exists.
func openStore(ctx context.Context) (stations.Store, error) {
	sc := cfg.Stations.Config
	if (sc.Driver == "" || sc.Driver == "sqlite") && sc.DSN != "" && sc.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(sc.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	store, err := stations.Open(sc)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func runStationsInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	seed := stations.DefaultStations()
	if err := store.Upsert(ctx, seed); err != nil {
		return err
	}
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Stations seeded", zap.String("driver", cfg.Stations.Driver), zap.Int("seeded", len(seed)))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %d stations, %d in store\n", len(seed), count)

	if pg, ok := store.(*stations.PostGISStore); ok {
		stats, err := pg.GetDatabaseStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Table size: %v\n", stats["table_size"])
		fmt.Fprintf(out, "Index size: %v\n", stats["index_size"])
	}
	return nil
}

func runStationsNear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	found, err := store.Nearby(ctx, models.Location{Lat: nearLat, Lon: nearLon}, cfg.Stations.RadiusKm, cfg.Stations.Limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(found) == 0 {
		fmt.Fprintf(out, "No stations within %.0f km\n", cfg.Stations.RadiusKm)
		return nil
	}
	for _, st := range found {
		fmt.Fprintf(out, "%-10s %-28s %8.4f %9.4f  AQI %d\n", st.ID, st.Name, st.Lat, st.Lon, st.AQI)
	}
	return nil
}
