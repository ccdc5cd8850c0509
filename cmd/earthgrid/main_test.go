package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/1F47E/earthgrid/pkg/logging"
	"github.com/1F47E/earthgrid/pkg/models"
)

// resetFlags restores every flag to its default so commands can run repeatedly.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// writeConfig writes a test config; extra lines are appended verbatim.
func writeConfig(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("noise: none\nlog:\n  level: error\nstations:\n  driver: sqlite\n  dsn: %s\n",
		filepath.Join(dir, "data", "stations.db"))
	body += strings.Join(extra, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// writeHotspotFile writes a one-hotspot YAML list at (1,1) and returns its path.
func writeHotspotFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pollution.yaml")
	body := "hotspots:\n  - {name: Test, lat: 1, lon: 1, factor: 0.5}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateJSON(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := execute(t, "generate", "--config", cfgPath, "--json",
		"--resolution", "2", "--north", "2", "--south", "0", "--east", "2", "--west", "0")
	require.NoError(t, err)

	var got generateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, models.Viewport{North: 2, South: 0, East: 2, West: 0}, got.Viewport)
	assert.Equal(t, 2, got.Params.Resolution)
	require.Len(t, got.Samples, 9)
	for _, s := range got.Samples {
		assert.InDelta(t, 0.2, s.Intensity, 1e-9)
	}
}

func TestGenerateUsesHotspotFile(t *testing.T) {
	cfgPath := writeConfig(t, "hotspot_files:", "  pollution: "+writeHotspotFile(t))
	out, err := execute(t, "generate", "--config", cfgPath, "--json",
		"--resolution", "2", "--north", "2", "--south", "0", "--east", "2", "--west", "0")
	require.NoError(t, err)

	var got generateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Samples, 9)
	assert.Equal(t, 1.0, got.Samples[4].Lat)
	assert.Equal(t, 1.0, got.Samples[4].Lon)
	assert.InDelta(t, 0.2+0.5, got.Samples[4].Intensity, 1e-9)
}

func TestMissingHotspotFileFailsEveryCommand(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.yaml")
	cfgPath := writeConfig(t, "hotspot_files:", "  pollution: "+missing)

	for _, args := range [][]string{
		{"generate"},
		{"watch"},
		{"bench", "-t", "within", "-n", "1"},
		{"hotspots", "save", "--out", filepath.Join(t.TempDir(), "h.gob")},
	} {
		_, err := execute(t, append(args, "--config", cfgPath)...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "layer pollution", "%v", args)
	}
}

func TestGenerateText(t *testing.T) {
	out, err := execute(t, "generate", "--config", writeConfig(t), "--resolution", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "25 samples")
	assert.Contains(t, out, "green")
}

func TestGenerateUnknownLayer(t *testing.T) {
	_, err := execute(t, "generate", "--config", writeConfig(t), "--layer", "noise")
	assert.Error(t, err)
}

// syncCounter is a zap sink that counts flushes.
type syncCounter struct {
	bytes.Buffer
	syncs atomic.Int32
}

func (s *syncCounter) Sync() error {
	s.syncs.Add(1)
	return nil
}

func TestRunSyncsLoggerWhenCommandFails(t *testing.T) {
	sink := &syncCounter{}
	orig := newLogger
	t.Cleanup(func() {
		newLogger = orig
		logger = zap.NewNop()
	})
	newLogger = func(logging.Config) (*zap.Logger, error) {
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return zap.New(zapcore.NewCore(enc, sink, zapcore.DebugLevel)), nil
	}

	resetFlags(rootCmd)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"generate", "--config", writeConfig(t), "--layer", "noise"})

	require.Error(t, run())
	assert.Equal(t, int32(1), sink.syncs.Load())
}

func TestHotspotsSaveAndShow(t *testing.T) {
	cfgPath := writeConfig(t)
	file := filepath.Join(t.TempDir(), "fire.gob")

	out, err := execute(t, "hotspots", "save", "--config", cfgPath, "--layer", "fire", "--out", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 3 fire hotspots")

	out, err = execute(t, "hotspots", "show", "--config", cfgPath, file)
	require.NoError(t, err)
	assert.Contains(t, out, "3 hotspots")
	assert.Contains(t, out, "Northern California")
}

func TestStationsInitAndNear(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "stations", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 10 stations, 10 in store")

	out, err = execute(t, "stations", "near", "--config", cfgPath, "--lat", "28.6139", "--lon", "77.2090")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "in-del-02"), "nearest first")

	out, err = execute(t, "stations", "near", "--config", cfgPath, "--lat=-60", "--lon=0")
	require.NoError(t, err)
	assert.Contains(t, out, "No stations within")
}

func TestWatchPrintsOneFrameWithoutTerminal(t *testing.T) {
	out, err := execute(t, "watch", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "generated 441")
	assert.NotContains(t, out, "Live data unavailable")
}

func TestBench(t *testing.T) {
	out, err := execute(t, "bench", "--config", writeConfig(t), "-t", "within", "-n", "20", "-w", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Operations: 20")
	assert.Contains(t, out, "Workers Used: 3")

	_, err = execute(t, "bench", "--config", writeConfig(t), "-t", "nearest")
	assert.Error(t, err)
}

func TestRunWorkers(t *testing.T) {
	res := runWorkers(50, 4, func(r *rand.Rand) int { return 2 })
	assert.Equal(t, 50, res.Total)
	assert.Equal(t, int64(100), res.TotalResults)
	assert.LessOrEqual(t, res.MinDuration, res.MaxDuration)
}

func TestRandomViewportIsValid(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		assert.NoError(t, randomViewport(r, 30).Validate())
	}
}

func TestRenderGridNorthUp(t *testing.T) {
	// Rows south to north: the hot sample is in the top (north) row.
	samples := []models.GridSample{
		{Intensity: 0.1}, {Intensity: 0.1},
		{Intensity: 1.0}, {Intensity: 0.5},
	}
	got := renderGrid(samples, false)
	assert.Equal(t, "@@::\n....\n", got)

	assert.Empty(t, renderGrid(samples[:3], false), "non-square input")
	assert.Empty(t, renderGrid(nil, false))
}
