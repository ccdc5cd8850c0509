// Package server exposes the generator over HTTP: the /pollution live-data
// endpoint consumed by remote clients and an /overlay endpoint that returns
// colour-bucketed samples for a viewport.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/colors"
	"github.com/1F47E/earthgrid/pkg/config"
	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/remote"
	"github.com/1F47E/earthgrid/pkg/stations"
)

// MaxOverlayResolution caps the resolution a client may request from
// /overlay. 200 steps is 40401 samples per response.
const MaxOverlayResolution = 200

// ColoredSample is a grid sample with its gradient bucket.
type ColoredSample struct {
	models.GridSample
	Color string `json:"color"`
}

// OverlayResponse is the payload of GET /overlay.
type OverlayResponse struct {
	Layer    grid.Layer        `json:"layer"`
	Viewport models.Viewport   `json:"viewport"`
	Samples  []ColoredSample   `json:"samples"`
	Gradient map[string]string `json:"gradient"`
}

// Server holds one generator per layer plus the station store.
type Server struct {
	cfg        *config.Config
	store      stations.Store
	logger     *zap.Logger
	generators map[grid.Layer]*grid.Generator

	mu       sync.RWMutex
	hotspots map[grid.Layer][]models.Hotspot
}

// New builds generators for every known layer.
func New(cfg *config.Config, store stations.Store, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		generators: make(map[grid.Layer]*grid.Generator),
		hotspots:   make(map[grid.Layer][]models.Hotspot),
	}
	for _, layer := range grid.Layers() {
		gen, err := cfg.NewGenerator(layer)
		if err != nil {
			return nil, err
		}
		s.generators[layer] = gen
		s.hotspots[layer] = cfg.Hotspots[layer]
	}
	return s, nil
}

// SetHotspots replaces a layer's hotspots for subsequent requests.
func (s *Server) SetHotspots(layer grid.Layer, hotspots []models.Hotspot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hotspots[layer] = hotspots
}

func (s *Server) layerHotspots(layer grid.Layer) []models.Hotspot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hotspots[layer]
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/layers", s.handleLayers)
	r.GET("/pollution", s.handlePollution)
	r.GET("/overlay", s.handleOverlay)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	}
}

func (s *Server) handleLayers(c *gin.Context) {
	out := make(map[grid.Layer]grid.Params, len(s.generators))
	for layer, gen := range s.generators {
		out[layer] = gen.Params()
	}
	c.JSON(http.StatusOK, gin.H{"layers": out, "gradient": colors.HeatGradient()})
}

// handlePollution handles GET /pollution?lat=&lon=[&layer=][&span=]
func (s *Server) handlePollution(c *gin.Context) {
	lat, err := floatQuery(c, "lat")
	if err != nil {
		badRequest(c, err)
		return
	}
	lon, err := floatQuery(c, "lon")
	if err != nil {
		badRequest(c, err)
		return
	}
	span := s.cfg.Server.Span
	if c.Query("span") != "" {
		if span, err = floatQuery(c, "span"); err != nil {
			badRequest(c, err)
			return
		}
	}

	gen, layer, ok := s.generator(c)
	if !ok {
		return
	}

	center := models.Location{Lat: lat, Lon: lon}
	vp := models.ViewportAround(center, span)
	samples, err := gen.Generate(vp, s.layerHotspots(layer), gen.Params().Resolution)
	if err != nil {
		badRequest(c, err)
		return
	}

	points := make([]models.LiveDataPoint, len(samples))
	for i, sm := range samples {
		points[i] = models.LiveDataPoint{Lat: sm.Lat, Lon: sm.Lon, Intensity: sm.Intensity}
	}

	nearby := []models.Station{}
	if s.store != nil {
		found, err := s.store.Nearby(c.Request.Context(), center, s.cfg.Stations.RadiusKm, s.cfg.Stations.Limit)
		if err != nil {
			// Stations are decoration; the grid is still useful without them.
			s.logger.Warn("Station lookup failed", zap.Error(err))
		} else if found != nil {
			nearby = found
		}
	}

	c.JSON(http.StatusOK, remote.PollutionResponse{
		PollutionGrid:      points,
		MonitoringStations: nearby,
	})
}

// handleOverlay handles GET /overlay?north=&south=&east=&west=[&layer=][&resolution=]
func (s *Server) handleOverlay(c *gin.Context) {
	var vp models.Viewport
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"north", &vp.North}, {"south", &vp.South}, {"east", &vp.East}, {"west", &vp.West},
	} {
		v, err := floatQuery(c, f.name)
		if err != nil {
			badRequest(c, err)
			return
		}
		*f.dst = v
	}

	gen, layer, ok := s.generator(c)
	if !ok {
		return
	}

	resolution := gen.Params().Resolution
	if raw := c.Query("resolution"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid resolution %q", raw))
			return
		}
		if v > MaxOverlayResolution {
			badRequest(c, fmt.Errorf("resolution %d exceeds %d", v, MaxOverlayResolution))
			return
		}
		resolution = v
	}

	samples, err := gen.Generate(vp, s.layerHotspots(layer), resolution)
	if err != nil {
		badRequest(c, err)
		return
	}

	colored := make([]ColoredSample, len(samples))
	for i, sm := range samples {
		colored[i] = ColoredSample{GridSample: sm, Color: colors.BucketFor(sm.Intensity).String()}
	}

	c.JSON(http.StatusOK, OverlayResponse{
		Layer:    layer,
		Viewport: vp,
		Samples:  colored,
		Gradient: colors.HeatGradient(),
	})
}

func (s *Server) generator(c *gin.Context) (*grid.Generator, grid.Layer, bool) {
	layer := grid.Layer(c.DefaultQuery("layer", string(grid.LayerPollution)))
	gen, ok := s.generators[layer]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown layer %q", layer)})
		return nil, "", false
	}
	return gen, layer, true
}

func floatQuery(c *gin.Context, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return v, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
