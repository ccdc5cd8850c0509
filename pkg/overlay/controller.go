package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/rtree"
)

const defaultFetchTimeout = 5 * time.Second

// ErrStaleRefresh is returned when a newer refresh was applied first.
var ErrStaleRefresh = errors.New("refresh superseded by a newer one")

// Option configures a Controller.
type Option func(*Controller)

// WithLayer tags overlays with the layer name.
func WithLayer(layer grid.Layer) Option {
	return func(c *Controller) { c.layer = layer }
}

// WithLiveSource merges remote data into every overlay.
func WithLiveSource(src LiveSource) Option {
	return func(c *Controller) { c.source = src }
}

// WithRenderer is called with each overlay that becomes current.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithFetchTimeout bounds each remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) { c.fetchTimeout = d }
}

// WithResolution overrides the generator's resolution.
func WithResolution(res int) Option {
	return func(c *Controller) { c.resolution = res }
}

// Controller regenerates the overlay on viewport changes.
type Controller struct {
	gen          *grid.Generator
	layer        grid.Layer
	resolution   int
	source       LiveSource
	renderer     Renderer
	logger       *zap.Logger
	fetchTimeout time.Duration

	hotspots atomic.Pointer[rtree.HotspotIndex]
	issued   atomic.Uint64

	mu      sync.Mutex
	applied uint64
	current *Overlay

	inflight sync.WaitGroup
}

// NewController creates a controller around a generator and its hotspots.
func NewController(gen *grid.Generator, hotspots []models.Hotspot, opts ...Option) (*Controller, error) {
	c := &Controller{
		gen:          gen,
		layer:        grid.LayerPollution,
		resolution:   gen.Params().Resolution,
		logger:       zap.NewNop(),
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.SetHotspots(hotspots); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHotspots swaps in a new hotspot set for subsequent refreshes.
func (c *Controller) SetHotspots(hotspots []models.Hotspot) error {
	idx, err := rtree.NewHotspotIndex(hotspots)
	if err != nil {
		return fmt.Errorf("failed to index hotspots: %w", err)
	}
	c.hotspots.Store(idx)
	return nil
}

// Current returns the overlay last applied, or nil before the first refresh.
func (c *Controller) Current() *Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Refresh regenerates the overlay for vp. An invalid viewport returns an
// error wrapping models.ErrInvalidViewport and keeps the current overlay. A
// failed fetch degrades to the synthetic grid alone. If a later refresh has
// already been applied, the result is dropped and ErrStaleRefresh returned.
func (c *Controller) Refresh(ctx context.Context, vp models.Viewport) (*Overlay, error) {
	return c.refresh(ctx, c.issued.Add(1), vp)
}

func (c *Controller) refresh(ctx context.Context, seq uint64, vp models.Viewport) (*Overlay, error) {
	log := c.logger.With(zap.Uint64("seq", seq), zap.String("layer", string(c.layer)))

	generated, err := c.gen.GenerateIndexed(vp, c.hotspots.Load(), c.resolution)
	if err != nil {
		log.Warn("Skipping overlay refresh", zap.Error(err))
		return nil, err
	}

	live, degraded := c.fetch(ctx, vp, log)

	o := &Overlay{
		ID:             uuid.NewString(),
		Seq:            seq,
		Layer:          c.layer,
		Viewport:       vp,
		Samples:        Merge(live.Points, generated),
		Stations:       live.Stations,
		RemoteCount:    len(live.Points),
		GeneratedCount: len(generated),
		Degraded:       degraded,
		GeneratedAt:    time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.applied {
		log.Debug("Dropping stale overlay", zap.Uint64("applied", c.applied))
		return nil, ErrStaleRefresh
	}
	c.applied = seq
	c.current = o
	if c.renderer != nil {
		c.renderer(o)
	}
	log.Debug("Overlay applied",
		zap.Int("remote", o.RemoteCount),
		zap.Int("generated", o.GeneratedCount),
		zap.Bool("degraded", degraded))
	return o, nil
}

func (c *Controller) fetch(ctx context.Context, vp models.Viewport, log *zap.Logger) (*LiveData, bool) {
	if c.source == nil {
		return &LiveData{}, false
	}

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	live, err := c.source.Fetch(fctx, vp.Center())
	if err != nil {
		log.Warn("Live data fetch failed, rendering synthetic grid only", zap.Error(err))
		return &LiveData{}, true
	}
	if live == nil {
		return &LiveData{}, false
	}
	return live, false
}

// HandleViewportChange starts a refresh without waiting for it. The sequence
// number is taken before returning, so event order decides which result wins
// no matter how the fetches complete.
func (c *Controller) HandleViewportChange(ev ViewportEvent) {
	seq := c.issued.Add(1)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_, err := c.refresh(context.Background(), seq, ev.Viewport)
		if err != nil && !errors.Is(err, ErrStaleRefresh) && !errors.Is(err, models.ErrInvalidViewport) {
			c.logger.Error("Overlay refresh failed", zap.String("event", ev.Kind.String()), zap.Error(err))
		}
	}()
}

// Attach subscribes to src and performs the initial refresh synchronously.
// The returned function unsubscribes.
func (c *Controller) Attach(ctx context.Context, src ViewportSource) (func(), error) {
	cancel := src.OnViewportChange(c.HandleViewportChange)
	if _, err := c.Refresh(ctx, src.Viewport()); err != nil && !errors.Is(err, ErrStaleRefresh) {
		cancel()
		return nil, err
	}
	return cancel, nil
}

// Wait blocks until every refresh started by HandleViewportChange finishes.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
