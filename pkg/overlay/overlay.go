// Package overlay owns the current heat overlay and decides when it is
// regenerated. Every refresh fully replaces the overlay; results of refreshes
// that were overtaken by a newer one are dropped.
package overlay

import (
	"context"
	"time"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
)

// Overlay is one rendered layer: remote samples first, then generated ones.
type Overlay struct {
	ID             string              `json:"id"`
	Seq            uint64              `json:"seq"`
	Layer          grid.Layer          `json:"layer"`
	Viewport       models.Viewport     `json:"viewport"`
	Samples        []models.GridSample `json:"samples"`
	Stations       []models.Station    `json:"stations"`
	RemoteCount    int                 `json:"remote_count"`
	GeneratedCount int                 `json:"generated_count"`
	Degraded       bool                `json:"degraded"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// Generated returns the synthetic tail of the samples.
func (o *Overlay) Generated() []models.GridSample {
	return o.Samples[o.RemoteCount:]
}

// LiveData is what a remote source returns for one viewport.
type LiveData struct {
	Points   []models.LiveDataPoint
	Stations []models.Station
}

// LiveSource fetches live data around a location.
type LiveSource interface {
	Fetch(ctx context.Context, center models.Location) (*LiveData, error)
}

// Renderer receives each overlay that becomes current.
type Renderer func(*Overlay)

// Merge concatenates remote points and generated samples. There is no
// deduplication and no filtering: len(result) == len(remote)+len(generated).
func Merge(remote []models.LiveDataPoint, generated []models.GridSample) []models.GridSample {
	combined := make([]models.GridSample, 0, len(remote)+len(generated))
	for _, p := range remote {
		combined = append(combined, p.Sample())
	}
	return append(combined, generated...)
}
