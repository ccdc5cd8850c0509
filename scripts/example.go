package main

import (
	"context"
	"fmt"
	"log"

	"github.com/1F47E/earthgrid/pkg/colors"
	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/overlay"
	"github.com/1F47E/earthgrid/pkg/rtree"
)

func main() {
	hotspots := []models.Hotspot{
		{Name: "Delhi", Lat: 28.6139, Lon: 77.2090, Factor: 0.9},
		{Name: "Lahore", Lat: 31.5204, Lon: 74.3587, Factor: 0.7},
		{Name: "Dhaka", Lat: 23.8103, Lon: 90.4125, Factor: 0.8},
	}

	// Example 1: a single grid with reproducible noise
	fmt.Println("=== Pollution grid over northern India ===")
	gen, err := grid.NewGenerator(grid.DefaultParams(), grid.NewSeededNoise(42))
	if err != nil {
		log.Fatal(err)
	}

	vp := models.Viewport{North: 35, South: 20, East: 92, West: 70}
	samples, err := gen.Generate(vp, hotspots, 10)
	if err != nil {
		log.Fatal(err)
	}

	counts := make(map[colors.Bucket]int)
	for _, s := range samples {
		counts[colors.BucketFor(s.Intensity)]++
	}
	fmt.Printf("Generated %d samples\n", len(samples))
	for _, stop := range colors.Stops() {
		fmt.Printf("  - %-7s %3d\n", stop.Name, counts[stop.Bucket])
	}

	// Example 2: which hotspots influence a point
	fmt.Println("\n=== Hotspots within 5 degrees of Amritsar ===")
	index, err := rtree.NewHotspotIndex(hotspots)
	if err != nil {
		log.Fatal(err)
	}
	for _, i := range index.Within(31.634, 74.8723, grid.DefaultRadius) {
		h := index.At(i)
		fmt.Printf("  - %s: %.1f km away\n", h.Name, rtree.Distance(31.634, 74.8723, h.Lat, h.Lon))
	}

	// Example 3: the controller keeps the newest viewport's overlay
	fmt.Println("\n=== Overlay refresh on map moves ===")
	feed := overlay.NewFeed(vp)
	ctrl, err := overlay.NewController(gen, hotspots, overlay.WithRenderer(func(o *overlay.Overlay) {
		fmt.Printf("  rendered seq %d: %d samples, center %.2f,%.2f\n",
			o.Seq, len(o.Samples), o.Viewport.Center().Lat, o.Viewport.Center().Lon)
	}))
	if err != nil {
		log.Fatal(err)
	}

	cancel, err := ctrl.Attach(context.Background(), feed)
	if err != nil {
		log.Fatal(err)
	}
	defer cancel()

	feed.Publish(overlay.MoveEnd, vp.Pan(2, 2))
	feed.Publish(overlay.ZoomEnd, vp.Pan(2, 2).Zoom(0.5))
	ctrl.Wait()
	fmt.Printf("Current overlay: seq %d\n", ctrl.Current().Seq)

	// Example 4: persist the hotspot set
	fmt.Println("\n=== Saving Hotspots ===")
	if err := index.SaveToFile("hotspots.gob"); err != nil {
		log.Fatal(err)
	}
	loaded, err := rtree.LoadHotspots("hotspots.gob")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Reloaded %d hotspots from hotspots.gob\n", len(loaded))
}
