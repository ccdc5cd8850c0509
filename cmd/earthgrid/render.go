package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1F47E/earthgrid/pkg/colors"
	"github.com/1F47E/earthgrid/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	bucketStyles = func() map[colors.Bucket]lipgloss.Style {
		m := make(map[colors.Bucket]lipgloss.Style)
		for _, s := range colors.Stops() {
			m[s.Bucket] = lipgloss.NewStyle().Foreground(lipgloss.Color(s.Hex))
		}
		return m
	}()
)

// bucketGlyphs stand in for colour when output is not a terminal.
var bucketGlyphs = map[colors.Bucket]string{
	colors.Green:  "..",
	colors.Yellow: "::",
	colors.Orange: "oo",
	colors.Red:    "OO",
	colors.Purple: "@@",
}

// renderGrid draws a square grid of samples, north at the top. Samples are
// expected in generation order: rows south to north, columns west to east.
func renderGrid(samples []models.GridSample, color bool) string {
	side := int(math.Sqrt(float64(len(samples))))
	if side*side != len(samples) || side == 0 {
		return ""
	}

	var b strings.Builder
	for row := side - 1; row >= 0; row-- {
		for col := 0; col < side; col++ {
			bucket := colors.BucketFor(samples[row*side+col].Intensity)
			if color {
				b.WriteString(bucketStyles[bucket].Render("██"))
			} else {
				b.WriteString(bucketGlyphs[bucket])
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderLegend(color bool) string {
	parts := make([]string, 0, len(colors.Stops()))
	for _, s := range colors.Stops() {
		swatch := bucketGlyphs[s.Bucket]
		if color {
			swatch = bucketStyles[s.Bucket].Render("██")
		}
		parts = append(parts, fmt.Sprintf("%s %s≥%.1f", swatch, s.Name, s.Offset))
	}
	return strings.Join(parts, "  ")
}

func renderViewport(vp models.Viewport) string {
	return fmt.Sprintf("N %.2f  S %.2f  E %.2f  W %.2f", vp.North, vp.South, vp.East, vp.West)
}
