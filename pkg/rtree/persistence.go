package rtree

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1F47E/earthgrid/pkg/models"
)

// IndexData represents the serializable form of the hotspot index
type IndexData struct {
	Hotspots []models.Hotspot `json:"hotspots"`
	Count    int64            `json:"count"`
}

// hotspotFile is the YAML layout of a hand-written hotspot list
type hotspotFile struct {
	Hotspots []models.Hotspot `yaml:"hotspots"`
}

// SaveToFile saves the index to a binary file
func (h *HotspotIndex) SaveToFile(filename string) error {
	data := IndexData{
		Hotspots: h.Hotspots(),
		Count:    h.Count(),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return nil
}

// LoadFromFile loads the index from a binary file, replacing its contents
func (h *HotspotIndex) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data IndexData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	h.Clear()
	if err := h.IndexHotspots(data.Hotspots); err != nil {
		return fmt.Errorf("failed to index hotspots: %w", err)
	}

	return nil
}

// LoadHotspotsYAML reads a `hotspots:` list from a YAML file
func LoadHotspotsYAML(filename string) ([]models.Hotspot, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read hotspots: %w", err)
	}

	var f hotspotFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse hotspots: %w", err)
	}
	for _, hs := range f.Hotspots {
		if err := hs.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Hotspots, nil
}

// LoadHotspots reads hotspots from a gob index or a YAML list, chosen by extension
func LoadHotspots(filename string) ([]models.Hotspot, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadHotspotsYAML(filename)
	default:
		idx, err := NewHotspotIndex(nil)
		if err != nil {
			return nil, err
		}
		if err := idx.LoadFromFile(filename); err != nil {
			return nil, err
		}
		return idx.Hotspots(), nil
	}
}
