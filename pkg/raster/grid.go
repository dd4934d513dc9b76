// CLAUDE:SUMMARY Dense lat/lon overlap grid keyed by integer cell indices, with cell listing and intensity buckets.
package raster

import "math"

// Grid is a dense row-major array of cell values. Cell (latIdx, lonIdx)
// covers [lonIdx*CellSize, (lonIdx+1)*CellSize) x [latIdx*CellSize, ...)
// and is stored at (latIdx-MinLatIndex)*Width + (lonIdx-MinLonIndex).
type Grid struct {
	Values      []float64 `json:"values"`
	MinLatIndex int       `json:"min_lat_index"`
	MinLonIndex int       `json:"min_lon_index"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CellSize    float64   `json:"cell_size"`
}

func newGrid(minLat, minLon, width, height int, cellSize float64) *Grid {
	return &Grid{
		Values:      make([]float64, width*height),
		MinLatIndex: minLat,
		MinLonIndex: minLon,
		Width:       width,
		Height:      height,
		CellSize:    cellSize,
	}
}

// Index returns the array offset of a cell, or false when it lies outside.
func (g *Grid) Index(latIdx, lonIdx int) (int, bool) {
	r, c := latIdx-g.MinLatIndex, lonIdx-g.MinLonIndex
	if r < 0 || r >= g.Height || c < 0 || c >= g.Width {
		return 0, false
	}
	return r*g.Width + c, true
}

// At returns the value of a cell; cells outside the grid are 0.
func (g *Grid) At(latIdx, lonIdx int) float64 {
	if i, ok := g.Index(latIdx, lonIdx); ok {
		return g.Values[i]
	}
	return 0
}

func (g *Grid) Clone() *Grid {
	c := *g
	c.Values = append([]float64(nil), g.Values...)
	return &c
}

// Equal reports whether both grids have the same extent and values.
func (g *Grid) Equal(o *Grid) bool {
	if g.MinLatIndex != o.MinLatIndex || g.MinLonIndex != o.MinLonIndex ||
		g.Width != o.Width || g.Height != o.Height || g.CellSize != o.CellSize ||
		len(g.Values) != len(o.Values) {
		return false
	}
	for i := range g.Values {
		if g.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// MaxValue returns the largest cell value, never less than 1.
func MaxValue(g *Grid) float64 {
	m := 1.0
	for _, v := range g.Values {
		m = math.Max(m, v)
	}
	return m
}

// Cell is a non-empty grid cell positioned by its lower-left corner.
type Cell struct {
	LatIndex  int     `json:"lat_index"`
	LonIndex  int     `json:"lon_index"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lng"`
	Value     float64 `json:"value"`
	Intensity float64 `json:"intensity"`
	Bucket    int     `json:"bucket"`
}

// Cells lists the non-zero cells in row-major order with their intensity
// relative to MaxValue.
func (g *Grid) Cells() []Cell {
	peak := MaxValue(g)
	var out []Cell
	for r := 0; r < g.Height; r++ {
		for c := 0; c < g.Width; c++ {
			v := g.Values[r*g.Width+c]
			if v == 0 {
				continue
			}
			latIdx, lonIdx := g.MinLatIndex+r, g.MinLonIndex+c
			intensity := v / peak
			out = append(out, Cell{
				LatIndex:  latIdx,
				LonIndex:  lonIdx,
				Lat:       float64(latIdx) * g.CellSize,
				Lon:       float64(lonIdx) * g.CellSize,
				Value:     v,
				Intensity: intensity,
				Bucket:    HeatBucket(intensity),
			})
		}
	}
	return out
}

var heatColors = [...]string{"#3b82f6", "#22c55e", "#eab308", "#f97316", "#ef4444"}

// HeatBucket maps an intensity in [0,1] to one of five steps, 0 (low) to 4.
func HeatBucket(intensity float64) int {
	switch {
	case intensity < 0.2:
		return 0
	case intensity < 0.4:
		return 1
	case intensity < 0.6:
		return 2
	case intensity < 0.8:
		return 3
	}
	return 4
}

// HeatColor returns the display colour of an intensity (blue to red).
func HeatColor(intensity float64) string {
	return heatColors[HeatBucket(intensity)]
}
