// CLAUDE:SUMMARY Staged, cancellable rasterization job: extent, per-polygon point-in-polygon counting, separable box smoothing, max.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

var (
	ErrInvalidCellSize = errors.New("raster: cell size must be positive and finite")
	ErrGridTooLarge    = errors.New("raster: grid exceeds cell limit")
)

// Stage is the position of a Job in its pipeline.
type Stage int

const (
	StageExtent Stage = iota
	StageRasterize
	StageSmoothRows
	StageSmoothColumns
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageExtent:
		return "extent"
	case StageRasterize:
		return "rasterize"
	case StageSmoothRows:
		return "smooth-rows"
	case StageSmoothColumns:
		return "smooth-columns"
	}
	return "done"
}

// Options tune a rasterization run.
type Options struct {
	CellSize     float64 // degrees
	Radius       int     // box smoothing radius, clamped to [0, MaxRadius]
	PolygonBatch int     // polygons handled per step
	RowBatch     int     // grid rows smoothed per step
	MaxCells     int     // 0 means unlimited

	// Progress, when set, is called after every step.
	Progress func(stage Stage, done, total int)
}

// DefaultOptions mirrors the interactive defaults of the heatmap view.
func DefaultOptions() Options {
	return Options{CellSize: 0.5, PolygonBatch: 64, RowBatch: 32, MaxCells: 4_000_000}
}

// Result is a finished grid and its intensity scale.
type Result struct {
	Grid *Grid   `json:"grid"`
	Max  float64 `json:"max"`
}

type ring struct {
	flat   []float64
	stride int
	box    *geom.Bounds
}

// Job rasterizes a fixed polygon set one bounded step at a time. A Job owns
// its grid until it finishes; it is not safe for concurrent use.
type Job struct {
	opts  Options
	rings []ring

	stage  Stage
	cursor int

	minLat, maxLat, minLon, maxLon float64
	seen                           bool

	grid   *Grid
	tmp    []float64
	result *Result
	err    error
}

// NewJob prepares a job over the outer rings of polys. Nil polygons and
// polygons without rings are skipped.
func NewJob(polys []*geom.Polygon, opts Options) (*Job, error) {
	if opts.CellSize <= 0 || math.IsNaN(opts.CellSize) || math.IsInf(opts.CellSize, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCellSize, opts.CellSize)
	}
	opts.Radius = ClampRadius(opts.Radius)
	if opts.PolygonBatch <= 0 {
		opts.PolygonBatch = 64
	}
	if opts.RowBatch <= 0 {
		opts.RowBatch = 32
	}

	j := &Job{
		opts:   opts,
		minLat: math.Inf(1), maxLat: math.Inf(-1),
		minLon: math.Inf(1), maxLon: math.Inf(-1),
	}
	for _, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}
		lr := p.LinearRing(0)
		if lr.NumCoords() == 0 {
			continue
		}
		j.rings = append(j.rings, ring{flat: lr.FlatCoords(), stride: lr.Stride(), box: lr.Bounds()})
	}
	return j, nil
}

// Stage returns the stage the next Step will work on.
func (j *Job) Stage() Stage { return j.stage }

// Done reports whether the job has finished, successfully or not.
func (j *Job) Done() bool { return j.stage == StageDone }

// Result returns the finished grid, or the error that stopped the job.
func (j *Job) Result() (*Result, error) {
	if j.err != nil {
		return nil, j.err
	}
	if j.stage != StageDone {
		return nil, errors.New("raster: job not finished")
	}
	return j.result, nil
}

// Step performs one bounded unit of work and reports whether the job is done.
func (j *Job) Step() bool {
	switch j.stage {
	case StageExtent:
		j.stepExtent()
	case StageRasterize:
		j.stepRasterize()
	case StageSmoothRows:
		j.stepSmoothRows()
	case StageSmoothColumns:
		j.stepSmoothColumns()
	}
	if j.opts.Progress != nil {
		done, total := j.progress()
		j.opts.Progress(j.stage, done, total)
	}
	return j.stage == StageDone
}

func (j *Job) progress() (int, int) {
	switch j.stage {
	case StageExtent, StageRasterize:
		return j.cursor, len(j.rings)
	case StageSmoothRows, StageSmoothColumns:
		return j.cursor, j.grid.Height
	}
	return 1, 1
}

func (j *Job) batch(n, size int) (int, int) {
	start := j.cursor
	end := start + size
	if end > n {
		end = n
	}
	j.cursor = end
	return start, end
}

func (j *Job) advance(s Stage) {
	j.stage = s
	j.cursor = 0
}

func (j *Job) stepExtent() {
	start, end := j.batch(len(j.rings), j.opts.PolygonBatch)
	for _, r := range j.rings[start:end] {
		j.minLon, j.maxLon = math.Min(j.minLon, r.box.Min(0)), math.Max(j.maxLon, r.box.Max(0))
		j.minLat, j.maxLat = math.Min(j.minLat, r.box.Min(1)), math.Max(j.maxLat, r.box.Max(1))
		j.seen = true
	}
	if end < len(j.rings) {
		return
	}
	j.allocate()
}

func (j *Job) allocate() {
	g := j.opts.CellSize
	if !j.seen {
		j.grid = newGrid(0, 0, 1, 1, g)
		j.finish()
		return
	}

	minLatIdx, maxLatIdx := int(math.Floor(j.minLat/g)), int(math.Ceil(j.maxLat/g))
	minLonIdx, maxLonIdx := int(math.Floor(j.minLon/g)), int(math.Ceil(j.maxLon/g))
	width := maxLonIdx - minLonIdx + 1
	height := maxLatIdx - minLatIdx + 1
	if j.opts.MaxCells > 0 && float64(width)*float64(height) > float64(j.opts.MaxCells) {
		j.fail(fmt.Errorf("%w: %dx%d cells at %v degrees (limit %d)", ErrGridTooLarge, width, height, g, j.opts.MaxCells))
		return
	}
	j.grid = newGrid(minLatIdx, minLonIdx, width, height, g)
	j.advance(StageRasterize)
}

// stepRasterize counts, for each polygon of the batch, the cells of its own
// bounding box whose lower-left corner lies inside it.
func (j *Job) stepRasterize() {
	start, end := j.batch(len(j.rings), j.opts.PolygonBatch)
	g := j.opts.CellSize
	for _, r := range j.rings[start:end] {
		minLon, minLat, maxLon, maxLat := r.box.Min(0), r.box.Min(1), r.box.Max(0), r.box.Max(1)
		for latIdx := int(math.Floor(minLat / g)); latIdx <= int(math.Ceil(maxLat/g)); latIdx++ {
			y := float64(latIdx) * g
			for lonIdx := int(math.Floor(minLon / g)); lonIdx <= int(math.Ceil(maxLon/g)); lonIdx++ {
				if !contains(r, float64(lonIdx)*g, y) {
					continue
				}
				if i, ok := j.grid.Index(latIdx, lonIdx); ok {
					j.grid.Values[i]++
				}
			}
		}
	}
	if end < len(j.rings) {
		return
	}
	if j.opts.Radius == 0 {
		j.finish()
		return
	}
	j.tmp = make([]float64, len(j.grid.Values))
	j.advance(StageSmoothRows)
}

func (j *Job) stepSmoothRows() {
	start, end := j.batch(j.grid.Height, j.opts.RowBatch)
	for r := start; r < end; r++ {
		smoothRow(j.grid, j.tmp, r, j.opts.Radius)
	}
	if end == j.grid.Height {
		j.advance(StageSmoothColumns)
	}
}

func (j *Job) stepSmoothColumns() {
	start, end := j.batch(j.grid.Height, j.opts.RowBatch)
	// Column sums only read tmp, so rows can be overwritten in place.
	for r := start; r < end; r++ {
		smoothColumn(j.grid, j.tmp, j.grid.Values, r, j.opts.Radius)
	}
	if end == j.grid.Height {
		j.tmp = nil
		j.finish()
	}
}

func (j *Job) finish() {
	j.result = &Result{Grid: j.grid, Max: MaxValue(j.grid)}
	j.advance(StageDone)
}

func (j *Job) fail(err error) {
	j.err = err
	j.grid, j.tmp = nil, nil
	j.advance(StageDone)
}

// contains is the even-odd ray casting test. Points on a lower or left edge
// count as inside, points on an upper or right edge as outside. go-geom/xy
// treats every boundary point as inside, which would count a shared edge
// twice.
func contains(r ring, x, y float64) bool {
	n := len(r.flat) / r.stride
	inside := false
	for i, k := 0, n-1; i < n; k, i = i, i+1 {
		xi, yi := r.flat[i*r.stride], r.flat[i*r.stride+1]
		xk, yk := r.flat[k*r.stride], r.flat[k*r.stride+1]
		if (yi > y) != (yk > y) && x < (xk-xi)*(y-yi)/(yk-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
