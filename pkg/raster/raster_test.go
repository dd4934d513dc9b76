package raster

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/twpayne/go-geom"
)

func square(t *testing.T, x0, y0, side float64) *geom.Polygon {
	t.Helper()
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{
		{x0, y0}, {x0 + side, y0}, {x0 + side, y0 + side}, {x0, y0 + side}, {x0, y0},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func rasterize(t *testing.T, polys []*geom.Polygon, opts Options) *Result {
	t.Helper()
	res, err := Rasterize(context.Background(), polys, opts)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	return res
}

func TestSquareCoversFourCells(t *testing.T) {
	for _, g := range []float64{1, 0.5, 0.25} {
		res := rasterize(t, []*geom.Polygon{square(t, 0, 0, 2*g)}, Options{CellSize: g})
		grid := res.Grid
		if grid.Width != 3 || grid.Height != 3 || grid.MinLatIndex != 0 || grid.MinLonIndex != 0 {
			t.Fatalf("g=%v: extent = %+v", g, grid)
		}
		var total float64
		for _, v := range grid.Values {
			total += v
		}
		if total != 4 {
			t.Errorf("g=%v: total = %v, want 4", g, total)
		}
		for lat := 0; lat <= 1; lat++ {
			for lon := 0; lon <= 1; lon++ {
				if got := grid.At(lat, lon); got != 1 {
					t.Errorf("g=%v: cell (%d,%d) = %v, want 1", g, lat, lon, got)
				}
			}
		}
		if res.Max != 1 {
			t.Errorf("g=%v: Max = %v, want 1", g, res.Max)
		}
	}
}

func TestOverlapIsAdditive(t *testing.T) {
	one := rasterize(t, []*geom.Polygon{square(t, 0, 0, 2)}, Options{CellSize: 1})
	var polys []*geom.Polygon
	for i := 0; i < 5; i++ {
		polys = append(polys, square(t, 0, 0, 2))
	}
	five := rasterize(t, polys, Options{CellSize: 1, PolygonBatch: 2})
	for i := range one.Grid.Values {
		if got, want := five.Grid.Values[i], 5*one.Grid.Values[i]; got != want {
			t.Errorf("cell %d = %v, want %v", i, got, want)
		}
	}
	if five.Max != 5 {
		t.Errorf("Max = %v, want 5", five.Max)
	}
}

func TestUnitSquaresHitOwnCorner(t *testing.T) {
	polys := []*geom.Polygon{square(t, 0, 0, 1), square(t, 2, 0, 1), square(t, 0, 2, 1)}
	res := rasterize(t, polys, Options{CellSize: 1})

	cells := res.Grid.Cells()
	if len(cells) != 3 {
		t.Fatalf("cells = %+v, want 3", cells)
	}
	want := map[[2]int]bool{{0, 0}: true, {0, 2}: true, {2, 0}: true}
	for _, c := range cells {
		if !want[[2]int{c.LatIndex, c.LonIndex}] || c.Value != 1 {
			t.Errorf("unexpected cell %+v", c)
		}
	}
}

func TestSharedEdgeCountedOnce(t *testing.T) {
	res := rasterize(t, []*geom.Polygon{square(t, 0, 0, 1), square(t, 1, 0, 1)}, Options{CellSize: 1})
	for lon := 0; lon <= 1; lon++ {
		if got := res.Grid.At(0, lon); got != 1 {
			t.Errorf("cell (0,%d) = %v, want 1", lon, got)
		}
	}
	if got := res.Grid.At(0, 2); got != 0 {
		t.Errorf("cell (0,2) = %v, want 0", got)
	}
	if res.Max != 1 {
		t.Errorf("Max = %v, want 1", res.Max)
	}
}

func TestRingBounds(t *testing.T) {
	tri, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{{{-1.5, 2}, {3, -0.5}, {0.25, 4}, {-1.5, 2}}})
	if err != nil {
		t.Fatal(err)
	}
	job, err := NewJob([]*geom.Polygon{tri}, Options{CellSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	b := job.rings[0].box
	if b.Min(0) != -1.5 || b.Min(1) != -0.5 || b.Max(0) != 3 || b.Max(1) != 4 {
		t.Errorf("box = %v", b)
	}
	res, err := Drive(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if g := res.Grid; g.MinLonIndex != -2 || g.MinLatIndex != -1 || g.Width != 6 || g.Height != 6 {
		t.Errorf("extent = %+v", g)
	}
}

func TestNegativeCoordinates(t *testing.T) {
	res := rasterize(t, []*geom.Polygon{square(t, -3, -2, 2)}, Options{CellSize: 1})
	g := res.Grid
	if g.MinLatIndex != -2 || g.MinLonIndex != -3 || g.Width != 3 || g.Height != 3 {
		t.Fatalf("extent = %+v", g)
	}
	if got := g.At(-2, -3); got != 1 {
		t.Errorf("At(-2,-3) = %v, want 1", got)
	}
	if got := g.At(0, -1); got != 0 {
		t.Errorf("At(0,-1) = %v, want 0", got)
	}
}

func TestEmptyInput(t *testing.T) {
	res := rasterize(t, nil, DefaultOptions())
	if res.Grid.Width != 1 || res.Grid.Height != 1 || res.Grid.Values[0] != 0 {
		t.Errorf("grid = %+v, want 1x1 zero", res.Grid)
	}
	if res.Max != 1 {
		t.Errorf("Max = %v, want 1", res.Max)
	}
	if cells := res.Grid.Cells(); len(cells) != 0 {
		t.Errorf("cells = %v", cells)
	}
}

func TestInvalidCellSize(t *testing.T) {
	for _, g := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewJob(nil, Options{CellSize: g}); !errors.Is(err, ErrInvalidCellSize) {
			t.Errorf("g=%v: err = %v, want ErrInvalidCellSize", g, err)
		}
	}
}

func TestGridTooLarge(t *testing.T) {
	_, err := Rasterize(context.Background(), []*geom.Polygon{square(t, 0, 0, 2)}, Options{CellSize: 1, MaxCells: 4})
	if !errors.Is(err, ErrGridTooLarge) {
		t.Fatalf("err = %v, want ErrGridTooLarge", err)
	}
}

func TestSmoothZeroIsIdentity(t *testing.T) {
	res := rasterize(t, []*geom.Polygon{square(t, 0, 0, 2), square(t, 1, 1, 3)}, Options{CellSize: 1})
	if !Smooth(res.Grid, 0).Equal(res.Grid) {
		t.Error("Smooth(g, 0) differs from g")
	}
	if !Smooth(res.Grid, -4).Equal(res.Grid) {
		t.Error("negative radius should clamp to 0")
	}
}

func TestSmoothSpreadsEvenly(t *testing.T) {
	g := newGrid(0, 0, 3, 3, 1)
	g.Values[4] = 1
	out := Smooth(g, 1)
	for i, v := range out.Values {
		if math.Abs(v-1.0/9) > 1e-12 {
			t.Errorf("cell %d = %v, want 1/9", i, v)
		}
	}
	if g.Values[0] != 0 {
		t.Error("Smooth modified its input")
	}
}

func TestStagedSmoothingMatchesSmooth(t *testing.T) {
	polys := []*geom.Polygon{square(t, 0, 0, 2), square(t, 1, 0, 3), square(t, -1, 2, 2)}
	plain := rasterize(t, polys, Options{CellSize: 0.5})

	for _, r := range []int{1, 2, 3, 9} {
		staged := rasterize(t, polys, Options{CellSize: 0.5, Radius: r, PolygonBatch: 1, RowBatch: 1})
		want := Smooth(plain.Grid, r)
		if !staged.Grid.Equal(want) {
			t.Errorf("radius %d: staged grid differs from Smooth", r)
		}
		if staged.Max != MaxValue(want) {
			t.Errorf("radius %d: Max = %v, want %v", r, staged.Max, MaxValue(want))
		}
	}
}

func TestStages(t *testing.T) {
	var seen []Stage
	opts := Options{CellSize: 1, Radius: 1, RowBatch: 100, Progress: func(s Stage, done, total int) {
		seen = append(seen, s)
	}}
	job, err := NewJob([]*geom.Polygon{square(t, 0, 0, 2)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	steps := 0
	for !job.Step() {
		steps++
	}
	want := []Stage{StageRasterize, StageSmoothRows, StageSmoothColumns, StageDone}
	if len(seen) != len(want) {
		t.Fatalf("stages = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("stage %d = %v, want %v", i, seen[i], want[i])
		}
	}
	if _, err := job.Result(); err != nil {
		t.Errorf("Result: %v", err)
	}
}

func TestDriveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Rasterize(ctx, []*geom.Polygon{square(t, 0, 0, 2)}, Options{CellSize: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunnerSupersedes(t *testing.T) {
	var r Runner
	started := make(chan struct{})
	release := make(chan struct{})
	first := true

	slow, err := NewJob([]*geom.Polygon{square(t, 0, 0, 2)}, Options{CellSize: 1, Progress: func(Stage, int, int) {
		if first {
			first = false
			close(started)
			<-release
		}
	}})
	if err != nil {
		t.Fatal(err)
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome)
	go func() {
		res, err := r.Run(context.Background(), slow)
		done <- outcome{res, err}
	}()
	<-started

	fast, _ := NewJob([]*geom.Polygon{square(t, 0, 0, 1)}, Options{CellSize: 1})
	latest, err := r.Run(context.Background(), fast)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	close(release)

	got := <-done
	if !errors.Is(got.err, ErrSuperseded) || got.res != nil {
		t.Errorf("first run = %v, %v; want ErrSuperseded", got.res, got.err)
	}
	if r.Current() != latest {
		t.Error("Current is not the latest result")
	}
	if r.Generation() != 2 {
		t.Errorf("Generation = %d, want 2", r.Generation())
	}
}

func TestHeatBucket(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0}, {0.19, 0}, {0.2, 1}, {0.39, 1}, {0.4, 2}, {0.6, 3}, {0.79, 3}, {0.8, 4}, {1, 4},
	}
	for _, tt := range tests {
		if got := HeatBucket(tt.in); got != tt.want {
			t.Errorf("HeatBucket(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if HeatColor(1) != "#ef4444" || HeatColor(0) != "#3b82f6" {
		t.Error("HeatColor endpoints")
	}
}
