package raster

// MaxRadius is the largest supported smoothing radius.
const MaxRadius = 3

// ClampRadius limits r to [0, MaxRadius].
func ClampRadius(r int) int {
	if r < 0 {
		return 0
	}
	if r > MaxRadius {
		return MaxRadius
	}
	return r
}

// Smooth returns the (2r+1)x(2r+1) box mean of g with edges clamped to the
// nearest in-bounds cell. Radius 0 returns an identical copy.
func Smooth(g *Grid, radius int) *Grid {
	radius = ClampRadius(radius)
	if radius == 0 {
		return g.Clone()
	}
	tmp := make([]float64, len(g.Values))
	for r := 0; r < g.Height; r++ {
		smoothRow(g, tmp, r, radius)
	}
	out := g.Clone()
	for r := 0; r < g.Height; r++ {
		smoothColumn(g, tmp, out.Values, r, radius)
	}
	return out
}

// smoothRow writes the horizontal window sums of row r into tmp.
func smoothRow(g *Grid, tmp []float64, r, radius int) {
	base := r * g.Width
	for c := 0; c < g.Width; c++ {
		var sum float64
		for d := -radius; d <= radius; d++ {
			sum += g.Values[base+clamp(c+d, g.Width)]
		}
		tmp[base+c] = sum
	}
}

// smoothColumn writes the final means of row r from the horizontal sums.
func smoothColumn(g *Grid, tmp, out []float64, r, radius int) {
	side := float64(2*radius + 1)
	area := side * side
	for c := 0; c < g.Width; c++ {
		var sum float64
		for d := -radius; d <= radius; d++ {
			sum += tmp[clamp(r+d, g.Height)*g.Width+c]
		}
		out[r*g.Width+c] = sum / area
	}
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
