// CLAUDE:SUMMARY Per-question polygon statistics: counts, unique participants, mean area, vertex-mean centres and true centroids.
package mentalmap

import (
	"github.com/peterstace/simplefeatures/geom"
)

// Point is a [lon, lat] position.
type Point struct {
	Lon float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// QuestionStat aggregates the maps drawn for one question.
type QuestionStat struct {
	QuestionID         string  `json:"question_id"`
	Label              string  `json:"label"`
	Count              int     `json:"count"`
	UniqueParticipants int     `json:"unique_participants"`
	AverageArea        float64 `json:"average_area"`
	Centers            []Point `json:"centers"`
	Centroids          []Point `json:"centroids"`
}

// QuestionStats computes statistics per question in first-seen order. Area
// is the planar shoelace area of the outer ring in squared degrees.
func QuestionStats(features []Feature) []QuestionStat {
	index := make(map[string]int)
	participants := make(map[string]map[string]bool)
	var out []QuestionStat

	for _, f := range features {
		i, ok := index[f.QuestionID]
		if !ok {
			i = len(out)
			index[f.QuestionID] = i
			participants[f.QuestionID] = make(map[string]bool)
			out = append(out, QuestionStat{QuestionID: f.QuestionID, Label: QuestionLabel(f.QuestionID)})
		}
		st := &out[i]
		st.Count++
		participants[f.QuestionID][f.ParticipantCode] = true
		if f.Polygon != nil {
			st.AverageArea += f.Polygon.Area()
		}
		ring := f.Ring()
		if len(ring) == 0 {
			continue
		}
		center := VertexMean(ring)
		st.Centers = append(st.Centers, center)
		if c, ok := Centroid(ring); ok {
			st.Centroids = append(st.Centroids, c)
		} else {
			st.Centroids = append(st.Centroids, center)
		}
	}

	for i := range out {
		out[i].AverageArea /= float64(out[i].Count)
		out[i].UniqueParticipants = len(participants[out[i].QuestionID])
	}
	return out
}

// VertexMean averages the ring's vertices (closing vertex included).
func VertexMean(ring [][2]float64) Point {
	var p Point
	if len(ring) == 0 {
		return p
	}
	for _, c := range ring {
		p.Lon += c[0]
		p.Lat += c[1]
	}
	p.Lon /= float64(len(ring))
	p.Lat /= float64(len(ring))
	return p
}

// Centroid returns the area-weighted centroid of the ring.
func Centroid(ring [][2]float64) (Point, bool) {
	if len(ring) < 3 {
		return Point{}, false
	}
	flat := make([]float64, 0, 2*(len(ring)+1))
	for _, c := range ring {
		flat = append(flat, c[0], c[1])
	}
	if first, last := ring[0], ring[len(ring)-1]; first != last {
		flat = append(flat, first[0], first[1])
	}
	ls := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ls})
	xy, ok := poly.Centroid().XY()
	if !ok {
		return Point{}, false
	}
	return Point{Lon: xy.X, Lat: xy.Y}, true
}
