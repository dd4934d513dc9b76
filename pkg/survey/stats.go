package survey

import "sort"

// Stats summarizes a participant's stimulus ratings.
type Stats struct {
	Rated                     int     `json:"rated"`
	AverageSympathy           float64 `json:"average_sympathy"`
	AverageCorrectness        float64 `json:"average_correctness"`
	AverageTeacherSuitability float64 `json:"average_teacher_suitability"`
	MostAppreciatedAccent     string  `json:"most_appreciated_accent"`
	LeastAppreciatedAccent    string  `json:"least_appreciated_accent"`
}

// ComputeStats averages ratings over the stimuli that received a sympathy
// rating. Within those, each average skips its own unrated cells. Unrated
// values are never counted as zero.
func ComputeStats(rec ParticipantRecord) Stats {
	var rated []StimulusRating
	for _, s := range rec.StimulusRatings {
		if s.Sympathy.IsRated() {
			rated = append(rated, s)
		}
	}
	if len(rated) == 0 {
		return Stats{}
	}

	st := Stats{
		Rated:                     len(rated),
		AverageSympathy:           mean(rated, func(s StimulusRating) Likert { return s.Sympathy }),
		AverageCorrectness:        mean(rated, func(s StimulusRating) Likert { return s.Correctness }),
		AverageTeacherSuitability: mean(rated, func(s StimulusRating) Likert { return s.TeacherSuitability }),
	}

	sorted := append([]StimulusRating(nil), rated...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sympathy.Float() > sorted[j].Sympathy.Float()
	})
	st.MostAppreciatedAccent = sorted[0].Origin
	st.LeastAppreciatedAccent = sorted[len(sorted)-1].Origin
	return st
}

func mean(ratings []StimulusRating, field func(StimulusRating) Likert) float64 {
	var sum float64
	var n int
	for _, r := range ratings {
		if v, ok := field(r).Value(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
