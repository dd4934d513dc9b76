package mentalmap

import "sort"

// Labels of the map questions asked by the drawing tool.
var questionLabels = map[string]string{
	"question_1759182137760": "Q1: Français standard",
	"question_1759182173682": "Q2: Français du Sud",
	"question_1759182174190": "Q3: Français le plus correct",
	"question_1759182174807": "Q4: Français le plus agréable",
	"question_1759182175101": "Q5: Français le plus sympathique",
	"question_1759182175387": "Q6: Français le plus joli",
	"question_1759182175638": "Q7: Français le plus laid",
	"question_1759182175890": "Q8: Français le plus compréhensible",
	"question_1759182176276": "Q9: Français sans accent",
}

// QuestionLabel returns the human label of a question id, or the id itself.
func QuestionLabel(id string) string {
	if l, ok := questionLabels[id]; ok {
		return l
	}
	return id
}

// ForParticipant returns the features drawn by one participant.
func ForParticipant(features []Feature, code string) []Feature {
	return filter(features, func(f Feature) bool { return f.ParticipantCode == code })
}

// ForQuestion returns the features answering one question. An empty id or
// "all" keeps every feature.
func ForQuestion(features []Feature, questionID string) []Feature {
	if questionID == "" || questionID == "all" {
		return features
	}
	return filter(features, func(f Feature) bool { return f.QuestionID == questionID })
}

func filter(features []Feature, keep func(Feature) bool) []Feature {
	out := make([]Feature, 0, len(features))
	for _, f := range features {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// QuestionIDs returns the distinct question ids in first-seen order.
func QuestionIDs(features []Feature) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, f := range features {
		if !seen[f.QuestionID] {
			seen[f.QuestionID] = true
			ids = append(ids, f.QuestionID)
		}
	}
	return ids
}

// ParticipantCount is the number of maps drawn by one participant.
type ParticipantCount struct {
	ParticipantCode string `json:"participant_code"`
	Count           int    `json:"count"`
}

// ParticipantCounts counts maps per participant, most active first. Ties
// keep first-seen order.
func ParticipantCounts(features []Feature) []ParticipantCount {
	index := make(map[string]int)
	var out []ParticipantCount
	for _, f := range features {
		i, ok := index[f.ParticipantCode]
		if !ok {
			i = len(out)
			index[f.ParticipantCode] = i
			out = append(out, ParticipantCount{ParticipantCode: f.ParticipantCode})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
