package survey

import (
	"fmt"
	"testing"
)

const (
	originQ   = "D'après vous, d'où vient ce locuteur ou cette locutrice ?"
	originQ12 = "D'après vous, d'où viennent ces locuteurs ou ces locutrices ?"
	sympathyQ = "[Dans quelle mesure estimez-vous le langage de cette personne sympathique ?]"
	correctQ  = "[Dans quelle mesure estimez-vous le langage de cette personne correct ?]"
	teacherQ  = "[Dans quelle mesure cette personne conviendrait-elle pour occuper un poste de professeur de français ?]"
)

// stimulusRow builds k well-formed blocks separated by noise columns.
// Exported sheets repeat header names, so each block carries a suffix.
func stimulusRow(k, noise int) *Row {
	r := NewRow()
	addNoise := func(tag string) {
		for n := 0; n < noise; n++ {
			r.Set(fmt.Sprintf("Question annexe %s-%d", tag, n), StringValue("bruit"))
		}
	}
	addNoise("start")
	for i := 1; i <= k; i++ {
		q := originQ
		if i <= 2 {
			q = originQ12
		}
		r.Set(fmt.Sprintf("%s_%d", q, i), StringValue(fmt.Sprintf("origine %d", i)))
		addNoise(fmt.Sprintf("a%d", i))
		r.Set(fmt.Sprintf("%s_%d", sympathyQ, i), NumberValue(float64(i%5+1)))
		r.Set(fmt.Sprintf("%s_%d", correctQ, i), StringValue("un peu"))
		addNoise(fmt.Sprintf("b%d", i))
		r.Set(fmt.Sprintf("%s_%d", teacherQ, i), StringValue("pas trop"))
	}
	addNoise("end")
	return r
}

func TestStimulusBlockCount(t *testing.T) {
	for k := 0; k <= MaxStimuli; k++ {
		for _, noise := range []int{0, 1, 4} {
			blocks := NewMatcher(stimulusRow(k, noise)).StimulusBlocks()
			if len(blocks) != k {
				t.Errorf("k=%d noise=%d: got %d blocks", k, noise, len(blocks))
				continue
			}
			for i, b := range blocks {
				if b.Number != i+1 {
					t.Errorf("block %d Number = %d", i, b.Number)
				}
				if want := fmt.Sprintf("origine %d", i+1); b.Origin.String() != want {
					t.Errorf("block %d Origin = %q, want %q", i, b.Origin.String(), want)
				}
				if b.Sympathy.IsAbsent() || b.Correctness.IsAbsent() || b.Teacher.IsAbsent() {
					t.Errorf("k=%d noise=%d: block %d missing a rating: %+v", k, noise, i, b)
				}
			}
		}
	}
}

func TestStimulusBlocksCapped(t *testing.T) {
	blocks := NewMatcher(stimulusRow(9, 1)).StimulusBlocks()
	if len(blocks) != MaxStimuli {
		t.Errorf("got %d blocks, want %d", len(blocks), MaxStimuli)
	}
}

func TestStimulusBlockStopsAtNextOrigin(t *testing.T) {
	row := RowOf(
		originQ+"_1", "Marseille",
		sympathyQ+"_1", "un peu",
		originQ+"_2", "Québec",
		teacherQ+"_2", "absolument",
		correctQ+"_2", 2,
		sympathyQ+"_2", "3",
	)
	blocks := NewMatcher(row).StimulusBlocks()
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if !blocks[0].Correctness.IsAbsent() || !blocks[0].Teacher.IsAbsent() {
		t.Errorf("block 1 should not borrow ratings from block 2: %+v", blocks[0])
	}
	if blocks[1].Teacher.String() != "absolument" || blocks[1].Sympathy.String() != "3" {
		t.Errorf("block 2 = %+v", blocks[1])
	}
}

func TestFindByIncludes(t *testing.T) {
	row := RowOf(
		"Veuillez indiquer votre âge", "29 ans",
		"Aimez-vous l'accent du Midi ?", "un peu",
	)
	m := NewMatcher(row)

	v, ok := m.FindByIncludes("aimez-vous l'accent")
	if !ok || v.String() != "un peu" {
		t.Errorf("FindByIncludes = %q, %v", v.String(), ok)
	}
	v, ok = m.FindByIncludes("votre age")
	if !ok || v.String() != "29 ans" {
		t.Errorf("FindByIncludes age = %q, %v", v.String(), ok)
	}
	if _, ok := m.FindByIncludes("inexistant"); ok {
		t.Error("expected not found")
	}
}

func TestPredicates(t *testing.T) {
	p := AllOf(ContainsAny("paris", "lyon"), Not(Contains("banlieue")))
	tests := []struct {
		name string
		want bool
	}{
		{"accent de Paris", true},
		{"accent lyonnais", true},
		{"banlieue parisienne", false},
		{"accent du Midi", false},
	}
	for _, tt := range tests {
		if got := p(normalizeAll([]string{tt.name})[0]); got != tt.want {
			t.Errorf("predicate(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !HasPrefix("Lequel des accents")("lequel des accents suivants") {
		t.Error("HasPrefix should match")
	}
}

func TestColumnLabel(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"Quelle est votre langue ? [français]", "français"},
		{"Où ? [Montréal] ", "Montréal"},
		{"Sans crochets", ""},
	}
	for _, tt := range tests {
		if got := (Column{Name: tt.name}).Label(); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
