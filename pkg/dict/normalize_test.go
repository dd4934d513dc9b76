package dict

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"D'après vous, d'où vient-il ?", "dapres vous, dou vient il ?"},
		{"Québécois", "quebecois"},
		{"  Sud   de la  France ", "sud de la france"},
		{"Ch’ti", "chti"},
		{"Île-du-Prince-Édouard", "ile du prince edouard"},
		{"FRANÇOIS", "francois"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, input := range []string{
		"D'après vous, d'où vient-il ?",
		"Dans quelle mesure trouvez-vous cet accent sympathique ?",
		"Nouveau-Brunswick",
		"—",
	} {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestFoldASCII(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Québécois-Acadien", "quebecois-acadien"},
		{"C'est ÇA", "c'est ca"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FoldASCII(tt.input); got != tt.want {
			t.Errorf("FoldASCII(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
