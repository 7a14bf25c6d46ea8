package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"trims", "  Caneca  ", 0, "Caneca"},
		{"folds inner whitespace", "Praça \t da\n Sé", 0, "Praça da Sé"},
		{"drops control chars", "São\x00Paulo\x07", 0, "São Paulo"},
		{"cuts by rune", "Açaí orgânico", 4, "Açaí"},
		{"no trailing space after cut", "Pão de queijo", 4, "Pão"},
		{"short input untouched", "SP", 2, "SP"},
		{"empty", "   ", 10, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.in, tc.maxLen); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
			}
		})
	}
}
