package domain

import "testing"

func TestParseMetric(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "thousands suffix", input: "1.2K", want: 1200},
		{name: "millions suffix", input: "15M", want: 15000000},
		{name: "billions suffix", input: "3B", want: 3000000000},
		{name: "lowercase suffix", input: "4.5k", want: 4500},
		{name: "comma grouping", input: "1,234", want: 1234},
		{name: "plain number", input: "42", want: 42},
		{name: "trailing words", input: "3.4K likes", want: 3400},
		{name: "surrounding spaces", input: "  7 ", want: 7},
		{name: "suffix after space", input: "2 M", want: 2000000},
		{name: "empty", input: "", want: 0},
		{name: "letters only", input: "abc", want: 0},
		{name: "leading label", input: "Like", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMetric(tt.input); got != tt.want {
				t.Errorf("ParseMetric(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
