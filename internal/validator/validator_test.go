package validator

import "testing"

func TestThreshold(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 1},
		{4, 2},
		{5, 2},
		{10, 2},
	}

	for _, tt := range tests {
		if got := Threshold(tt.n); got != tt.want {
			t.Errorf("Threshold(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestKeywordValidator_Score(t *testing.T) {
	v := NewKeywordValidator()
	fivePhrases := []string{"i am", "my name", "i live", "i like", "years old"}

	tests := []struct {
		name     string
		answer   string
		keywords []string
		want     bool
	}{
		{"single keyword single match", "I can swim", []string{"can"}, true},
		{"single keyword no match", "I swim", []string{"can"}, false},
		{"two keywords one match", "She has a dog", []string{"has", "have"}, true},
		{"three keywords one match", "I was there", []string{"was", "were", "did"}, true},
		{"five phrases one match", "I am Aida", fivePhrases, false},
		{"five phrases two matches", "I am Aida and I live in Bishkek", fivePhrases, true},
		{"case insensitive", "MY NAME is Bek. I LIKE tea.", fivePhrases, true},
		{"empty answer", "", []string{"can"}, false},
		{"empty keyword set", "anything", nil, false},
		{"empty keyword ignored", "hello", []string{""}, false},
		{"blank keywords do not raise threshold", "I was there", []string{"", "was", "were", "did"}, true},
		{"blank keywords never match", "I was there", []string{"", " ", "\t", "were"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Score(tt.answer, tt.keywords); got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestKeywordValidator_BoundarySpaces(t *testing.T) {
	v := NewKeywordValidator()
	keywords := []string{" can "}

	if !v.Score("can", keywords) {
		t.Error("padded keyword should match a one-word answer")
	}
	if !v.Score("Yes I can", keywords) {
		t.Error("padded keyword should match at the end of the answer")
	}
	if v.Score("I have a candle", keywords) {
		t.Error("padded keyword should not match inside another word")
	}
}

func TestMatches_CountsDistinctKeywords(t *testing.T) {
	got := Matches("went went went", []string{"went", "saw"})
	if got != 1 {
		t.Errorf("Matches() = %d, want 1", got)
	}
}
