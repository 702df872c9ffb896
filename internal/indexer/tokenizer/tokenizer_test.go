package tokenizer

import (
	"reflect"
	"testing"
)

func TestAnalyzeKeepsStopWordGaps(t *testing.T) {
	a := New(DefaultConfig())
	got := a.Analyze("The Tokyo Tower, at night!")
	want := []Token{
		{Term: "tokyo", Position: 1},
		{Term: "tower", Position: 2},
		{Term: "night", Position: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Analyze = %+v, want %+v", got, want)
	}
}

func TestAnalyzeWithoutStopWordsOrStemming(t *testing.T) {
	a := New(Config{})
	got := a.Terms("The running Cities")
	want := []string{"the", "running", "cities"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %v, want %v", got, want)
	}
}

func TestStemming(t *testing.T) {
	cases := map[string]string{
		"cities":  "city",
		"towers":  "tower",
		"jumps":   "jump",
		"class":   "class",
		"tokyo":   "tokyo",
		"walked":  "walk",
		"quickly": "quick",
	}
	for in, want := range cases {
		if got := stem(in); got != want {
			t.Errorf("stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzeMinLength(t *testing.T) {
	a := New(Config{MinLength: 3})
	got := a.Terms("go is a fun language")
	want := []string{"fun", "language"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %v, want %v", got, want)
	}
}

func TestAnalyzeKeepsNumbersAndKana(t *testing.T) {
	a := New(DefaultConfig())
	terms := a.Terms("Opened in 1958 タワー")
	has := func(term string) bool {
		for _, x := range terms {
			if x == term {
				return true
			}
		}
		return false
	}
	if !has("1958") {
		t.Errorf("number dropped: %v", terms)
	}
	if !has("タワー") {
		t.Errorf("kana word dropped: %v", terms)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
	if got := Tokenize("... !!! ---"); len(got) != 0 {
		t.Fatalf("punctuation should produce no tokens, got %v", got)
	}
}
