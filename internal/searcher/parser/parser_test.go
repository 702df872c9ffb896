package parser

import (
	"errors"
	"testing"
)

func TestParseRendersCanonicalForm(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"tokyo", "tokyo"},
		{"tokyo rain", "tokyo rain"},
		{"tokyo AND rain", "+tokyo +rain"},
		{"tokyo && rain", "+tokyo +rain"},
		{"tokyo OR rain", "tokyo rain"},
		{"tokyo NOT rain", "tokyo -rain"},
		{"tokyo AND NOT rain", "+tokyo -rain"},
		{"+tokyo -rain !snow", "+tokyo -rain -snow"},
		{`title:"Tokyo Stocks"`, `title:"Tokyo Stocks"`},
		{"Title:Tokyo", "title:Tokyo"},
		{"date:[2020 TO 2021]", "date:[2020 TO 2021]"},
		{"date:{A TO *]", "date:{a TO *]"},
		{"tokyo^2.5 rain", "tokyo^2.5 rain"},
		{"(tokyo OR kyoto) AND rain", "+(tokyo kyoto) +rain"},
		{"title:(tokyo kyoto)", "(title:tokyo title:kyoto)"},
		{"new-york", "new-york"},
		{`c\:drive`, "c:drive"},
	}
	for _, tc := range cases {
		q, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tc.in, err)
			continue
		}
		if got := q.String(); got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		in  string
		pos int
	}{
		{"", 0},
		{"   ", 0},
		{`"tokyo`, 0},
		{"date:[2020 TO 2021", 5},
		{"date:[2020 2021]", 5},
		{"(tokyo", 0},
		{"()", 0},
		{"title:", 5},
		{"AND tokyo", 0},
		{"tokyo AND", 9},
		{"tokyo -", 6},
		{"tokyo^", 5},
		{"tokyo^abc", 6},
		{"tokyo)", 5},
		{":tokyo", 0},
		{"tokyo]", 5},
	}
	for _, tc := range cases {
		_, err := Parse(tc.in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Parse(%q): expected *ParseError, got %v", tc.in, err)
			continue
		}
		if pe.Pos != tc.pos {
			t.Errorf("Parse(%q): error at %d, want %d (%v)", tc.in, pe.Pos, tc.pos, pe)
		}
		if pe.Query != tc.in {
			t.Errorf("Parse(%q): error carries query %q", tc.in, pe.Query)
		}
	}
}

func TestParseClauseTypes(t *testing.T) {
	q, err := Parse(`body:"rain in tokyo" title:tok [a TO b]`)
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Clauses) != 3 {
		t.Fatalf("got %d clauses", len(q.Clauses))
	}
	if pq, ok := q.Clauses[0].Query.(*PhraseQuery); !ok || pq.Field != "body" || pq.Text != "rain in tokyo" {
		t.Errorf("clause 0 = %#v", q.Clauses[0].Query)
	}
	if tq, ok := q.Clauses[1].Query.(*TermQuery); !ok || tq.Field != "title" {
		t.Errorf("clause 1 = %#v", q.Clauses[1].Query)
	}
	rq, ok := q.Clauses[2].Query.(*RangeQuery)
	if !ok || rq.Field != "" || !rq.IncludeLower || !rq.IncludeUpper {
		t.Errorf("clause 2 = %#v", q.Clauses[2].Query)
	}
}
