// Package parser turns a query string into a query tree.
//
// Supported syntax: bare terms, field:term, "phrase", field:"phrase",
// field:[lo TO hi] and field:{lo TO hi} ranges (* is an open bound),
// parenthesised groups, +required and -prohibited clauses, the AND, OR and
// NOT keywords (also &&, || and !), and ^boost suffixes. Clauses are joined
// with OR unless an operator says otherwise. Term text is kept verbatim;
// analysis happens at evaluation time against the index's analyzer.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
)

// Occur says how a clause participates in a boolean query.
type Occur int

const (
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	}
	return ""
}

// Node is a parsed query.
type Node interface {
	fmt.Stringer
	node()
}

// TermQuery matches a single analyzed term. An empty Field means the
// default fields.
type TermQuery struct {
	Field string
	Text  string
	Boost float64
}

// PhraseQuery matches analyzed terms at consecutive positions.
type PhraseQuery struct {
	Field string
	Text  string
	Boost float64
}

// RangeQuery matches terms lexicographically between Lower and Upper. An
// empty bound is open.
type RangeQuery struct {
	Field        string
	Lower        string
	Upper        string
	IncludeLower bool
	IncludeUpper bool
	Boost        float64
}

type Clause struct {
	Occur Occur
	Query Node
}

type BooleanQuery struct {
	Clauses []Clause
	Boost   float64
}

func (*TermQuery) node()    {}
func (*PhraseQuery) node()  {}
func (*RangeQuery) node()   {}
func (*BooleanQuery) node() {}

func fieldPrefix(f string) string {
	if f == "" {
		return ""
	}
	return f + ":"
}

func boostSuffix(b float64) string {
	if b == 1 {
		return ""
	}
	return "^" + strconv.FormatFloat(b, 'g', -1, 64)
}

func (q *TermQuery) String() string {
	return fieldPrefix(q.Field) + q.Text + boostSuffix(q.Boost)
}

func (q *PhraseQuery) String() string {
	return fieldPrefix(q.Field) + strconv.Quote(q.Text) + boostSuffix(q.Boost)
}

func (q *RangeQuery) String() string {
	open, close := "{", "}"
	if q.IncludeLower {
		open = "["
	}
	if q.IncludeUpper {
		close = "]"
	}
	lo, hi := q.Lower, q.Upper
	if lo == "" {
		lo = "*"
	}
	if hi == "" {
		hi = "*"
	}
	return fmt.Sprintf("%s%s%s TO %s%s%s", fieldPrefix(q.Field), open, lo, hi, close, boostSuffix(q.Boost))
}

func (q *BooleanQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		s := c.Query.String()
		if _, nested := c.Query.(*BooleanQuery); nested {
			s = "(" + s + ")"
		}
		parts[i] = c.Occur.String() + s
	}
	return strings.Join(parts, " ") + boostSuffix(q.Boost)
}

// ParseError reports malformed query syntax. Pos is a byte offset into
// Query.
type ParseError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s at position %d", e.Query, e.Msg, e.Pos)
}

func (e *ParseError) Unwrap() error { return apperrors.ErrQueryParse }

// Parse parses query. The result is always a *BooleanQuery so callers can
// treat single-clause and multi-clause queries alike.
func Parse(query string) (*BooleanQuery, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}
	p := &parser{query: query, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(0, "empty query")
	}
	q, err := p.parseQuery(false)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t.pos, "unexpected %s", t)
	}
	return q, nil
}

type parser struct {
	query string
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Query: p.query, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// parseQuery reads clauses until EOF, or until ')' when nested.
func (p *parser) parseQuery(nested bool) (*BooleanQuery, error) {
	bq := &BooleanQuery{Boost: 1}
	for {
		t := p.peek()
		if t.kind == tokEOF || (nested && t.kind == tokRParen) {
			break
		}
		if t.kind == tokRParen {
			return nil, p.errorf(t.pos, "unexpected ')'")
		}
		conj := tokEOF
		if t.kind == tokAnd || t.kind == tokOr {
			if len(bq.Clauses) == 0 {
				return nil, p.errorf(t.pos, "dangling operator %s", t)
			}
			conj = t.kind
			p.next()
		}

		occur := Should
		modPos := -1
		switch m := p.peek(); m.kind {
		case tokPlus:
			occur, modPos = Must, m.pos
			p.next()
		case tokMinus, tokNot:
			occur, modPos = MustNot, m.pos
			p.next()
		}

		after := p.peek()
		if after.kind == tokEOF || after.kind == tokRParen || after.kind == tokAnd || after.kind == tokOr {
			pos := after.pos
			if modPos >= 0 {
				pos = modPos
			}
			return nil, p.errorf(pos, "dangling operator before %s", after)
		}

		if conj == tokAnd {
			last := &bq.Clauses[len(bq.Clauses)-1]
			if last.Occur != MustNot {
				last.Occur = Must
			}
			if occur == Should {
				occur = Must
			}
		}

		node, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		bq.Clauses = append(bq.Clauses, Clause{Occur: occur, Query: node})
	}
	return bq, nil
}

func (p *parser) parseClause() (Node, error) {
	t := p.next()
	field := ""
	if t.kind == tokTerm && p.peek().kind == tokColon {
		field = strings.ToLower(t.text)
		colon := p.next()
		t = p.next()
		switch t.kind {
		case tokTerm, tokPhrase, tokRange, tokLParen:
		default:
			return nil, p.errorf(colon.pos, "empty value for field %q", field)
		}
	}

	var node Node
	switch t.kind {
	case tokTerm:
		node = &TermQuery{Field: field, Text: t.text, Boost: 1}
	case tokPhrase:
		node = &PhraseQuery{Field: field, Text: t.text, Boost: 1}
	case tokRange:
		rq, err := p.parseRange(t, field)
		if err != nil {
			return nil, err
		}
		node = rq
	case tokLParen:
		inner, err := p.parseQuery(true)
		if err != nil {
			return nil, err
		}
		rp := p.next()
		if rp.kind != tokRParen {
			return nil, p.errorf(t.pos, "unterminated group")
		}
		if len(inner.Clauses) == 0 {
			return nil, p.errorf(t.pos, "empty group")
		}
		if field != "" {
			applyField(inner, field)
		}
		node = inner
	case tokColon:
		return nil, p.errorf(t.pos, "missing field name before ':'")
	default:
		return nil, p.errorf(t.pos, "unexpected %s", t)
	}

	if p.peek().kind == tokCaret {
		caret := p.next()
		num := p.next()
		if num.kind != tokTerm {
			return nil, p.errorf(caret.pos, "missing boost value")
		}
		b, err := strconv.ParseFloat(num.text, 64)
		if err != nil || b < 0 {
			return nil, p.errorf(num.pos, "bad boost %q", num.text)
		}
		setBoost(node, b)
	}
	return node, nil
}

func (p *parser) parseRange(t token, field string) (*RangeQuery, error) {
	parts := strings.Fields(t.text)
	if len(parts) != 3 || parts[1] != "TO" {
		return nil, p.errorf(t.pos, "range must be of the form [lower TO upper]")
	}
	open := func(s string) string {
		if s == "*" {
			return ""
		}
		return strings.ToLower(s)
	}
	return &RangeQuery{
		Field:        field,
		Lower:        open(parts[0]),
		Upper:        open(parts[2]),
		IncludeLower: t.inclusiveLo,
		IncludeUpper: t.inclusiveHi,
		Boost:        1,
	}, nil
}

// applyField sets field on every clause of a group that has none, so
// title:(a b) means title:a title:b.
func applyField(bq *BooleanQuery, field string) {
	for _, c := range bq.Clauses {
		switch q := c.Query.(type) {
		case *TermQuery:
			if q.Field == "" {
				q.Field = field
			}
		case *PhraseQuery:
			if q.Field == "" {
				q.Field = field
			}
		case *RangeQuery:
			if q.Field == "" {
				q.Field = field
			}
		case *BooleanQuery:
			applyField(q, field)
		}
	}
}

func setBoost(n Node, b float64) {
	switch q := n.(type) {
	case *TermQuery:
		q.Boost = b
	case *PhraseQuery:
		q.Boost = b
	case *RangeQuery:
		q.Boost = b
	case *BooleanQuery:
		q.Boost = b
	}
}
