package parser

import (
	"strings"
	"unicode"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokTerm
	tokPhrase
	tokRange
	tokLParen
	tokRParen
	tokColon
	tokCaret
	tokPlus
	tokMinus
	tokNot
	tokAnd
	tokOr
)

type token struct {
	kind        tokKind
	text        string
	pos         int
	inclusiveLo bool
	inclusiveHi bool
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokPhrase:
		return `"` + t.text + `"`
	case tokRange:
		return "range"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	}
	return "'" + t.text + "'"
}

func isSpecial(r rune) bool {
	return strings.ContainsRune(`():^"[]{}`, r)
}

func lex(query string) ([]token, error) {
	var toks []token
	rs := []rune(query)
	// byte offsets of each rune, for error positions
	offs := make([]int, len(rs)+1)
	o := 0
	for i, r := range rs {
		offs[i] = o
		o += len(string(r))
	}
	offs[len(rs)] = o

	fail := func(i int, msg string) error {
		return &ParseError{Query: query, Pos: offs[i], Msg: msg}
	}

	i := 0
	for i < len(rs) {
		r := rs[i]
		start := i
		switch {
		case unicode.IsSpace(r):
			i++
			continue
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: offs[i]})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: offs[i]})
			i++
		case r == ':':
			toks = append(toks, token{kind: tokColon, text: ":", pos: offs[i]})
			i++
		case r == '^':
			toks = append(toks, token{kind: tokCaret, text: "^", pos: offs[i]})
			i++
		case r == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", pos: offs[i]})
			i++
		case r == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", pos: offs[i]})
			i++
		case r == '!':
			toks = append(toks, token{kind: tokNot, text: "!", pos: offs[i]})
			i++
		case r == '&' && i+1 < len(rs) && rs[i+1] == '&':
			toks = append(toks, token{kind: tokAnd, text: "&&", pos: offs[i]})
			i += 2
		case r == '|' && i+1 < len(rs) && rs[i+1] == '|':
			toks = append(toks, token{kind: tokOr, text: "||", pos: offs[i]})
			i += 2
		case r == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(rs) {
				if rs[i] == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				if rs[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			if !closed {
				return nil, fail(start, "unterminated phrase")
			}
			toks = append(toks, token{kind: tokPhrase, text: b.String(), pos: offs[start]})
		case r == '[' || r == '{':
			i++
			end := -1
			for j := i; j < len(rs); j++ {
				if rs[j] == ']' || rs[j] == '}' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, fail(start, "unterminated range")
			}
			toks = append(toks, token{
				kind:        tokRange,
				text:        string(rs[i:end]),
				pos:         offs[start],
				inclusiveLo: r == '[',
				inclusiveHi: rs[end] == ']',
			})
			i = end + 1
		case r == ']' || r == '}':
			return nil, fail(i, "unexpected '"+string(r)+"'")
		default:
			var b strings.Builder
			for i < len(rs) && !unicode.IsSpace(rs[i]) && !isSpecial(rs[i]) {
				if rs[i] == '\\' && i+1 < len(rs) {
					b.WriteRune(rs[i+1])
					i += 2
					continue
				}
				b.WriteRune(rs[i])
				i++
			}
			text := b.String()
			t := token{kind: tokTerm, text: text, pos: offs[start]}
			switch text {
			case "AND":
				t.kind = tokAnd
			case "OR":
				t.kind = tokOr
			case "NOT":
				t.kind = tokNot
			}
			toks = append(toks, t)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: offs[len(rs)]})
	return toks, nil
}
