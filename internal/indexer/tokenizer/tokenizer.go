// Package tokenizer provides text analysis for the index engine.
// It splits input into words per Unicode UAX#29, case-folds them, removes
// stop-words, and optionally applies a simple suffix-based stemmer. Token
// positions count every word seen, stop-words included, so phrase queries
// keep the gaps stop-words leave behind.
package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/segment"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "such": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "will": {}, "with": {},
}

// Config selects the analysis steps. It is persisted with every sealed
// index so a cached index analyzes queries the way it analyzed documents.
type Config struct {
	StopWords bool `json:"stopWords"`
	Stem      bool `json:"stem"`
	MinLength int  `json:"minLength"`
}

// DefaultConfig enables stop-word removal and stemming and keeps words of
// any length.
func DefaultConfig() Config {
	return Config{StopWords: true, Stem: true, MinLength: 1}
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Analyzer turns text into tokens according to its Config. It holds no
// mutable state and is safe for concurrent use.
type Analyzer struct {
	cfg Config
}

func New(cfg Config) *Analyzer {
	if cfg.MinLength < 1 {
		cfg.MinLength = 1
	}
	return &Analyzer{cfg: cfg}
}

func (a *Analyzer) Config() Config { return a.cfg }

// Analyze breaks text into case-folded Tokens. Punctuation and whitespace
// segments are dropped; letters, numbers, kana and ideographs are kept.
func (a *Analyzer) Analyze(text string) []Token {
	if text == "" {
		return nil
	}
	seg := segment.NewWordSegmenterDirect([]byte(text))
	tokens := make([]Token, 0, len(text)/6)
	pos := 0
	for seg.Segment() {
		if seg.Type() == segment.None {
			continue
		}
		word := strings.ToLower(string(seg.Bytes()))
		at := pos
		pos++
		if a.cfg.StopWords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		if utf8.RuneCountInString(word) < a.cfg.MinLength {
			continue
		}
		if a.cfg.Stem {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{Term: word, Position: at})
	}
	return tokens
}

// Terms returns only the terms of Analyze(text).
func (a *Analyzer) Terms(text string) []string {
	toks := a.Analyze(text)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Term
	}
	return out
}

// Fold case-folds a single value without stemming or stop-word removal.
// Range bounds go through Fold so they compare against indexed terms.
func (a *Analyzer) Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokenize analyzes text with DefaultConfig.
func Tokenize(text string) []Token {
	return New(DefaultConfig()).Analyze(text)
}

// stem applies a simple suffix-stripping stemmer to the given word.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"ed", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}
