package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

// MemoryIndex is the mutable, field-aware inverted index behind a live
// index. Document ids are assigned under the write lock so posting lists
// stay sorted by DocID without re-sorting.
type MemoryIndex struct {
	mu       sync.RWMutex
	fields   map[string]map[string]PostingList
	docs     []StoredDoc
	terms    map[string][]string
	size     int64
	termSize int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		fields: make(map[string]map[string]PostingList),
	}
}

// AddDocument stores doc and indexes the pre-analyzed tokens of each field.
// It returns the id assigned to the document.
func (m *MemoryIndex) AddDocument(doc model.Document, fields map[string][]tokenizer.Token) model.DocID {
	termData := make(map[string]map[string]*Posting, len(fields))
	lengths := make(map[string]int, len(fields))
	for field, tokens := range fields {
		lengths[field] = len(tokens)
		byTerm := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := byTerm[token.Term]
			if !exists {
				p = &Posting{Positions: make([]int, 0, 4)}
				byTerm[token.Term] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
		termData[field] = byTerm
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := model.DocID(len(m.docs))
	doc.ID = id
	m.docs = append(m.docs, StoredDoc{Doc: doc, Lengths: lengths})
	m.size += int64(len(doc.URL) + len(doc.Title) + len(doc.Body))

	for field, byTerm := range termData {
		terms, ok := m.fields[field]
		if !ok {
			terms = make(map[string]PostingList)
			m.fields[field] = terms
		}
		for term, posting := range byTerm {
			posting.DocID = id
			if _, seen := terms[term]; !seen {
				m.termSize++
			}
			terms[term] = append(terms[term], *posting)
			m.size += int64(len(term) + len(posting.Positions)*8 + 16)
		}
	}
	m.terms = nil
	return id
}

// Postings returns the posting list of term in field, or nil.
func (m *MemoryIndex) Postings(field, term string) (PostingList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fields[field][term], nil
}

func (m *MemoryIndex) DocFreq(field, term string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fields[field][term])
}

// Terms returns the sorted distinct terms of field. The result is cached
// until the next AddDocument and must not be modified.
func (m *MemoryIndex) Terms(field string) []string {
	m.mu.RLock()
	if cached, ok := m.terms[field]; ok {
		m.mu.RUnlock()
		return cached
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terms == nil {
		m.terms = make(map[string][]string)
	}
	list := make([]string, 0, len(m.fields[field]))
	for term := range m.fields[field] {
		list = append(list, term)
	}
	sort.Strings(list)
	m.terms[field] = list
	return list
}

func (m *MemoryIndex) FieldLength(field string, id model.DocID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.docs) {
		return 0
	}
	return m.docs[id].Lengths[field]
}

// Document returns the stored fields of id.
func (m *MemoryIndex) Document(id model.DocID) (model.Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.docs) {
		return model.Document{}, false
	}
	return m.docs[id].Doc, true
}

// Snapshot returns every (field, term) posting list sorted by field then
// term, together with the stored documents in id order.
func (m *MemoryIndex) Snapshot() ([]TermEntry, []StoredDoc) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, m.termSize)
	for field, terms := range m.fields {
		for term, postings := range terms {
			entries = append(entries, TermEntry{
				Field:    field,
				Term:     term,
				Postings: postings,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Field != entries[j].Field {
			return entries[i].Field < entries[j].Field
		}
		return entries[i].Term < entries[j].Term
	})
	docs := make([]StoredDoc, len(m.docs))
	copy(docs, m.docs)
	return entries, docs
}

func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// TermCount counts distinct (field, term) pairs.
func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.termSize
}
