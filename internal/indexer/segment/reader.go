package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

// Reader serves a sealed segment. The dictionary and stored documents are
// loaded at open; postings are read with ReadAt on demand, which is safe
// for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	fields   map[string][]string
	docs     []index.StoredDoc
	analyzer tokenizer.Config
}

// OpenReader opens dir/index.seg and validates its header and checksums.
func OpenReader(dir string) (*Reader, error) {
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func load(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d", header.Version)
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DocsOffset+header.DocsSize); err != nil {
		return nil, fmt.Errorf("reading segment footer: %w", err)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if crc32.ChecksumIEEE(dictBytes) != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, fmt.Errorf("dictionary checksum mismatch")
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	docsBytes := make([]byte, header.DocsSize)
	if _, err := f.ReadAt(docsBytes, header.DocsOffset); err != nil {
		return nil, fmt.Errorf("reading stored documents: %w", err)
	}
	if crc32.ChecksumIEEE(docsBytes) != binary.LittleEndian.Uint32(footer[4:8]) {
		return nil, fmt.Errorf("stored documents checksum mismatch")
	}
	var stored storedSection
	if err := json.Unmarshal(docsBytes, &stored); err != nil {
		return nil, fmt.Errorf("parsing stored documents: %w", err)
	}

	fields := make(map[string][]string)
	for _, e := range dict {
		fields[e.Field] = append(fields[e.Field], e.Term)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		fields:   fields,
		docs:     stored.Docs,
		analyzer: stored.Analyzer,
	}, nil
}

func (r *Reader) lookup(field, term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		if r.dict[i].Field != field {
			return r.dict[i].Field >= field
		}
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Postings reads the posting list of term in field from disk.
func (r *Reader) Postings(field, term string) (index.PostingList, error) {
	entry, ok := r.lookup(field, term)
	if !ok {
		return nil, nil
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

func (r *Reader) DocFreq(field, term string) int {
	entry, ok := r.lookup(field, term)
	if !ok {
		return 0
	}
	return entry.DocFreq
}

// Terms returns the sorted terms of field.
func (r *Reader) Terms(field string) []string {
	return r.fields[field]
}

func (r *Reader) FieldLength(field string, id model.DocID) int {
	if int(id) >= len(r.docs) {
		return 0
	}
	return r.docs[id].Lengths[field]
}

func (r *Reader) Document(id model.DocID) (model.Document, bool) {
	if int(id) >= len(r.docs) {
		return model.Document{}, false
	}
	return r.docs[id].Doc, true
}

// Analyzer is the analysis configuration the segment was built with.
func (r *Reader) Analyzer() tokenizer.Config {
	return r.analyzer
}

func (r *Reader) TermCount() int {
	return len(r.dict)
}

func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
