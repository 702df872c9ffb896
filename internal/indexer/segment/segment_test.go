package segment

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"
)

func buildContents() Contents {
	mem := index.NewMemoryIndex()
	a := tokenizer.New(tokenizer.DefaultConfig())
	for _, d := range []model.Document{
		{URL: "http://a/", Title: "Tokyo", Body: "capital of japan"},
		{URL: "http://b/", Title: "Kyoto", Body: "old capital near tokyo"},
	} {
		mem.AddDocument(d, map[string][]tokenizer.Token{
			model.FieldTitle: a.Analyze(d.Title),
			model.FieldBody:  a.Analyze(d.Body),
		})
	}
	entries, docs := mem.Snapshot()
	return Contents{Entries: entries, Docs: docs, Analyzer: tokenizer.Config{Stem: true, MinLength: 2}}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	contents := buildContents()
	path, err := Write(dir, contents)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind")
	}

	r, err := OpenReader(dir)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	if r.DocCount() != 2 {
		t.Errorf("doc count = %d, want 2", r.DocCount())
	}
	if r.TermCount() != len(contents.Entries) {
		t.Errorf("term count = %d, want %d", r.TermCount(), len(contents.Entries))
	}
	if got := r.Analyzer(); got != contents.Analyzer {
		t.Errorf("analyzer = %+v, want %+v", got, contents.Analyzer)
	}

	postings, err := r.Postings(model.FieldBody, "tokyo")
	if err != nil {
		t.Fatalf("Postings: %v", err)
	}
	if len(postings) != 1 || postings[0].DocID != 1 {
		t.Fatalf("body:tokyo postings = %+v", postings)
	}
	if r.DocFreq(model.FieldTitle, "tokyo") != 1 {
		t.Errorf("title:tokyo df = %d", r.DocFreq(model.FieldTitle, "tokyo"))
	}
	if p, _ := r.Postings(model.FieldURL, "tokyo"); p != nil {
		t.Errorf("url field must not be indexed, got %+v", p)
	}

	doc, ok := r.Document(0)
	if !ok || doc.URL != "http://a/" || doc.Title != "Tokyo" {
		t.Errorf("stored doc 0 = %+v", doc)
	}
	if r.FieldLength(model.FieldBody, 1) != 4 {
		t.Errorf("body length of doc 1 = %d, want 4", r.FieldLength(model.FieldBody, 1))
	}
}

func TestReaderTermsSortedPerField(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, buildContents()); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if got, want := r.Terms(model.FieldTitle), []string{"kyoto", "tokyo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("title terms = %v, want %v", got, want)
	}
}

func TestOpenReaderRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), make([]byte, HeaderSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(dir); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestOpenReaderDetectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, buildContents())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the stored documents section.
	data[len(data)-FooterSize-2] ^= 0xff
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReader(dir); err == nil {
		t.Fatal("expected checksum error")
	}
}

func TestOpenReaderMissing(t *testing.T) {
	if _, err := OpenReader(t.TempDir()); err == nil {
		t.Fatal("expected error for missing segment")
	}
}
