package index

import "github.com/Adithya-Monish-Kumar-K/minecrawler/internal/model"

// Posting records one document's occurrences of a term within a field.
type Posting struct {
	DocID     model.DocID `json:"d"`
	Frequency int         `json:"f"`
	Positions []int       `json:"p"`
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// TermEntry is the full posting list of one (field, term) pair.
type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// StoredDoc is a document's stored fields plus the token count of every
// indexed field, used for length normalisation.
type StoredDoc struct {
	Doc     model.Document `json:"doc"`
	Lengths map[string]int `json:"len"`
}
