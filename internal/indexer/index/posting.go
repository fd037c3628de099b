package index

// Posting records how often a term occurs in one document field.
type Posting struct {
	DocID     string `json:"d"`
	Frequency int    `json:"f"`
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
