package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
)

func sampleEntries() []index.TermEntry {
	return []index.TermEntry{
		{Term: "ikan", Postings: index.PostingList{{DocID: "1", Frequency: 1}}},
		{Term: "kucing", Postings: index.PostingList{{DocID: "1", Frequency: 2}, {DocID: "3", Frequency: 1}}},
		{Term: "tidur", Postings: index.PostingList{{DocID: "3", Frequency: 1}}},
	}
}

func TestWriteAndSearch(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(index.FieldBody, sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, "body.spdx", name)

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 3, r.Terms())
	assert.Equal(t, uint32(2), r.DocCount())

	got, err := r.Search("kucing")
	require.NoError(t, err)
	assert.Equal(t, sampleEntries()[1].Postings, got)

	got, err = r.Search("gajah")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, map[string]int{"ikan": 1, "kucing": 2, "tidur": 1}, r.DocFreqs())

	_, err = os.Stat(filepath.Join(dir, name+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteEmptySegment(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(index.FieldTitle, nil)
	require.NoError(t, err)

	r, err := OpenReader(filepath.Join(dir, name))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.Terms())
	got, err := r.Search("kucing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriteRejectsUnsortedEntries(t *testing.T) {
	entries := sampleEntries()
	entries[0], entries[2] = entries[2], entries[0]
	_, err := NewWriter(t.TempDir()).Write(index.FieldBody, entries)
	assert.Error(t, err)
}

func TestOpenReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	name, err := NewWriter(dir).Write(index.FieldBody, sampleEntries())
	require.NoError(t, err)
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip one byte inside the dictionary, which sits just before the footer.
	data[len(data)-FooterSize-2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenReader(path)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestOpenReaderBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.spdx")
	require.NoError(t, os.WriteFile(path, make([]byte, HeaderSize+FooterSize), 0o644))
	_, err := OpenReader(path)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestDocumentStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	docs := []index.Document{
		{ID: "a-0", Title: "Kucing", TitleTerms: "kucing", Body: "kucing makan", Source: "a"},
		{ID: "a-1", Title: "a_row1", Body: "anjing", Source: "a"},
	}
	require.NoError(t, WriteDocuments(dir, docs))

	got, err := ReadDocuments(dir)
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, docsFile), []byte(`[]`), 0o644))
	_, err = ReadDocuments(dir)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
