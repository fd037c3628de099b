package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/indexer/index"
)

const (
	docsFile     = "docs.json"
	docsCRCFile  = "docs.crc"
	docsCRCBytes = 4
)

// WriteDocuments stores docs in dir as docs.json with its CRC-32 in docs.crc.
// Both files are written to temporaries and renamed into place.
func WriteDocuments(dir string, docs []index.Document) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshaling documents: %w", err)
	}
	sum := make([]byte, docsCRCBytes)
	binary.LittleEndian.PutUint32(sum, crc32.ChecksumIEEE(data))

	if err := writeFileAtomic(filepath.Join(dir, docsFile), data); err != nil {
		return fmt.Errorf("writing document store: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, docsCRCFile), sum); err != nil {
		return fmt.Errorf("writing document store checksum: %w", err)
	}
	return nil
}

// ReadDocuments loads the document store from dir and verifies its checksum.
func ReadDocuments(dir string) ([]index.Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, docsFile))
	if err != nil {
		return nil, fmt.Errorf("reading document store: %w", err)
	}
	sum, err := os.ReadFile(filepath.Join(dir, docsCRCFile))
	if err != nil {
		return nil, fmt.Errorf("reading document store checksum: %w", err)
	}
	if len(sum) != docsCRCBytes {
		return nil, fmt.Errorf("%w: document store checksum has %d bytes", ErrCorrupt, len(sum))
	}
	if want, got := binary.LittleEndian.Uint32(sum), crc32.ChecksumIEEE(data); want != got {
		return nil, fmt.Errorf("%w: document store checksum mismatch", ErrCorrupt)
	}
	var docs []index.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing document store: %w", err)
	}
	return docs, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
