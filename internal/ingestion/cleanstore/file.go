package cleanstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
)

var header = []string{"judul", "clean_text", "dataset", "file", "row_id", "sumber"}

// FileStore keeps each dataset in <dir>/<dataset>_clean.csv, with the
// fingerprint it was saved under in <dir>/<dataset>_clean.fingerprint.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path is the file holding dataset's records.
func (s *FileStore) Path(dataset string) string {
	return filepath.Join(s.dir, dataset+"_clean.csv")
}

func (s *FileStore) fingerprintPath(dataset string) string {
	return filepath.Join(s.dir, dataset+"_clean.fingerprint")
}

func (s *FileStore) Load(ctx context.Context, dataset, fingerprint string) ([]ingestion.CleanRecord, bool, error) {
	saved, err := os.ReadFile(s.fingerprintPath(dataset))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading fingerprint of %s: %w", dataset, err)
	}
	if strings.TrimSpace(string(saved)) != fingerprint {
		return nil, false, nil
	}

	f, err := os.Open(s.Path(dataset))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("opening clean records: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	cols, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []ingestion.CleanRecord{}, true, nil
		}
		return nil, false, fmt.Errorf("reading header of %s: %w", f.Name(), err)
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	for _, c := range []string{"judul", "clean_text"} {
		if _, ok := idx[c]; !ok {
			return nil, false, fmt.Errorf("%s: missing column %q", f.Name(), c)
		}
	}
	get := func(fields []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	records := []ingestion.CleanRecord{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", f.Name(), err)
		}
		row, err := strconv.Atoi(get(fields, "row_id"))
		if err != nil {
			return nil, false, fmt.Errorf("%s: bad row_id %q: %w", f.Name(), get(fields, "row_id"), err)
		}
		records = append(records, ingestion.CleanRecord{
			Title:     get(fields, "judul"),
			CleanText: get(fields, "clean_text"),
			Dataset:   get(fields, "dataset"),
			File:      get(fields, "file"),
			Row:       row,
			Source:    get(fields, "sumber"),
		})
	}
	return records, true, nil
}

// Save drops the old fingerprint, replaces the records file and then writes
// the new fingerprint. A crash part way leaves the dataset without a
// fingerprint, which the next Load treats as a miss.
func (s *FileStore) Save(ctx context.Context, dataset, fingerprint string, records []ingestion.CleanRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating clean dir: %w", err)
	}
	if err := os.Remove(s.fingerprintPath(dataset)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale fingerprint: %w", err)
	}

	err := s.writeAtomic(dataset+"_clean.*.tmp", s.Path(dataset), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for i, rec := range records {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			err := cw.Write([]string{rec.Title, rec.CleanText, rec.Dataset, rec.File, strconv.Itoa(rec.Row), rec.Source})
			if err != nil {
				return fmt.Errorf("writing record %d: %w", rec.Row, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("saving clean records: %w", err)
	}

	err = s.writeAtomic(dataset+"_fp.*.tmp", s.fingerprintPath(dataset), func(w io.Writer) error {
		_, err := io.WriteString(w, fingerprint+"\n")
		return err
	})
	if err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}
	return nil
}

// writeAtomic fills a temporary file and renames it over path, so readers
// never observe a partial file.
func (s *FileStore) writeAtomic(pattern, path string, fill func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(s.dir, pattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}
