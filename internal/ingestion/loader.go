package ingestion

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/charmap"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
)

// ErrNoContentColumn is returned by ReadFile when none of the configured
// content columns is present.
var ErrNoContentColumn = errors.New("no content column")

// Loader reads CSV datasets from a directory.
type Loader struct {
	dir            string
	titleColumns   []string
	contentColumns []string
	policy         *bluemonday.Policy
	logger         *slog.Logger
}

func NewLoader(cfg config.DatasetConfig) *Loader {
	return &Loader{
		dir:            cfg.Dir,
		titleColumns:   lowerAll(cfg.TitleColumns),
		contentColumns: lowerAll(cfg.ContentColumn),
		policy:         bluemonday.StrictPolicy(),
		logger:         slog.Default().With("component", "dataset-loader"),
	}
}

// Discover lists every *.csv file in the dataset directory, sorted by name.
// A missing directory is an ErrInvalidInput; an empty one yields no datasets.
func (l *Loader) Discover() ([]Dataset, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("dataset directory %s: %w", l.dir, apperrors.ErrInvalidInput)
		}
		return nil, fmt.Errorf("reading dataset directory %s: %w", l.dir, err)
	}
	var datasets []Dataset
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		datasets = append(datasets, Dataset{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(l.dir, e.Name()),
		})
	}
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Path < datasets[j].Path })

	// a.csv and a.CSV would produce the same document IDs; the first wins.
	seen := make(map[string]string, len(datasets))
	unique := datasets[:0]
	for _, ds := range datasets {
		if first, ok := seen[ds.Name]; ok {
			l.logger.Warn("skipping dataset with duplicate name", "dataset", ds.Name, "file", ds.Path, "kept", first)
			continue
		}
		seen[ds.Name] = ds.Path
		unique = append(unique, ds)
	}
	if len(unique) == 0 {
		l.logger.Warn("no csv files found", "dir", l.dir)
	}
	return unique, nil
}

// Fingerprint identifies the content of ds together with the column settings
// used to read it. It changes whenever the file or those settings change.
func (l *Loader) Fingerprint(ds Dataset) (string, error) {
	f, err := os.Open(ds.Path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", ds.Path, err)
	}
	defer f.Close()

	h := sha256.New()
	fmt.Fprintf(h, "title=%s\ncontent=%s\n", strings.Join(l.titleColumns, ","), strings.Join(l.contentColumns, ","))
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", ds.Path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadFile returns the usable rows of ds. Rows whose title and content are
// both empty are skipped.
func (l *Loader) ReadFile(ctx context.Context, ds Dataset) ([]Record, error) {
	raw, err := os.ReadFile(ds.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ds.Path, err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		l.logger.Debug("decoding as latin-1", "file", ds.Path)
		if raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw); err != nil {
			return nil, fmt.Errorf("decoding %s as latin-1: %w", ds.Path, err)
		}
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", ds.Path, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	titleCol := pickColumn(columns, l.titleColumns)
	contentCol := pickColumn(columns, l.contentColumns)
	if contentCol < 0 {
		return nil, fmt.Errorf("%s: %w", ds.Path, ErrNoContentColumn)
	}

	file := filepath.Base(ds.Path)
	var records []Record
	for row := 0; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s row %d: %w", ds.Path, row, err)
		}
		title := l.cell(fields, titleCol)
		content := l.cell(fields, contentCol)
		combined := joinNonEmpty(" - ", title, content)
		if combined == "" {
			continue
		}
		if title == "" {
			title = SyntheticTitle(ds.Name, row)
		}
		records = append(records, Record{
			Title:   title,
			Content: combined,
			Dataset: ds.Name,
			File:    file,
			Row:     row,
		})
	}
	return records, nil
}

// cell returns the markup-free, trimmed value of column i, or "" when the
// row is too short or i is negative.
func (l *Loader) cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	text := html.UnescapeString(l.policy.Sanitize(fields[i]))
	return strings.TrimSpace(text)
}

func pickColumn(columns map[string]int, candidates []string) int {
	for _, c := range candidates {
		if i, ok := columns[c]; ok {
			return i
		}
	}
	return -1
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
