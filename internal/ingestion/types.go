// Package ingestion turns CSV datasets into index documents: it discovers
// files and columns, normalizes each row, and caches the normalized records
// so later builds skip normalization.
package ingestion

import "fmt"

// Record is one usable row read from a dataset file.
type Record struct {
	// Title is the row's title cell, or "<dataset>_row<n>" when it has none.
	Title string
	// Content is "title - content" built from whichever cells are present.
	Content string
	Dataset string
	File    string
	// Row is the zero-based data row number within File.
	Row int
}

// CleanRecord is a normalized Record as kept in the clean store.
type CleanRecord struct {
	Title     string
	CleanText string
	Dataset   string
	File      string
	Row       int
	Source    string
}

// Dataset is one CSV file under the dataset directory.
type Dataset struct {
	Name string
	Path string
}

// DocumentID is the stable ID of a dataset row.
func DocumentID(dataset string, row int) string {
	return fmt.Sprintf("%s-%d", dataset, row)
}

// SyntheticTitle labels a row that has no title cell.
func SyntheticTitle(dataset string, row int) string {
	return fmt.Sprintf("%s_row%d", dataset, row)
}
