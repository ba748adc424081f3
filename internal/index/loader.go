package index

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Document is the text extracted from one file, or one part of it such as a
// CSV row or a PDF page
type Document struct {
	Source   string
	Location string
	Text     string
}

// loaderFunc extracts documents from the file at path
type loaderFunc func(path string) ([]Document, error)

var loaders = map[string]loaderFunc{
	".txt":  loadText,
	".md":   loadText,
	".csv":  loadCSV,
	".html": loadHTML,
	".htm":  loadHTML,
	".pdf":  loadPDF,
}

// Supported reports whether files with the extension of path produce documents
func Supported(path string) bool {
	_, ok := loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load extracts the documents of a single file. Unsupported extensions yield
// no documents and no error.
func Load(path string) ([]Document, error) {
	load, ok := loaders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}

	docs, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return docs, nil
}

func loadText(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Document{{Source: path, Text: text}}, nil
}

// loadCSV turns every row after the header into its own document of
// "column: value" lines
func loadCSV(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var docs []Document
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		var sb strings.Builder
		for i, value := range record {
			column := fmt.Sprintf("column%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				column = strings.TrimSpace(header[i])
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(column)
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(value))
		}

		docs = append(docs, Document{
			Source:   path,
			Location: fmt.Sprintf("row %d", row),
			Text:     sb.String(),
		})
	}

	return docs, nil
}
