package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultCSVRows      = 1000
)

var textExts = map[string]bool{".txt": true, ".md": true, ".csv": true}

// collectFiles expands directories into the indexable files beneath them,
// sorted and deduplicated.
func collectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if textExts[strings.ToLower(filepath.Ext(p))] && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

type loader struct {
	splitter textsplitter.RecursiveCharacter
	csvRows  int
}

func newLoader(size, overlap, csvRows int) *loader {
	if csvRows <= 0 {
		csvRows = defaultCSVRows
	}
	return &loader{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		csvRows: csvRows,
	}
}

// Load returns the chunks for one file.
func (l *loader) Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return csvBlocks(f, l.csvRows)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return l.splitter.SplitText(text)
}

// csvBlocks renders every n rows as one chunk, each headed by the column
// names. Malformed rows are skipped.
func csvBlocks(r io.Reader, n int) ([]string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	headLine := strings.Join(header, " | ")

	var (
		blocks []string
		b      strings.Builder
		rows   int
	)
	flush := func() {
		if rows > 0 {
			blocks = append(blocks, b.String())
		}
		b.Reset()
		rows = 0
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			b.WriteString(headLine)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(rec, " | "))
		rows++
		if rows == n {
			flush()
		}
	}
	flush()
	return blocks, nil
}
