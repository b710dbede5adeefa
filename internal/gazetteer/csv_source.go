package gazetteer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultCSVFiles maps each category to the file name used by the public
// Indian gazetteer dumps.
var DefaultCSVFiles = map[Category]string{
	State:    "states_uts.csv",
	City:     "cities.csv",
	Mandal:   "mandals.csv",
	District: "districts.csv",
	Village:  "villages.csv",
}

// CSVSource reads one delimited file per category; the first field of every
// record is the canonical name.
type CSVSource struct {
	Dir   string
	Files map[Category]string
	Comma rune
}

// NewCSVSource returns a source reading DefaultCSVFiles from dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir, Files: DefaultCSVFiles, Comma: ','}
}

// Load reads every configured file. A missing or unreadable file is an error.
func (s *CSVSource) Load(ctx context.Context) ([]Entry, error) {
	files := s.Files
	if len(files) == 0 {
		files = DefaultCSVFiles
	}

	var entries []Entry
	for _, c := range AllCategories {
		name, ok := files[c]
		if !ok || name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.Dir, name)
		}
		got, err := s.readFile(path, c)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}
	return entries, nil
}

func (s *CSVSource) readFile(path string, c Category) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s gazetteer: %w", c, err)
	}
	defer f.Close()

	return ReadCSV(f, c, s.Comma)
}

// ReadCSV reads names for category c from r.
func ReadCSV(r io.Reader, c Category, comma rune) ([]Entry, error) {
	reader := csv.NewReader(r)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var entries []Entry
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s gazetteer: %w", c, err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		entries = append(entries, Entry{Name: name, Category: c})
	}
	return entries, nil
}
