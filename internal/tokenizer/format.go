package tokenizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// JumbledSeparator delimits address parts in raw exports.
const JumbledSeparator = "!"

// FormatJumbled rewrites a space-delimited export whose first field joins
// address parts with "!" into one Separator-joined address per row. Other
// fields are dropped. It returns the number of rows written.
func FormatJumbled(r io.Reader, w io.Writer) (int, error) {
	reader := csv.NewReader(r)
	reader.Comma = ' '
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	writer := csv.NewWriter(w)
	writer.Comma = ' '

	n := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read row %d: %w", n+1, err)
		}
		if len(record) == 0 {
			continue
		}
		if err := writer.Write([]string{strings.ReplaceAll(record[0], JumbledSeparator, Separator)}); err != nil {
			return n, fmt.Errorf("write row %d: %w", n+1, err)
		}
		n++
	}

	writer.Flush()
	return n, writer.Error()
}
