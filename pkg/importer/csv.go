// CLAUDE:SUMMARY Reads spreadsheet CSV exports into survey rows: charset transcoding, delimiter sniffing, duplicate header suffixes.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// CSVOptions control how a spreadsheet export is read.
type CSVOptions struct {
	// Encoding is a WHATWG label ("utf-8", "windows-1252", "latin1"...).
	// Empty means UTF-8.
	Encoding string
	// Comma is the field delimiter. Zero sniffs it from the header line.
	Comma rune
}

// ReadCSV reads a header line followed by one row per submission. Every
// row carries every header column in header order: empty cells and cells
// missing from a short record hold "". Extra cells past the header are
// dropped. A header repeated n times is renamed name, name_1,
// ..., name_(n-1) in column order, the way spreadsheet exports do.
func ReadCSV(r io.Reader, opts CSVOptions) ([]*survey.Row, error) {
	if opts.Encoding != "" && !strings.EqualFold(opts.Encoding, "utf-8") {
		enc, err := htmlindex.Get(opts.Encoding)
		if err != nil {
			return nil, fmt.Errorf("csv encoding %q: %w", opts.Encoding, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = opts.Comma
	if cr.Comma == 0 {
		cr.Comma = sniffComma(data)
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return []*survey.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := dedupHeader(header)

	rows := []*survey.Row{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(rows)+2, err)
		}
		if blank(rec) {
			continue
		}
		row := survey.NewRow()
		for i, col := range columns {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			row.Set(col, survey.StringValue(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func dedupHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			out[i] = h
			continue
		}
		name := h + "_" + strconv.Itoa(n)
		// a literal "x_1" column already taken
		for seen[name] > 0 {
			n++
			name = h + "_" + strconv.Itoa(n)
		}
		seen[name] = 1
		out[i] = name
	}
	return out
}

// sniffComma picks the most frequent of ',', ';' and tab on the first line,
// ignoring quoted text. Ties prefer the comma.
func sniffComma(data []byte) rune {
	counts := map[rune]int{}
	quoted := false
	for _, c := range string(data) {
		if c == '"' {
			quoted = !quoted
			continue
		}
		if quoted {
			continue
		}
		if c == '\n' {
			break
		}
		if c == ',' || c == ';' || c == '\t' {
			counts[c]++
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
