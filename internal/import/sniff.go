package import_pkg

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/crm-sirene/internal/dataset"
)

// Separators tried when sniffing a delimited file, in preference order
var Separators = []rune{',', ';', '\t'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// legacyEncodings are tried in order when the data is not valid UTF-8.
// Latin-1 maps every byte and therefore always succeeds.
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-15", charmap.ISO8859_15},
	{"latin1", charmap.ISO8859_1},
}

// Format describes what sniffing detected
type Format struct {
	Separator rune
	Encoding  string
}

// SeparatorName returns a printable separator
func (f Format) SeparatorName() string {
	if f.Separator == '\t' {
		return `\t`
	}
	return string(f.Separator)
}

// ParseDelimited decodes raw file content and parses it as delimited text
func ParseDelimited(data []byte) (*dataset.Table, Format, error) {
	text, enc, err := decode(data)
	if err != nil {
		return nil, Format{}, err
	}

	format := Format{Separator: sniffSeparator(text), Encoding: enc}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = format.Separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, format, fmt.Errorf("failed to parse delimited data: %w", err)
	}

	table, err := tableFromRecords(records)
	return table, format, err
}

// decode returns the content as UTF-8 along with the detected encoding
func decode(data []byte) (string, string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):]), "utf-8-sig", nil
	}
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	for _, candidate := range legacyEncodings {
		decoded, err := candidate.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), candidate.name, nil
	}
	return "", "", fmt.Errorf("unable to decode content")
}

// sniffSeparator picks the separator that splits the header line into the
// most columns. A single-column file falls back to the first separator.
func sniffSeparator(text string) rune {
	header := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		header = text[:i]
	}

	best, bestCount := Separators[0], 1
	for _, sep := range Separators {
		r := csv.NewReader(strings.NewReader(header))
		r.Comma = sep
		r.LazyQuotes = true
		fields, err := r.Read()
		if err != nil {
			continue
		}
		if len(fields) > bestCount {
			best, bestCount = sep, len(fields)
		}
	}
	return best
}
