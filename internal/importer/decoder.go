package importer

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/catalogtools/importer/internal/importer/domain"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\ufeff"

// Row is one raw CSV row keyed by normalized header name. Missing trailing
// columns are simply absent from the map.
type Row map[string]string

// Decoder streams a CSV byte source into a sequence of Rows. It reads the
// header eagerly and one data row per Next call; the input is never
// materialized in memory as a whole.
type Decoder struct {
	r      *csv.Reader
	header []string
}

// NewDecoder reads the header row and prepares a row stream. Header names are
// trimmed and lower-cased; a UTF-8 BOM on the first cell is stripped. An
// unreadable or absent header yields a *domain.DecodeError.
func NewDecoder(src io.Reader) (*Decoder, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1 // short and long rows are tolerated per-row
	r.LazyQuotes = true
	r.ReuseRecord = true

	hdr, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, domain.NewDecodeError(domain.ErrMissingHeader)
		}
		return nil, domain.NewDecodeError(err)
	}

	header := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	return &Decoder{r: r, header: header}, nil
}

// Header returns the normalized header names in input order.
func (d *Decoder) Header() []string {
	return d.header
}

// Next returns the next data row, or io.EOF when the stream is exhausted.
// Any other read failure is wrapped in a *domain.DecodeError and is fatal to
// the run; individual rows never fail on their own.
func (d *Decoder) Next() (Row, error) {
	rec, err := d.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, domain.NewDecodeError(err)
	}

	row := make(Row, len(d.header))
	for i, name := range d.header {
		if i < len(rec) {
			row[name] = rec[i]
		}
	}
	return row, nil
}

// CountRows streams through src counting data rows after the header. It is a
// separate pass over the source so the processing pass can stay one-row-at-a-
// time; memory is bounded regardless of file size.
func CountRows(src io.Reader) (int, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return 0, domain.NewDecodeError(domain.ErrMissingHeader)
		}
		return 0, domain.NewDecodeError(err)
	}

	count := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, domain.NewDecodeError(err)
		}
		count++
	}
}
