// Package tables reads and writes the tab-delimited data files the ETL
// produces. Files are written unquoted with backslash escapes and read back
// with the same escapes undone.
package tables

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	fieldSep = '\t'
	rowSep   = '\n'

	// DataFile is the file name of a table inside its directory.
	DataFile = "data"
)

// Table is a header plus rows of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: header}
}

// Path returns the data file path of table name under dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name, DataFile)
}

// ReadFile reads the table stored at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	return t, nil
}

// Read parses a table written by Write. The first record is the header. A
// backslash takes the next byte literally, so escaped tabs and line breaks
// stay inside their cell. Short rows are padded with empty cells.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	return parse(func() ([]string, error) { return readRecord(br) })
}

// ReadRaw parses the unquoted output of a database export. Cells are taken
// verbatim, one record per line.
func ReadRaw(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	return parse(func() ([]string, error) {
		if sc.Scan() {
			return split(sc.Text()), nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	})
}

func parse(next func() ([]string, error)) (*Table, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}

	t := &Table{Header: header}

	for record := 2; ; record++ {
		row, err := next()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", record, err)
		}
		if len(row) == 1 && row[0] == "" {
			continue
		}

		if len(row) > len(t.Header) {
			return nil, fmt.Errorf("record %d: %d fields, header has %d", record, len(row), len(t.Header))
		}
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row)
	}
}

// readRecord returns the cells of the next record, or io.EOF when the input
// is exhausted. Unescaped carriage returns are dropped.
func readRecord(br *bufio.Reader) ([]string, error) {
	var (
		fields []string
		cell   strings.Builder
		read   bool
	)

	for {
		c, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			if !read {
				return nil, io.EOF
			}
			return append(fields, cell.String()), nil
		}
		if err != nil {
			return nil, err
		}
		read = true

		switch c {
		case '\\':
			next, err := br.ReadByte()
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("dangling escape at end of input")
			}
			if err != nil {
				return nil, err
			}
			cell.WriteByte(next)
		case fieldSep:
			fields = append(fields, cell.String())
			cell.Reset()
		case '\r':
		case rowSep:
			return append(fields, cell.String()), nil
		default:
			cell.WriteByte(c)
		}
	}
}

func split(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), string(fieldSep))
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of row i in column name.
func (t *Table) Value(i int, name string) (string, bool) {
	c := t.Column(name)
	if c < 0 || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i][c], true
}

// Append adds a row. The row must match the header width.
func (t *Table) Append(row ...string) error {
	if len(row) != len(t.Header) {
		return fmt.Errorf("row has %d fields, header has %d", len(row), len(t.Header))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// AddColumn appends a column with one value per row. An existing column of
// the same name is overwritten in place.
func (t *Table) AddColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.Rows))
	}

	if c := t.Column(name); c >= 0 {
		for i, v := range values {
			t.Rows[i][c] = v
		}
		return nil
	}

	t.Header = append(t.Header, name)
	for i, v := range values {
		t.Rows[i] = append(t.Rows[i], v)
	}
	return nil
}

// Write writes the table with quoting disabled. Backslash, tab, quote and
// line break characters inside cells are escaped with a backslash.
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if err := writeRow(bw, t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []string) error {
	for i, cell := range row {
		if i > 0 {
			if err := w.WriteByte(fieldSep); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(Escape(cell)); err != nil {
			return err
		}
	}
	return w.WriteByte(rowSep)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"\t", "\\\t",
	"'", `\'`,
	"\r", "\\\r",
	"\n", "\\\n",
)

// Escape prefixes the characters that would break an unquoted cell with a backslash.
func Escape(cell string) string {
	return escaper.Replace(cell)
}

// WriteFile writes the table to path through a temporary file that is then
// renamed over the destination. Parent directories are created.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := t.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	log.Debug().
		Str("path", path).
		Int("rows", len(t.Rows)).
		Int("columns", len(t.Header)).
		Msg("Table written")

	return nil
}
