// Package source reads immutable tabular files and reports the identity the
// cache keys them by.
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gmv-dashboard/backend/internal/storage/sqlite"
	"github.com/gmv-dashboard/backend/pkg/checksum"
)

var (
	ErrNotFound          = errors.New("source not found")
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrEmpty             = errors.New("source has no header row")
)

// IdentityMode selects how a file source is fingerprinted.
type IdentityMode int

const (
	// IdentityStat fingerprints by path, size and modification time. It costs
	// a stat and never reads the file.
	IdentityStat IdentityMode = iota
	// IdentityContent fingerprints by an xxhash of the file content.
	IdentityContent
)

func ParseIdentityMode(s string) (IdentityMode, error) {
	switch s {
	case "stat", "":
		return IdentityStat, nil
	case "content":
		return IdentityContent, nil
	default:
		return 0, fmt.Errorf("unknown identity mode %q", s)
	}
}

// Identity names one version of a source's content.
type Identity struct {
	Path    string
	Size    int64
	ModTime time.Time
	Digest  string
}

// Key renders the identity for use in cache keys.
func (id Identity) Key() string {
	if id.Digest != "" {
		return id.Path + "@" + id.Digest
	}
	return fmt.Sprintf("%s@%d:%d", id.Path, id.Size, id.ModTime.UnixNano())
}

// Raw is the untyped content of a source: a header and text records.
type Raw struct {
	Header  []string
	Records [][]string
}

type Source interface {
	// Name is the stable location of the source, used for invalidation.
	Name() string
	Identity() (Identity, error)
	Read() (*Raw, error)
}

// File is a source on the local filesystem. Path may carry a "#name"
// suffix selecting a spreadsheet sheet or a SQLite table.
type File struct {
	Path string
	Mode IdentityMode
}

func NewFile(path string, mode IdentityMode) *File {
	return &File{Path: path, Mode: mode}
}

func (f *File) split() (string, string) {
	if i := strings.LastIndex(f.Path, "#"); i >= 0 {
		return f.Path[:i], f.Path[i+1:]
	}
	return f.Path, ""
}

func (f *File) Name() string {
	p, _ := f.split()
	return filepath.Clean(p)
}

func (f *File) Identity() (Identity, error) {
	path, _ := f.split()
	info, err := os.Stat(path)
	if err != nil {
		return Identity{}, notFound(f.Path, err)
	}

	id := Identity{Path: f.Path, Size: info.Size(), ModTime: info.ModTime()}
	if f.Mode == IdentityContent {
		digest, err := checksum.File(path)
		if err != nil {
			return Identity{}, notFound(f.Path, err)
		}
		id.Digest = digest
	}
	return id, nil
}

func (f *File) Read() (*Raw, error) {
	path, fragment := f.split()
	if _, err := os.Stat(path); err != nil {
		return nil, notFound(f.Path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, notFound(f.Path, err)
		}
		defer file.Close()
		return readCSV(file)
	case ".xlsx":
		return readXLSX(path, fragment)
	case ".db", ".sqlite", ".sqlite3":
		return readSQLite(path, fragment)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Path)
	}
}

func notFound(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return fmt.Errorf("failed to access %s: %w", path, err)
}

// Bytes is an in-memory CSV source.
type Bytes struct {
	Label string
	Data  []byte
}

func (b *Bytes) Name() string { return b.Label }

func (b *Bytes) Identity() (Identity, error) {
	return Identity{Path: b.Label, Size: int64(len(b.Data)), Digest: checksum.Bytes(b.Data)}, nil
}

func (b *Bytes) Read() (*Raw, error) {
	return readCSV(bytes.NewReader(b.Data))
}

func readCSV(r io.Reader) (*Raw, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}

	return &Raw{Header: stripBOM(header), Records: records}, nil
}

func readXLSX(path, sheet string) (*Raw, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// GetRows drops trailing empty cells.
		record := make([]string, len(header))
		copy(record, row)
		records = append(records, record)
	}
	return &Raw{Header: header, Records: records}, nil
}

func readSQLite(path, table string) (*Raw, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: %s needs a #table suffix", ErrUnsupportedFormat, path)
	}

	client, err := sqlite.NewClient(path)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	header, records, err := client.ReadTable(table)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}
	return &Raw{Header: header, Records: records}, nil
}

func stripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
