package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/pkg/logger"
)

var ErrInvalidTableName = errors.New("invalid table name")

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client reads dataset tables out of a SQLite file. The file is opened
// read-only; the dashboard never writes to its sources.
type Client struct {
	db   *sql.DB
	path string
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_query_only=true", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}

	logger.Debug("SQLite source opened", zap.String("path", dbPath))

	return &Client{db: db, path: dbPath}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// ReadTable returns the header and every row of a table rendered as text,
// in rowid order, matching what a CSV export of the same table would hold.
func (c *Client) ReadTable(name string) ([]string, [][]string, error) {
	if !tableNamePattern.MatchString(name) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}

	rows, err := c.db.Query(fmt.Sprintf(`SELECT * FROM "%s" ORDER BY rowid`, name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query table %s: %w", name, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	records := make([][]string, 0)
	for rows.Next() {
		cells := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}

		record := make([]string, len(header))
		for i, cell := range cells {
			record[i] = render(cell)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate table %s: %w", name, err)
	}

	logger.Debug("SQLite table read",
		zap.String("path", c.path),
		zap.String("table", name),
		zap.Int("rows", len(records)),
	)

	return header, records, nil
}

func render(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []byte:
		return string(v)
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}
