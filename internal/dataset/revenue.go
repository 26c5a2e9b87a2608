package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gmv-dashboard/backend/internal/source"
	"github.com/gmv-dashboard/backend/internal/table"
)

// Revenue record fields, in output column order.
const (
	Baseline       = "baseline"
	Optimized      = "optimized"
	Improvement    = "improvement"
	ImprovementPct = "improvement_pct"
)

var revenueFields = []string{Baseline, Optimized, Improvement, ImprovementPct}

var (
	ErrMalformedMapping = errors.New("malformed mapping literal")
	ErrUnexpectedKey    = errors.New("unexpected key")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrMissingKey       = errors.New("missing key")
)

// float64Wrapper matches the numpy scalar repr some exporters write around
// plain numbers, e.g. np.float64(1.5).
var float64Wrapper = regexp.MustCompile(`np\.float64\(([^()]*)\)`)

// RevenueRecord is the parsed nested revenue mapping.
type RevenueRecord struct {
	Baseline       float64 `json:"baseline"`
	Optimized      float64 `json:"optimized"`
	Improvement    float64 `json:"improvement"`
	ImprovementPct float64 `json:"improvement_pct"`
}

func (r RevenueRecord) field(name string) float64 {
	switch name {
	case Baseline:
		return r.Baseline
	case Optimized:
		return r.Optimized
	case Improvement:
		return r.Improvement
	default:
		return r.ImprovementPct
	}
}

// LoadRevenueSummary reads per-period revenue rows and expands the nested
// revenue mapping into baseline, optimized, improvement and improvement_pct
// columns.
func (l *Loader) LoadRevenueSummary(ctx context.Context, src source.Source) (*table.Table, error) {
	col := l.revenueColumn
	return l.load(ctx, RevenueSummary, src, func(t *table.Table) (*table.Table, error) {
		return normalizeRevenue(t, col)
	})
}

func normalizeRevenue(t *table.Table, col string) (*table.Table, error) {
	if err := t.Require(col); err != nil {
		return nil, err
	}

	records := make([]RevenueRecord, t.Len())
	for i, r := range t.Rows {
		text := r.Get(col).String()
		rec, err := ParseRevenueRecord(text)
		if err != nil {
			return nil, &DataParseError{Row: i, Column: col, Text: text, Err: err}
		}
		records[i] = rec
	}

	out := t.Clone()
	for _, name := range revenueFields {
		if !out.HasColumn(name) {
			out.Columns = append(out.Columns, name)
		}
	}
	for i, r := range out.Rows {
		for _, name := range revenueFields {
			r[name] = table.NumberValue(records[i].field(name))
		}
	}
	return out, nil
}

// ParseRevenueRecord parses a mapping literal of exactly the four revenue
// keys to numeric literals, e.g.
//
//	{'baseline': 100, 'optimized': np.float64(120.0), 'improvement': 20, 'improvement_pct': 20.0}
//
// Keys may be single or double quoted and appear in any order, each once.
// A trailing comma is accepted. Anything else is rejected; no expression is
// ever evaluated.
func ParseRevenueRecord(text string) (RevenueRecord, error) {
	p := &mappingParser{s: float64Wrapper.ReplaceAllString(text, "$1")}

	values, err := p.parse()
	if err != nil {
		return RevenueRecord{}, err
	}

	for _, name := range revenueFields {
		if _, ok := values[name]; !ok {
			return RevenueRecord{}, fmt.Errorf("%w: %q", ErrMissingKey, name)
		}
	}

	return RevenueRecord{
		Baseline:       values[Baseline],
		Optimized:      values[Optimized],
		Improvement:    values[Improvement],
		ImprovementPct: values[ImprovementPct],
	}, nil
}

type mappingParser struct {
	s   string
	pos int
}

func (p *mappingParser) parse() (map[string]float64, error) {
	values := make(map[string]float64, len(revenueFields))

	if !p.consume('{') {
		return nil, p.fail("expected '{'")
	}
	for {
		if p.consume('}') {
			break
		}

		key, err := p.key()
		if err != nil {
			return nil, err
		}
		if !isRevenueField(key) {
			return nil, fmt.Errorf("%w: %q", ErrUnexpectedKey, key)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}

		if !p.consume(':') {
			return nil, p.fail("expected ':'")
		}

		num, err := p.number()
		if err != nil {
			return nil, err
		}
		values[key] = num

		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			break
		}
		return nil, p.fail("expected ',' or '}'")
	}

	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, p.fail("trailing text")
	}
	return values, nil
}

func (p *mappingParser) skipSpace() {
	for p.pos < len(p.s) && strings.ContainsRune(" \t\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
}

func (p *mappingParser) consume(c byte) bool {
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *mappingParser) key() (string, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return "", p.fail("expected key")
	}
	quote := p.s[p.pos]
	if quote != '\'' && quote != '"' {
		return "", p.fail("expected quoted key")
	}
	end := strings.IndexByte(p.s[p.pos+1:], quote)
	if end < 0 {
		return "", p.fail("unterminated key")
	}
	key := p.s[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return key, nil
}

func (p *mappingParser) number() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && strings.ContainsRune("0123456789+-.eE", rune(p.s[p.pos])) {
		p.pos++
	}
	lit := p.s[start:p.pos]
	if lit == "" {
		return 0, p.fail("expected number")
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: invalid number %q", ErrMalformedMapping, lit)
	}
	return f, nil
}

func (p *mappingParser) fail(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedMapping, msg, p.pos)
}

func isRevenueField(key string) bool {
	for _, f := range revenueFields {
		if f == key {
			return true
		}
	}
	return false
}
