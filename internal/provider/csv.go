package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"quantbt/internal/types"
)

// CSVBenchmarkSource reads daily benchmark series from <dir>/<benchmark>.csv
// files with date, price and return columns. Missing returns are derived
// from consecutive prices.
type CSVBenchmarkSource struct {
	Dir string
}

// NewCSVBenchmarkSource creates a file-backed benchmark source.
func NewCSVBenchmarkSource(dir string) *CSVBenchmarkSource {
	return &CSVBenchmarkSource{Dir: dir}
}

// History loads the benchmark file and filters it to the window.
func (s *CSVBenchmarkSource) History(ctx context.Context, benchmark string, from, to time.Time) ([]types.BenchmarkPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.Dir, strings.ToUpper(benchmark)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark file: %w", err)
	}
	defer f.Close()

	var rows []*types.BenchmarkPoint
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	fromDate := from.UTC().Format(dateLayout)
	toDate := to.UTC().Format(dateLayout)

	var points []types.BenchmarkPoint
	var prevPrice float64
	for _, row := range rows {
		if row == nil {
			continue
		}
		p := *row
		if p.Return == 0 && prevPrice > 0 {
			p.Return = (p.Price - prevPrice) / prevPrice
		}
		prevPrice = p.Price
		if p.Date < fromDate || p.Date > toDate {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// signalRow is one CSV line of agent signal data: a dotted field path and
// its value for a day.
type signalRow struct {
	Date  string  `csv:"date"`
	Field string  `csv:"field"`
	Value float64 `csv:"value"`
}

// CSVSignalSource reads per-agent signal records from <dir>/<agent>.csv
// files. Each file is loaded once and cached; rows are folded into nested
// records keyed by date.
type CSVSignalSource struct {
	Dir string

	mu    sync.Mutex
	cache map[string]map[string]map[string]interface{} // agent -> date -> record
}

// NewCSVSignalSource creates a file-backed signal source.
func NewCSVSignalSource(dir string) *CSVSignalSource {
	return &CSVSignalSource{
		Dir:   dir,
		cache: make(map[string]map[string]map[string]interface{}),
	}
}

// Signals returns the agent's record for a day. Days without rows yield an
// empty record, not an error.
func (s *CSVSignalSource) Signals(ctx context.Context, agentID, date string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byDate, err := s.load(agentID)
	if err != nil {
		return nil, err
	}
	record, ok := byDate[date]
	if !ok {
		return map[string]interface{}{}, nil
	}
	return record, nil
}

func (s *CSVSignalSource) load(agentID string) (map[string]map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byDate, ok := s.cache[agentID]; ok {
		return byDate, nil
	}

	path := filepath.Join(s.Dir, agentID+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal file: %w", err)
	}
	defer f.Close()

	var rows []*signalRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	byDate := make(map[string]map[string]interface{})
	for _, row := range rows {
		if row == nil || row.Date == "" || row.Field == "" {
			continue
		}
		record, ok := byDate[row.Date]
		if !ok {
			record = make(map[string]interface{})
			byDate[row.Date] = record
		}
		insertPath(record, row.Field, row.Value)
	}
	s.cache[agentID] = byDate
	return byDate, nil
}

// insertPath writes a value into a nested record along a dotted path,
// creating intermediate maps as needed.
func insertPath(record map[string]interface{}, path string, value interface{}) {
	segs := strings.Split(path, ".")
	current := record
	for i, seg := range segs {
		if i == len(segs)-1 {
			current[seg] = value
			return
		}
		next, ok := current[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[seg] = next
		}
		current = next
	}
}
