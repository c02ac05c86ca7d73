package infra

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"pairs_go/internal/domain"
)

// LoadPairs reads the per-pair trading parameters from a CSV file with a
// header row: sym1,sym2,window,z_entry,z_exit,stop_loss,take_profit.
// The last two columns may be empty and default to 0.05. Rows that fail
// validation are skipped with a log entry rather than poisoning the cycle.
func LoadPairs(path string) ([]domain.PairConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pairs file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse pairs file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := headerIndex(rows[0])
	pairs := make([]domain.PairConfig, 0, len(rows)-1)
	for i, row := range rows[1:] {
		pair, err := parsePairRow(col, row)
		if err != nil {
			slog.Warn("Skipping invalid pair row",
				slog.Int("row", i+2),
				slog.Any("error", err))
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func parsePairRow(col map[string]int, row []string) (domain.PairConfig, error) {
	field := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	window, err := strconv.Atoi(field("window"))
	if err != nil {
		return domain.PairConfig{}, fmt.Errorf("window: %w", err)
	}
	zEntry, err := strconv.ParseFloat(field("z_entry"), 64)
	if err != nil {
		return domain.PairConfig{}, fmt.Errorf("z_entry: %w", err)
	}
	zExit, err := strconv.ParseFloat(field("z_exit"), 64)
	if err != nil {
		return domain.PairConfig{}, fmt.Errorf("z_exit: %w", err)
	}

	pair := domain.PairConfig{
		Sym1:       field("sym1"),
		Sym2:       field("sym2"),
		Window:     window,
		ZEntry:     zEntry,
		ZExit:      zExit,
		StopLoss:   parseFloatDefault(field("stop_loss"), domain.DefaultRiskLimit),
		TakeProfit: parseFloatDefault(field("take_profit"), domain.DefaultRiskLimit),
	}
	if err := pair.Validate(); err != nil {
		return domain.PairConfig{}, err
	}
	return pair, nil
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
