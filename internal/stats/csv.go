package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// WriteCSV renders a snapshot as CSV: one row per domain plus a totals
// row, with byte counts formatted for humans.
func WriteCSV(w io.Writer, snap Snapshot) error {
	cw := csv.NewWriter(w)

	header := append([]string{"domain"}, counterOrder...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	domains := make([]string, 0, len(snap.Domains))
	for domain := range snap.Domains {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		if err := cw.Write(counterRow(domain, snap.Domains[domain])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := cw.Write(counterRow("TOTAL", snap.Totals)); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ExportCSV writes the snapshot to dir as stats_<runID>.csv and returns
// the file path.
func ExportCSV(dir string, snap Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create stats directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("stats_%s.csv", snap.RunID))
	f, err := os.Create(path) // #nosec G304 -- path is built from the configured stats directory.
	if err != nil {
		return "", fmt.Errorf("create stats file: %w", err)
	}
	if err := WriteCSV(f, snap); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close stats file: %w", err)
	}
	return path, nil
}

func counterRow(label string, counters map[string]int64) []string {
	row := make([]string, 0, len(counterOrder)+1)
	row = append(row, label)
	for _, counter := range counterOrder {
		v := counters[counter]
		if counter == CounterBytes {
			row = append(row, FormatBytes(v))
		} else {
			row = append(row, strconv.FormatInt(v, 10))
		}
	}
	return row
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
