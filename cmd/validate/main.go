// Command validate checks a merged output CSV for integrity: the header
// matches the merged column layout, every value parses as its column's type,
// economy shares and service flags are in range, and the system columns
// agree with the reference table the join was run against.
//
// Usage:
//
//	go run ./cmd/validate -merged data/merged.csv -systems data/systems.csv
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/station-market-etl/internal/adapter/fileio"
	"github.com/couchcryptid/station-market-etl/internal/adapter/reference"
	"github.com/couchcryptid/station-market-etl/internal/domain"
)

// maxErrorsShown caps the detail printed per phase.
const maxErrorsShown = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// table is a loaded merged CSV.
type table struct {
	header []string
	col    map[string]int
	rows   [][]string
}

func (t *table) get(row []string, name string) string {
	i, ok := t.col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func main() {
	mergedPath := flag.String("merged", "", "merged output CSV")
	systemsPath := flag.String("systems", "", "system reference CSV used for the join")
	flag.Parse()

	if *mergedPath == "" || *systemsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*mergedPath, *systemsPath); code != 0 {
		os.Exit(code)
	}
}

func run(mergedPath, systemsPath string) int {
	fmt.Println("=== Merged Market Data Validation ===")
	fmt.Println()

	merged, err := loadMerged(mergedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load merged CSV: %v\n", err)
		return 1
	}

	systems, err := reference.Load(systemsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reference: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateShape(merged),
		validateValues(merged),
		validateReference(merged, systems),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d merged rows, %d reference systems\n", len(merged.rows), len(systems))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsShown {
				fmt.Printf("  ... and %d more\n", len(p.errors)-maxErrorsShown)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

func loadMerged(path string) (*table, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, err
	}

	t := &table{header: header, col: make(map[string]int, len(header))}
	for i, h := range header {
		t.col[h] = i
	}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.rows = append(t.rows, row)
	}
}

func validateShape(t *table) *phase {
	p := &phase{name: "Header and row shape"}
	want := domain.MergedColumns()
	if !slices.Equal(t.header, want) {
		for i := range max(len(want), len(t.header)) {
			var got, exp string
			if i < len(t.header) {
				got = t.header[i]
			}
			if i < len(want) {
				exp = want[i]
			}
			if got != exp {
				p.errorf("header column %d: got %q, want %q", i+1, got, exp)
			}
		}
	}
	if len(t.rows) == 0 {
		p.errorf("no data rows")
	}
	for i, row := range t.rows {
		if len(row) != len(t.header) {
			p.errorf("row %d: %d fields, header has %d", i+2, len(row), len(t.header))
		}
	}
	return p
}

// textColumns hold free text; every other column is numeric.
var textColumns = map[string]bool{
	"name":               true,
	"system_name":        true,
	"station":            true,
	"timestamp":          true,
	"station_allegiance": true,
	"station_government": true,
	"station_type":       true,
	"faction_state":      true,
	"security":           true,
}

func validateValues(t *table) *phase {
	p := &phase{name: "Field values"}
	for i, row := range t.rows {
		line := i + 2
		if ts := t.get(row, "timestamp"); !isWholeSecondUTC(ts) {
			p.errorf("row %d: timestamp %q is not whole-second RFC3339 UTC", line, ts)
		}
		if t.get(row, "name") == "" {
			p.errorf("row %d: empty commodity name", line)
		}

		var shareSum float64
		for j, name := range t.header {
			if textColumns[name] || j >= len(row) {
				continue
			}
			v := row[j]
			switch {
			case strings.HasPrefix(name, "economy_"):
				share, err := strconv.ParseFloat(v, 64)
				if err != nil || share < 0 || share > 1 {
					p.errorf("row %d: %s=%q is not a share in [0,1]", line, name, v)
				}
				shareSum += share
			case strings.HasPrefix(name, "service_"):
				if v != "0" && v != "1" {
					p.errorf("row %d: %s=%q is not a 0/1 flag", line, name, v)
				}
			default:
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					p.errorf("row %d: %s=%q is not an integer", line, name, v)
				}
			}
		}
		if shareSum > 1.0001 {
			p.errorf("row %d: economy shares sum to %g", line, shareSum)
		}
	}
	return p
}

func isWholeSecondUTC(s string) bool {
	ts, err := time.Parse(time.RFC3339, s)
	return err == nil && ts.Nanosecond() == 0 && strings.HasSuffix(s, "Z")
}

func validateReference(t *table, systems domain.SystemTable) *phase {
	p := &phase{name: "Reference consistency"}
	for i, row := range t.rows {
		line := i + 2
		name := t.get(row, "system_name")
		attrs, ok := systems.Lookup(name)
		if !ok {
			p.errorf("row %d: system %q missing from reference", line, name)
			continue
		}
		for _, f := range attrs.Fields() {
			if got := t.get(row, f.Name); got != f.Value {
				p.errorf("row %d: %s %s=%q, reference has %q", line, name, f.Name, got, f.Value)
			}
		}
	}
	return p
}
