// Package reference loads and builds the per-system attribute table joined
// onto every merged record.
package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/station-market-etl/internal/adapter/fileio"
	"github.com/couchcryptid/station-market-etl/internal/domain"
)

// KeyColumn is the join key and first column of the reference file.
const KeyColumn = "system_name"

// Header returns the reference file header.
func Header() []string {
	return append([]string{KeyColumn}, domain.SystemColumns...)
}

// Load reads the reference CSV at path (gzip allowed).
func Load(path string) (domain.SystemTable, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	defer rc.Close()

	table, err := Read(rc)
	if err != nil {
		return nil, fmt.Errorf("load reference data %s: %w", path, err)
	}
	return table, nil
}

// Read parses a reference table. Any malformed row fails the whole load.
func Read(r io.Reader) (domain.SystemTable, error) {
	want := Header()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(want)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range header {
		if strings.TrimSpace(name) != want[i] {
			return nil, fmt.Errorf("header column %d is %q, want %q", i+1, name, want[i])
		}
	}

	table := make(domain.SystemTable)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return table, nil
		}
		if err != nil {
			return nil, err
		}

		line, _ := cr.FieldPos(0)
		name := row[0]
		if name == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, KeyColumn)
		}
		if _, dup := table[name]; dup {
			return nil, fmt.Errorf("line %d: duplicate system %q", line, name)
		}
		attrs, err := parseRow(row[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: system %q: %w", line, name, err)
		}
		table[name] = attrs
	}
}

func parseRow(cols []string) (domain.SystemAttributes, error) {
	var attrs domain.SystemAttributes
	counts := []*int64{
		&attrs.Population,
		nil, // security
		&attrs.Stars,
		&attrs.MetalBodies,
		&attrs.RockBodies,
		&attrs.IceBodies,
		&attrs.WaterBodies,
		&attrs.GasGiants,
		&attrs.RockyRings,
		&attrs.IcyRings,
		&attrs.MetalRichRings,
		&attrs.MetallicRings,
	}
	for i, dst := range counts {
		if dst == nil {
			attrs.Security = cols[i]
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(cols[i]), 10, 64)
		if err != nil {
			return domain.SystemAttributes{}, fmt.Errorf("column %s: %w", domain.SystemColumns[i], err)
		}
		*dst = n
	}
	return attrs, nil
}
