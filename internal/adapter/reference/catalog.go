package reference

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/couchcryptid/station-market-etl/internal/domain"
)

type catalogSystem struct {
	Name       string        `json:"name"`
	Population *int64        `json:"population"`
	Security   *string       `json:"security"`
	Bodies     []catalogBody `json:"bodies"`
}

type catalogBody struct {
	Type    string        `json:"type"`
	SubType string        `json:"subType"`
	Rings   []catalogRing `json:"rings"`
}

type catalogRing struct {
	Type string `json:"type"`
}

// CatalogStats counts what BuildCatalog kept and dropped.
type CatalogStats struct {
	Systems int
	Skipped int
}

// BuildCatalog derives one attribute row per system from a body catalog dump:
// one JSON object per line, optionally wrapped in an array with trailing
// commas. Lines that do not decode to a named system are skipped.
// A system listed twice keeps its last entry.
func BuildCatalog(r io.Reader, logger *slog.Logger) (domain.SystemTable, CatalogStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64<<20)

	table := make(domain.SystemTable)
	var stats CatalogStats
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimRight(bytes.TrimSpace(scanner.Bytes()), ",")
		if len(raw) == 0 || bytes.Equal(raw, []byte("[")) || bytes.Equal(raw, []byte("]")) {
			continue
		}

		var sys catalogSystem
		if err := json.Unmarshal(raw, &sys); err != nil || sys.Name == "" {
			stats.Skipped++
			logger.Debug("catalog line skipped", "line", line, "error", err)
			continue
		}
		table[sys.Name] = sys.attributes()
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read catalog after line %d: %w", line, err)
	}
	stats.Systems = len(table)
	return table, stats, nil
}

func (s catalogSystem) attributes() domain.SystemAttributes {
	var attrs domain.SystemAttributes
	if s.Population != nil {
		attrs.Population = *s.Population
	}
	if s.Security != nil {
		attrs.Security = *s.Security
	}

	for _, body := range s.Bodies {
		if strings.EqualFold(body.Type, "star") {
			attrs.Stars++
			continue
		}

		subType := strings.ToLower(body.SubType)
		switch {
		case strings.Contains(subType, "metal"):
			attrs.MetalBodies++
		case strings.Contains(subType, "rocky"):
			attrs.RockBodies++
		case strings.Contains(subType, "icy"):
			attrs.IceBodies++
		case strings.Contains(subType, "gas giant"):
			attrs.GasGiants++
		case strings.Contains(subType, "water"),
			strings.Contains(subType, "ammonia"),
			strings.Contains(subType, "earthlike"):
			// Rings of water-class bodies are not counted.
			attrs.WaterBodies++
			continue
		}

		for _, ring := range body.Rings {
			switch strings.ToLower(ring.Type) {
			case "rocky":
				attrs.RockyRings++
			case "icy":
				attrs.IcyRings++
			case "metal rich":
				attrs.MetalRichRings++
			case "metallic":
				attrs.MetallicRings++
			}
		}
	}
	return attrs
}

// WriteReference writes systems as a reference CSV sorted by system name.
func WriteReference(w io.Writer, systems domain.SystemTable) error {
	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("write reference header: %w", err)
	}
	row := make([]string, 0, len(Header()))
	for _, name := range names {
		row = append(row[:0], name)
		for _, f := range systems[name].Fields() {
			row = append(row, f.Value)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write reference row %q: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush reference: %w", err)
	}
	return nil
}
