// Command genmock generates a deterministic synthetic event log and matching
// system reference table for local runs and load tests. It replays the
// generated log through the real domain parsers and join so the printed
// stats match what the join command will report.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -events-out data/mock/events.jsonl.gz \
//	  -systems-out data/mock/systems.csv \
//	  -snapshots 500 -seed 7
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/station-market-etl/internal/adapter/reference"
	"github.com/couchcryptid/station-market-etl/internal/domain"
	"github.com/klauspost/compress/gzip"
)

const (
	commoditySchema = "https://eddn.edcd.io/schemas/commodity/3"
	journalSchema   = "https://eddn.edcd.io/schemas/journal/1"
	shipyardSchema  = "https://eddn.edcd.io/schemas/shipyard/2"
)

var baseDate = time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC)

var goods = []string{"Gold", "Silver", "Palladium", "Tea", "Coffee", "Tritium", "Water", "Biowaste"}

var stationTypes = []string{"Coriolis", "Orbis", "Ocellus", "Outpost", "CraterPort"}

var governments = []string{"$government_Democracy;", "$government_Corporate;", "$government_Dictatorship;", "$government_Cooperative;"}

type options struct {
	eventsOut  string
	systemsOut string
	systems    int
	stations   int
	snapshots  int
	seed       uint64
	tolerance  time.Duration
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.eventsOut, "events-out", "", "output path for the event log (.gz to compress)")
	flag.StringVar(&opts.systemsOut, "systems-out", "", "output path for the system reference CSV")
	flag.IntVar(&opts.systems, "systems", 20, "number of star systems")
	flag.IntVar(&opts.stations, "stations", 3, "stations per system")
	flag.IntVar(&opts.snapshots, "snapshots", 200, "number of market snapshots")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.DurationVar(&opts.tolerance, "tolerance", domain.DefaultTolerance, "tolerance used for the printed stats")
	flag.Parse()

	if opts.eventsOut == "" || opts.systemsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -events-out, -systems-out")
	}
	if opts.systems < 1 || opts.stations < 1 || opts.snapshots < 1 {
		return fmt.Errorf("-systems, -stations and -snapshots must be positive")
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	systems := genSystems(rng, opts.systems)
	lines, err := genEventLog(rng, opts, systems)
	if err != nil {
		return fmt.Errorf("generating event log: %w", err)
	}

	if err := writeEvents(opts.eventsOut, lines); err != nil {
		return fmt.Errorf("writing event log: %w", err)
	}
	log.Printf("wrote event log: %s (%d lines)", opts.eventsOut, len(lines))

	if err := writeReference(opts.systemsOut, systems); err != nil {
		return fmt.Errorf("writing reference: %w", err)
	}
	log.Printf("wrote reference: %s (%d systems)", opts.systemsOut, len(systems))

	return printStats(lines, systems, opts.tolerance)
}

func systemName(i int) string { return fmt.Sprintf("Synth %03d", i) }

func stationName(i int) string { return fmt.Sprintf("Station %c", 'A'+rune(i%26)) }

func genSystems(rng *rand.Rand, n int) domain.SystemTable {
	securities := []string{"High", "Medium", "Low", "Anarchy"}
	table := make(domain.SystemTable, n)
	for i := range n {
		table[systemName(i)] = domain.SystemAttributes{
			Population:     rng.Int64N(30_000_000_000),
			Security:       securities[rng.IntN(len(securities))],
			Stars:          1 + rng.Int64N(3),
			MetalBodies:    rng.Int64N(4),
			RockBodies:     rng.Int64N(8),
			IceBodies:      rng.Int64N(6),
			WaterBodies:    rng.Int64N(2),
			GasGiants:      rng.Int64N(5),
			RockyRings:     rng.Int64N(3),
			IcyRings:       rng.Int64N(3),
			MetalRichRings: rng.Int64N(2),
			MetallicRings:  rng.Int64N(2),
		}
	}
	return table
}

// genEventLog emits, for each snapshot, usually one Docked visit near it in
// time plus some noise: docks at other stations, non-Docked journal events
// and an unrelated schema.
func genEventLog(rng *rand.Rand, opts options, systems domain.SystemTable) ([][]byte, error) {
	var lines [][]byte
	emit := func(schema string, message map[string]any) error {
		data, err := json.Marshal(map[string]any{
			"$schemaRef": schema,
			"header":     map[string]any{"uploaderID": fmt.Sprintf("cmdr%d", rng.IntN(50)), "softwareName": "genmock"},
			"message":    message,
		})
		if err != nil {
			return err
		}
		lines = append(lines, data)
		return nil
	}

	for i := range opts.snapshots {
		system := systemName(rng.IntN(len(systems)))
		station := stationName(rng.IntN(opts.stations))
		marketID := marketIDFor(system, station)
		at := baseDate.Add(time.Duration(i*45) * time.Second)

		if rng.Float64() < 0.85 {
			offset := time.Duration(rng.IntN(900)-450) * time.Second
			if err := emit(journalSchema, dockedMessage(rng, system, station, marketID, at.Add(offset))); err != nil {
				return nil, err
			}
		}
		if rng.Float64() < 0.2 {
			other := stationName(rng.IntN(opts.stations))
			if err := emit(journalSchema, dockedMessage(rng, system, other, marketIDFor(system, other), at)); err != nil {
				return nil, err
			}
		}
		if rng.Float64() < 0.1 {
			if err := emit(journalSchema, map[string]any{"event": "FSDJump", "StarSystem": system, "timestamp": stamp(at)}); err != nil {
				return nil, err
			}
		}
		if rng.Float64() < 0.05 {
			if err := emit(shipyardSchema, map[string]any{"systemName": system, "stationName": station, "ships": []string{}}); err != nil {
				return nil, err
			}
		}
		if err := emit(commoditySchema, commodityMessage(rng, system, station, marketID, at)); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func marketIDFor(system, station string) int64 {
	var h int64 = 3_220_000_000
	for _, r := range system + "/" + station {
		h = h*31 + int64(r)
	}
	if h < 0 {
		h = -h
	}
	return h % 4_000_000_000
}

// stamp formats t the way the feed does, with milliseconds.
func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func commodityMessage(rng *rand.Rand, system, station string, marketID int64, at time.Time) map[string]any {
	n := 1 + rng.IntN(len(goods))
	picked := rng.Perm(len(goods))[:n]
	sort.Ints(picked)

	lines := make([]map[string]any, 0, n)
	for _, g := range picked {
		mean := 100 + rng.IntN(50_000)
		lines = append(lines, map[string]any{
			"name":          goods[g],
			"meanPrice":     mean,
			"buyPrice":      mean + rng.IntN(500),
			"sellPrice":     mean - rng.IntN(500),
			"demand":        rng.IntN(10_000),
			"demandBracket": rng.IntN(4),
			"stock":         rng.IntN(10_000),
			"stockBracket":  "",
		})
	}
	return map[string]any{
		"systemName":  system,
		"stationName": station,
		"marketId":    marketID,
		"timestamp":   stamp(at),
		"commodities": lines,
	}
}

func dockedMessage(rng *rand.Rand, system, station string, marketID int64, at time.Time) map[string]any {
	economies := rng.Perm(domain.EconomyCount)[:1+rng.IntN(3)]
	shares := make([]map[string]any, 0, len(economies))
	remaining := 1.0
	for i, e := range economies {
		share := remaining
		if i < len(economies)-1 {
			share = float64(int(remaining*rng.Float64()*100)) / 100
		}
		remaining -= share
		shares = append(shares, map[string]any{
			"Name":       "$economy_" + domain.Economy(e).String() + ";",
			"Proportion": share,
		})
	}

	var services []string
	for s := range domain.ServiceCount {
		if rng.Float64() < 0.5 {
			services = append(services, domain.Service(s).String())
		}
	}

	msg := map[string]any{
		"timestamp":         stamp(at),
		"event":             domain.DockedEvent,
		"StarSystem":        system,
		"StationName":       station,
		"MarketID":          marketID,
		"StationType":       stationTypes[rng.IntN(len(stationTypes))],
		"StationGovernment": governments[rng.IntN(len(governments))],
		"StationEconomies":  shares,
		"StationServices":   services,
		"DistFromStarLS":    rng.Float64() * 5000,
	}
	if rng.Float64() < 0.7 {
		msg["StationAllegiance"] = "Federation"
	}
	faction := map[string]any{"Name": "Synthetic Faction"}
	if rng.Float64() < 0.6 {
		faction["FactionState"] = "Boom"
	}
	msg["StationFaction"] = faction
	return msg
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func writeEvents(path string, lines [][]byte) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		defer func() {
			if closeErr := zw.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		w = zw
	}

	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.Write(append(l, '\n')); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeReference(path string, systems domain.SystemTable) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return reference.WriteReference(f, systems)
}

func printStats(lines [][]byte, systems domain.SystemTable, tolerance time.Duration) error {
	var commodities []domain.CommodityEvent
	var visits []domain.StationVisitEvent
	skipped := 0
	for i, l := range lines {
		raw, err := domain.ParseEnvelope(i+1, l)
		if err != nil {
			return err
		}
		switch kind := domain.ClassifySchema(raw.Schema); {
		case kind == domain.KindCommodity:
			c, err := domain.ParseCommodity(raw.Message)
			if err != nil {
				return domain.NewLineError(i+1, l, err)
			}
			commodities = append(commodities, c)
		case kind == domain.KindJournal && raw.Event == domain.DockedEvent:
			v, err := domain.ParseVisit(raw.Message)
			if err != nil {
				return domain.NewLineError(i+1, l, err)
			}
			visits = append(visits, v)
		default:
			skipped++
		}
	}

	res, err := domain.Join(commodities, visits, systems, tolerance)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Lines: %d (skipped %d)\n", len(lines), skipped)
	fmt.Printf("Snapshots: %d, visits: %d\n", len(commodities), len(visits))
	fmt.Printf("Tolerance %s: matched=%d unmatched=%d records=%d\n", tolerance, res.Matched, res.Unmatched, len(res.Records))
	return nil
}
