package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return testEpoch.Add(time.Duration(sec) * time.Second) }

func snapshot(system, station string, sec int, goods ...string) CommodityEvent {
	lines := make([]CommodityLine, len(goods))
	for i, g := range goods {
		lines[i] = CommodityLine{Name: g, SellPrice: int64(100 + i), MeanPrice: 100}
	}
	return CommodityEvent{SystemName: system, Station: station, MarketID: 1, Timestamp: at(sec), Commodities: lines}
}

// dock builds a visit whose government names its timestamp, so tests can
// tell which visit was picked.
func dock(system, station string, sec int) StationVisitEvent {
	return StationVisitEvent{
		SystemName:   system,
		Station:      station,
		MarketID:     1,
		Timestamp:    at(sec),
		Allegiance:   DefaultAllegiance,
		Government:   fmt.Sprintf("t%d", sec),
		StationType:  "Coriolis",
		FactionState: DefaultFactionState,
	}
}

var testSystems = SystemTable{
	"Sol":     {Population: 22780919531, Security: "High", Stars: 1, RockBodies: 4, GasGiants: 4, IcyRings: 1},
	"Achenar": {Population: 12934992619, Security: "High", Stars: 2},
}

func government(t *testing.T, r MergedRecord) string {
	t.Helper()
	v, ok := r.Value("station_government")
	require.True(t, ok)
	return v
}

func TestJoin_EndToEndScenario(t *testing.T) {
	commodities := []CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")}
	visits := []StationVisitEvent{
		dock("Sol", "Station A", 1200),
		dock("Sol", "Station B", 1050),
	}

	res, err := Join(commodities, visits, testSystems, DefaultTolerance)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 0, res.Unmatched)

	rec := res.Records[0]
	name, _ := rec.Value("name")
	assert.Equal(t, "Gold", name)
	assert.Equal(t, "t1200", government(t, rec))
	station, _ := rec.Value("station")
	assert.Equal(t, "Station A", station)
	pop, _ := rec.Value("population")
	assert.Equal(t, "22780919531", pop)
}

func TestJoin_DropScenario(t *testing.T) {
	commodities := []CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")}
	visits := []StationVisitEvent{
		dock("Sol", "Station A", 1200),
		dock("Sol", "Station B", 1050),
	}

	res, err := Join(commodities, visits, testSystems, 100*time.Second)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Matched)
	assert.Equal(t, 1, res.Unmatched)
}

func TestJoin_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name    string
		visitAt int
		matched bool
	}{
		{"exactly tolerance after", 1300, true},
		{"exactly tolerance before", 700, true},
		{"one second past tolerance after", 1301, false},
		{"one second past tolerance before", 699, false},
		{"same instant", 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Join(
				[]CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")},
				[]StationVisitEvent{dock("Sol", "Station A", tt.visitAt)},
				testSystems, 300*time.Second,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.matched, len(res.Records) == 1)
		})
	}
}

func TestJoin_PicksNearestVisit(t *testing.T) {
	visits := []StationVisitEvent{
		dock("Sol", "Station A", 1150),
		dock("Sol", "Station A", 900),
		dock("Sol", "Station A", 1080),
		dock("Sol", "Station A", 1290),
	}

	res, err := Join([]CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")}, visits, testSystems, DefaultTolerance)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "t1080", government(t, res.Records[0]))
}

func TestJoin_TieGoesToEarliest(t *testing.T) {
	t.Run("equal gap either side", func(t *testing.T) {
		visits := []StationVisitEvent{
			dock("Sol", "Station A", 1100),
			dock("Sol", "Station A", 900),
		}
		res, err := Join([]CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")}, visits, testSystems, DefaultTolerance)
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "t900", government(t, res.Records[0]))
	})

	t.Run("identical timestamps keep log order", func(t *testing.T) {
		first := dock("Sol", "Station A", 1100)
		first.Allegiance = "Federation"
		second := dock("Sol", "Station A", 1100)
		second.Allegiance = "Empire"

		res, err := Join([]CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")},
			[]StationVisitEvent{first, second}, testSystems, DefaultTolerance)
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		allegiance, _ := res.Records[0].Value("station_allegiance")
		assert.Equal(t, "Federation", allegiance)
	})
}

func TestJoin_NoCrossStationMatch(t *testing.T) {
	visits := []StationVisitEvent{
		dock("Sol", "Station B", 1000),
		dock("Achenar", "Station A", 1000),
	}

	res, err := Join([]CommodityEvent{snapshot("Sol", "Station A", 1000, "Gold")}, visits, testSystems, DefaultTolerance)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Unmatched)
}

func TestJoin_SystemWithoutVisits(t *testing.T) {
	res, err := Join([]CommodityEvent{snapshot("Lave", "Lave Station", 1000, "Gold")},
		[]StationVisitEvent{dock("Sol", "Station A", 1000)}, testSystems, DefaultTolerance)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Unmatched)
}

func TestJoin_MissingReferenceData(t *testing.T) {
	commodities := []CommodityEvent{
		snapshot("Sol", "Station A", 1000, "Gold"),
		snapshot("Lave", "Lave Station", 1000, "Gold"),
	}
	visits := []StationVisitEvent{
		dock("Sol", "Station A", 1000),
		dock("Lave", "Lave Station", 1010),
	}

	res, err := Join(commodities, visits, testSystems, DefaultTolerance)

	var missing *ReferenceDataMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Lave", missing.System)
	assert.Equal(t, 1, res.Matched, "counts up to the failure are kept")
}

func TestJoin_UnmatchedSnapshotNeedsNoReferenceData(t *testing.T) {
	res, err := Join([]CommodityEvent{snapshot("Lave", "Lave Station", 1000, "Gold")}, nil, testSystems, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unmatched)
}

func TestJoin_OneRecordPerCommodityLine(t *testing.T) {
	res, err := Join(
		[]CommodityEvent{
			snapshot("Sol", "Station A", 1000, "Gold", "Silver", "Tea"),
			snapshot("Sol", "Station A", 5000, "Coffee"),
			snapshot("Achenar", "Dawes Hub", 1000, "Slaves"),
		},
		[]StationVisitEvent{dock("Sol", "Station A", 1010), dock("Achenar", "Dawes Hub", 990)},
		testSystems, DefaultTolerance,
	)
	require.NoError(t, err)

	var names []string
	for _, r := range res.Records {
		n, _ := r.Value("name")
		names = append(names, n)
	}
	assert.Equal(t, []string{"Gold", "Silver", "Tea", "Slaves"}, names)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 1, res.Unmatched)
}

func TestJoin_FieldPrecedence(t *testing.T) {
	c := snapshot("Sol", "Station A", 1000, "Gold")
	c.MarketID = 111
	v := dock("Sol", "Station A", 1000)
	v.MarketID = 222

	res, err := Join([]CommodityEvent{c}, []StationVisitEvent{v}, testSystems, DefaultTolerance)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	marketID, _ := rec.Value("market_id")
	assert.Equal(t, "222", marketID, "visit fields override snapshot fields")

	names := rec.Names()
	assert.Equal(t, "name", names[0])
	assert.Equal(t, "system_name", names[8])
	assert.Equal(t, "market_id", names[10], "overridden field keeps its first position")
	assert.Equal(t, "metallic_rings", names[len(names)-1])
	assert.Len(t, names, 8+4+4+EconomyCount+ServiceCount+len(SystemColumns))
}

func TestJoin_NegativeTolerance(t *testing.T) {
	_, err := Join(nil, nil, testSystems, -time.Second)
	assert.Error(t, err)
	_, err = JoinConcurrent(nil, nil, testSystems, -time.Second, 4)
	assert.Error(t, err)
}

func rows(records []MergedRecord) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = append(r.Names(), r.Values()...)
	}
	return out
}

func TestJoinConcurrent_MatchesSerial(t *testing.T) {
	systems := SystemTable{}
	var commodities []CommodityEvent
	var visits []StationVisitEvent
	for s := range 12 {
		system := fmt.Sprintf("System %02d", s)
		systems[system] = SystemAttributes{Population: int64(s * 1000), Security: "Medium", Stars: int64(s%3 + 1)}
		for st := range 3 {
			station := fmt.Sprintf("Port %d", st)
			for k := range 6 {
				visits = append(visits, dock(system, station, k*170+s*7+st))
			}
		}
	}
	// Interleave systems so buckets are not contiguous in input order.
	for k := range 20 {
		for s := range 12 {
			system := fmt.Sprintf("System %02d", s)
			commodities = append(commodities, snapshot(system, fmt.Sprintf("Port %d", (k+s)%4), k*61, "Gold", "Tea"))
		}
	}

	want, err := Join(commodities, visits, systems, 45*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, want.Records)
	require.NotZero(t, want.Unmatched)

	for _, workers := range []int{1, 2, 4, 8, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := JoinConcurrent(commodities, visits, systems, 45*time.Second, workers)
			require.NoError(t, err)
			assert.Equal(t, want.Matched, got.Matched)
			assert.Equal(t, want.Unmatched, got.Unmatched)
			if diff := cmp.Diff(rows(want.Records), rows(got.Records)); diff != "" {
				t.Errorf("concurrent join differs from serial (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoinConcurrent_EarliestErrorWins(t *testing.T) {
	commodities := []CommodityEvent{
		snapshot("Sol", "Station A", 1000, "Gold"),
		snapshot("Lave", "Lave Station", 1000, "Gold"),
		snapshot("Leesti", "George Lucas", 1000, "Gold"),
	}
	visits := []StationVisitEvent{
		dock("Sol", "Station A", 1000),
		dock("Lave", "Lave Station", 1000),
		dock("Leesti", "George Lucas", 1000),
	}

	_, err := JoinConcurrent(commodities, visits, testSystems, DefaultTolerance, 3)

	var missing *ReferenceDataMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Lave", missing.System)
}

func TestJoin_Deterministic(t *testing.T) {
	commodities := []CommodityEvent{
		snapshot("Sol", "Station A", 1000, "Gold"),
		snapshot("Achenar", "Dawes Hub", 2000, "Tea"),
	}
	visits := []StationVisitEvent{
		dock("Achenar", "Dawes Hub", 2100),
		dock("Sol", "Station A", 1100),
		dock("Sol", "Station A", 900),
	}

	first, err := Join(commodities, visits, testSystems, DefaultTolerance)
	require.NoError(t, err)
	for range 10 {
		again, err := Join(commodities, visits, testSystems, DefaultTolerance)
		require.NoError(t, err)
		assert.Equal(t, rows(first.Records), rows(again.Records))
	}
}
