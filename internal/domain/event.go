package domain

import (
	"encoding/json"
	"time"
)

// RawEvent is one line of the event log after the envelope has been decoded.
// The message payload stays undecoded until a parser claims it.
type RawEvent struct {
	Line    int             // 1-based line number in the log
	Schema  string          // $schemaRef
	Event   string          // message.event for journal lines, empty otherwise
	Message json.RawMessage // message payload
	Raw     []byte          // full line, for diagnostics
}

// CommodityLine is one tradable good inside a market snapshot.
type CommodityLine struct {
	Name          string
	BuyPrice      int64
	SellPrice     int64
	MeanPrice     int64
	Demand        int64
	DemandBracket int64
	Stock         int64
	StockBracket  int64
}

// CommodityEvent is one market snapshot at one station at one instant.
type CommodityEvent struct {
	SystemName  string
	Station     string
	MarketID    int64
	Timestamp   time.Time
	Commodities []CommodityLine
}

// StationVisitEvent is one observed docking at a station.
type StationVisitEvent struct {
	SystemName   string
	Station      string
	MarketID     int64
	Timestamp    time.Time
	Allegiance   string
	Government   string
	StationType  string
	FactionState string
	Economies    EconomyShares
	Services     ServiceSet
}

// SystemAttributes are the static per-system reference values derived from
// the astronomical catalog.
type SystemAttributes struct {
	Population int64
	Security   string
	Stars      int64

	MetalBodies int64
	RockBodies  int64
	IceBodies   int64
	WaterBodies int64
	GasGiants   int64

	RockyRings     int64
	IcyRings       int64
	MetalRichRings int64
	MetallicRings  int64
}

// SystemLookup resolves reference attributes by system name.
type SystemLookup interface {
	Lookup(systemName string) (SystemAttributes, bool)
}

// SystemTable is an in-memory SystemLookup. It is built once and only read
// afterwards, so it is safe to share between goroutines.
type SystemTable map[string]SystemAttributes

// Lookup implements SystemLookup.
func (t SystemTable) Lookup(systemName string) (SystemAttributes, bool) {
	attrs, ok := t[systemName]
	return attrs, ok
}
