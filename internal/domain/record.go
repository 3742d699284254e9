package domain

import (
	"strconv"
	"time"
)

// Field is one named column value of a merged record.
type Field struct {
	Name  string
	Value string
}

// MergedRecord is an ordered set of named values. Setting an existing name
// replaces its value but keeps its original position.
type MergedRecord struct {
	fields []Field
	index  map[string]int
}

// NewMergedRecord merges the given field groups in order. Later groups win on
// name collisions.
func NewMergedRecord(groups ...[]Field) MergedRecord {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	r := MergedRecord{fields: make([]Field, 0, n), index: make(map[string]int, n)}
	for _, g := range groups {
		for _, f := range g {
			r.set(f.Name, f.Value)
		}
	}
	return r
}

func (r *MergedRecord) set(name, value string) {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Len returns the number of fields.
func (r MergedRecord) Len() int { return len(r.fields) }

// Names returns the field names in record order.
func (r MergedRecord) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in record order.
func (r MergedRecord) Values() []string {
	values := make([]string, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.Value
	}
	return values
}

// Value returns the value for name.
func (r MergedRecord) Value(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Fields returns a copy of the fields in record order.
func (r MergedRecord) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func intField(name string, v int64) Field {
	return Field{Name: name, Value: strconv.FormatInt(v, 10)}
}

func floatField(name string, v float64) Field {
	return Field{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Fields returns the per-line columns.
func (l CommodityLine) Fields() []Field {
	return []Field{
		{Name: "name", Value: l.Name},
		intField("buy_price", l.BuyPrice),
		intField("sell_price", l.SellPrice),
		intField("mean_price", l.MeanPrice),
		intField("demand", l.Demand),
		intField("demand_bracket", l.DemandBracket),
		intField("stock", l.Stock),
		intField("stock_bracket", l.StockBracket),
	}
}

// SharedFields returns the snapshot columns shared by all of its lines.
func (c CommodityEvent) SharedFields() []Field {
	return []Field{
		{Name: "system_name", Value: c.SystemName},
		{Name: "station", Value: c.Station},
		intField("market_id", c.MarketID),
		{Name: "timestamp", Value: formatTimestamp(c.Timestamp)},
	}
}

// MergeFields returns the visit columns contributed to a merged record. The
// visit's own system, station and timestamp are left out; the snapshot's
// values stand for the pair.
func (v StationVisitEvent) MergeFields() []Field {
	fields := make([]Field, 0, 5+EconomyCount+ServiceCount)
	fields = append(fields,
		intField("market_id", v.MarketID),
		Field{Name: "station_allegiance", Value: v.Allegiance},
		Field{Name: "station_government", Value: v.Government},
		Field{Name: "station_type", Value: v.StationType},
		Field{Name: "faction_state", Value: v.FactionState},
	)
	for i := range EconomyCount {
		e := Economy(i)
		fields = append(fields, floatField(e.Column(), v.Economies[e]))
	}
	for i := range ServiceCount {
		s := Service(i)
		fields = append(fields, intField(s.Column(), int64(v.Services.Flag(s))))
	}
	return fields
}

// SystemColumns are the reference columns in output and file order.
var SystemColumns = []string{
	"population",
	"security",
	"stars",
	"metal_bodies",
	"rock_bodies",
	"ice_bodies",
	"water_bodies",
	"gas_giants",
	"rocky_rings",
	"icy_rings",
	"metal_rich_rings",
	"metallic_rings",
}

// Fields returns the reference columns in SystemColumns order.
func (s SystemAttributes) Fields() []Field {
	return []Field{
		intField("population", s.Population),
		{Name: "security", Value: s.Security},
		intField("stars", s.Stars),
		intField("metal_bodies", s.MetalBodies),
		intField("rock_bodies", s.RockBodies),
		intField("ice_bodies", s.IceBodies),
		intField("water_bodies", s.WaterBodies),
		intField("gas_giants", s.GasGiants),
		intField("rocky_rings", s.RockyRings),
		intField("icy_rings", s.IcyRings),
		intField("metal_rich_rings", s.MetalRichRings),
		intField("metallic_rings", s.MetallicRings),
	}
}

// MergedColumns returns the column names every merged record carries, in
// output order.
func MergedColumns() []string {
	return NewMergedRecord(
		CommodityLine{}.Fields(),
		CommodityEvent{}.SharedFields(),
		StationVisitEvent{}.MergeFields(),
		SystemAttributes{}.Fields(),
	).Names()
}
