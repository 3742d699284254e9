package domain

import (
	"encoding/json"
	"fmt"
)

const (
	// DefaultAllegiance applies when a station reports no allegiance.
	DefaultAllegiance = "Independent"
	// DefaultFactionState applies when the station faction omits its state.
	DefaultFactionState = "None"

	// DockedEvent is the only journal event the join consumes.
	DockedEvent = "Docked"
)

// Keys present on Docked messages that carry nothing the join needs.
var journalIgnoredKeys = []string{
	"event",
	"StarPos",
	"SystemAddress",
	"DistFromStarLS",
	"StationEconomy",
	"StationState",
	"LandingPads",
	"Taxi",
	"Multicrew",
	"ActiveFine",
	"Wanted",
	"CockpitBreach",
	"horizons",
	"odyssey",
}

// ParseVisit converts a journal Docked payload into a StationVisitEvent.
// Economy and service names outside the known vocabularies are reported as
// schema drift together with any unconsumed keys.
func ParseVisit(message json.RawMessage) (StationVisitEvent, error) {
	p, err := decodePayload("journal message", message)
	if err != nil {
		return StationVisitEvent{}, err
	}

	visit := StationVisitEvent{
		SystemName: p.requiredString("StarSystem", "systemName"),
		Station:    p.requiredString("StationName", "stationName"),
		MarketID:   p.requiredInt("MarketID", "marketId"),
	}
	p.setRecord(fmt.Sprintf("journal %s/%s", visit.SystemName, visit.Station))
	visit.Timestamp = p.requiredTime("Timestamp", "timestamp")
	visit.Allegiance = p.stringOr(DefaultAllegiance, "StationAllegiance")
	visit.Government = p.requiredString("StationGovernment")
	visit.StationType = p.requiredString("StationType", "stationType")
	visit.FactionState = DefaultFactionState
	p.discard(journalIgnoredKeys...)

	if raw, _, ok := p.take("StationFaction"); ok {
		faction := p.nested("StationFaction.", raw)
		faction.discard("Name")
		visit.FactionState = faction.stringOr(DefaultFactionState, "FactionState")
	}

	var unknown []string
	for i, raw := range p.array("StationEconomies") {
		eco := p.nested(fmt.Sprintf("StationEconomies[%d].", i), raw)
		name := eco.requiredString("Name")
		share := eco.requiredFloat("Proportion")
		if name == "" {
			continue
		}
		e, ok := ParseEconomy(name)
		if !ok {
			unknown = append(unknown, "economy:"+name)
			continue
		}
		visit.Economies[e] += share
	}

	for i, raw := range p.array("StationServices") {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			p.fail(fmt.Sprintf("StationServices[%d]", i), fmt.Errorf("want string, got %s", raw))
			continue
		}
		svc, ok := ParseService(name)
		if !ok {
			unknown = append(unknown, "service:"+name)
			continue
		}
		visit.Services[svc] = true
	}

	if err := p.complete(unknown...); err != nil {
		return StationVisitEvent{}, err
	}
	return visit, nil
}
