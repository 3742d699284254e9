package domain

import (
	"encoding/json"
	"fmt"
)

// Keys present on commodity messages that carry nothing the join needs.
var commodityIgnoredKeys = []string{
	"economies",
	"prohibited",
	"horizons",
	"odyssey",
	"stationType",
	"StationType",
	"carrierDockingAccess",
}

// ParseCommodity converts a commodity message payload into a CommodityEvent.
// Every key of the payload (and of each commodity line) must be accounted
// for; leftovers fail with a SchemaDriftError.
func ParseCommodity(message json.RawMessage) (CommodityEvent, error) {
	p, err := decodePayload("commodity message", message)
	if err != nil {
		return CommodityEvent{}, err
	}

	event := CommodityEvent{
		SystemName: p.requiredString("StarSystem", "systemName"),
		Station:    p.requiredString("StationName", "stationName"),
		MarketID:   p.requiredInt("MarketID", "marketId"),
	}
	p.setRecord(fmt.Sprintf("commodity %s/%s", event.SystemName, event.Station))
	event.Timestamp = p.requiredTime("Timestamp", "timestamp")
	p.discard(commodityIgnoredKeys...)

	items := p.array("commodities")
	event.Commodities = make([]CommodityLine, 0, len(items))
	for i, raw := range items {
		event.Commodities = append(event.Commodities, parseCommodityLine(p.nested(fmt.Sprintf("commodities[%d].", i), raw)))
	}
	if items == nil {
		p.fail("commodities", errMissing)
	}

	if err := p.complete(); err != nil {
		return CommodityEvent{}, err
	}
	return event, nil
}

func parseCommodityLine(p *payload) CommodityLine {
	line := CommodityLine{
		Name:          p.requiredString("name"),
		BuyPrice:      p.requiredInt("buyPrice"),
		SellPrice:     p.requiredInt("sellPrice"),
		MeanPrice:     p.requiredInt("meanPrice"),
		Demand:        p.requiredInt("demand"),
		DemandBracket: p.requiredInt("demandBracket"),
		Stock:         p.requiredInt("stock"),
		StockBracket:  p.requiredInt("stockBracket"),
	}
	p.discard("statusFlags")
	return line
}
