// Package domain models the market and station-visit events broadcast by the
// Elite Dangerous Data Network (EDDN) and the join that reconciles them into
// training rows.
//
// # Data Source
//
// An upstream collector subscribes to the EDDN relay, decompresses each
// message and appends the ones it keeps to a JSON-lines log. Every line is an
// envelope:
//
//	{"$schemaRef": "https://eddn.edcd.io/schemas/commodity/3",
//	 "header":     {"uploaderID": "...", "softwareName": "...", ...},
//	 "message":    {...}}
//
// Two schema families matter here:
//
//	commodity/3  market snapshot: systemName, stationName, marketId, timestamp,
//	             commodities[] with prices, demand and stock.
//	journal/1    player journal event; only "Docked" is kept. Carries
//	             StarSystem, StationName, MarketID, government, allegiance,
//	             faction, economies and services.
//
// Anything else is skipped so new upstream schemas never break a run.
//
// # Field Naming
//
// Commodity messages use camelCase keys (systemName) while journal messages
// keep the game's PascalCase keys (StarSystem). Older uploaders mixed the two,
// so every identity key accepts both spellings. When both are present the
// PascalCase (legacy) value wins and both keys count as consumed.
//
// Timestamps are ISO-8601 in UTC, sometimes with a fractional second:
//
//	"2020-03-04T12:34:56.789Z"  →  2020-03-04 12:34:56 UTC
//
// The fraction is cut off, never rounded.
//
// # Completeness
//
// Parsers track every key they read. Keys that are known but unused (StarPos,
// horizons, prohibited, ...) are consumed explicitly. Whatever is left after
// parsing means the upstream format changed, and the record fails with a
// [SchemaDriftError] instead of silently losing data. The same applies to
// economy and service names outside the closed vocabularies in vocab.go.
//
// # Economies and Services
//
// Journal economies arrive as game symbols with a share:
//
//	{"Name": "$economy_Industrial;", "Proportion": 0.7}
//
// The symbol is normalized to lower case without the "$economy_" prefix and
// trailing ";". Economies not listed on a visit have share 0.0. Services are a
// list of lower-cased names; each known service becomes a 0/1 flag.
//
// # Join
//
// [Join] pairs each commodity snapshot with the closest-in-time Docked event at
// the same station of the same system, within a tolerance (300s by default).
// Ties go to the earlier visit. Snapshots without a partner are counted and
// dropped. Matched snapshots expand to one [MergedRecord] per commodity line.
package domain
