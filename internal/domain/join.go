package domain

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultTolerance is the widest gap between a snapshot and a visit that
// still counts as the same stay at the station.
const DefaultTolerance = 300 * time.Second

// JoinResult holds the merged records and the match counts of a join.
type JoinResult struct {
	Records   []MergedRecord
	Matched   int // snapshots paired with a visit
	Unmatched int // snapshots dropped for lack of a visit in tolerance
}

// visitIndex groups visits by system, each group ordered by timestamp. Equal
// timestamps keep log order. The index is read-only once built.
type visitIndex map[string][]StationVisitEvent

func indexVisits(visits []StationVisitEvent) visitIndex {
	idx := make(visitIndex)
	for _, v := range visits {
		idx[v.SystemName] = append(idx[v.SystemName], v)
	}
	for _, group := range idx {
		slices.SortStableFunc(group, func(a, b StationVisitEvent) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
	}
	return idx
}

// nearest returns the visit at c's station closest in time to c within
// tolerance. The group is sorted, so the first of equally close visits is the
// earliest one.
func (idx visitIndex) nearest(c CommodityEvent, tolerance time.Duration) (StationVisitEvent, bool) {
	group := idx[c.SystemName]
	best := -1
	var bestGap time.Duration
	for i := range group {
		v := &group[i]
		delta := v.Timestamp.Sub(c.Timestamp)
		if delta > tolerance {
			break
		}
		if v.Station != c.Station {
			continue
		}
		gap := delta.Abs()
		if gap > tolerance {
			continue
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return StationVisitEvent{}, false
	}
	return group[best], true
}

// match pairs one snapshot and expands it into merged records. A nil slice
// with a nil error means the snapshot had no visit in tolerance.
func (idx visitIndex) match(c CommodityEvent, systems SystemLookup, tolerance time.Duration) ([]MergedRecord, bool, error) {
	visit, ok := idx.nearest(c, tolerance)
	if !ok {
		return nil, false, nil
	}
	attrs, ok := systems.Lookup(c.SystemName)
	if !ok {
		return nil, true, &ReferenceDataMissingError{System: c.SystemName}
	}

	shared := c.SharedFields()
	visitFields := visit.MergeFields()
	systemFields := attrs.Fields()
	records := make([]MergedRecord, 0, len(c.Commodities))
	for _, line := range c.Commodities {
		records = append(records, NewMergedRecord(line.Fields(), shared, visitFields, systemFields))
	}
	return records, true, nil
}

// Join pairs every commodity snapshot with the nearest visit at the same
// station and expands matched snapshots into one merged record per commodity
// line, in snapshot input order. Collisions resolve as snapshot < visit <
// system attributes. A matched snapshot whose system has no reference data
// aborts the join; the returned result still carries the counts so far.
func Join(commodities []CommodityEvent, visits []StationVisitEvent, systems SystemLookup, tolerance time.Duration) (JoinResult, error) {
	if tolerance < 0 {
		return JoinResult{}, fmt.Errorf("join: negative tolerance %s", tolerance)
	}
	idx := indexVisits(visits)

	var res JoinResult
	for _, c := range commodities {
		records, matched, err := idx.match(c, systems, tolerance)
		if err != nil {
			return res, fmt.Errorf("join: %w", err)
		}
		if !matched {
			res.Unmatched++
			continue
		}
		res.Matched++
		res.Records = append(res.Records, records...)
	}
	return res, nil
}

// JoinConcurrent is Join fanned out across systems. Each worker owns whole
// systems and shares the read-only visit index and reference table; results
// are reassembled in snapshot order, so the output equals Join's. On failure
// the error of the earliest failing snapshot is returned.
func JoinConcurrent(commodities []CommodityEvent, visits []StationVisitEvent, systems SystemLookup, tolerance time.Duration, workers int) (JoinResult, error) {
	if workers <= 1 {
		return Join(commodities, visits, systems, tolerance)
	}
	if tolerance < 0 {
		return JoinResult{}, fmt.Errorf("join: negative tolerance %s", tolerance)
	}
	idx := indexVisits(visits)

	// Bucket snapshot positions by system, keeping first-seen system order.
	var order []string
	buckets := make(map[string][]int)
	for i, c := range commodities {
		if _, ok := buckets[c.SystemName]; !ok {
			order = append(order, c.SystemName)
		}
		buckets[c.SystemName] = append(buckets[c.SystemName], i)
	}

	type outcome struct {
		records []MergedRecord
		matched bool
		err     error
	}
	outcomes := make([]outcome, len(commodities))

	jobs := make(chan []int)
	var wg sync.WaitGroup
	for range min(workers, len(order)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for positions := range jobs {
				for _, i := range positions {
					records, matched, err := idx.match(commodities[i], systems, tolerance)
					outcomes[i] = outcome{records: records, matched: matched, err: err}
				}
			}
		}()
	}
	for _, system := range order {
		jobs <- buckets[system]
	}
	close(jobs)
	wg.Wait()

	var res JoinResult
	for _, o := range outcomes {
		if o.err != nil {
			return res, fmt.Errorf("join: %w", o.err)
		}
		if !o.matched {
			res.Unmatched++
			continue
		}
		res.Matched++
		res.Records = append(res.Records, o.records...)
	}
	return res, nil
}
