package eventindex

import (
	"encoding/json"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

const (
	amountParam  = "amount"
	topAddresses = 10

	hourLayout = "2006-01-02T15"
	dayLayout  = "2006-01-02"
)

type groupAcc struct {
	count     int
	addresses map[string]struct{}
	sum       float64
	amounts   int
}

// Aggregate groups events inside the time window and reports per group counts,
// distinct addresses and the sum and mean of a numeric amount parameter.
func (i *Indexer) Aggregate(spec events.AggregationSpec) []events.AggregateGroup {
	window := &events.TimeRange{From: spec.FromTime, To: spec.ToTime}
	groups := make(map[string]*groupAcc)

	i.mu.RLock()
	for _, e := range i.entries {
		ev := e.ev
		if !window.Contains(ev.Timestamp) {
			continue
		}

		key := groupKey(ev, spec.GroupBy)
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{addresses: make(map[string]struct{})}
			groups[key] = acc
		}

		acc.count++
		for _, addr := range eventAddresses(ev) {
			acc.addresses[addr] = struct{}{}
		}
		if amount, ok := numeric(ev.Params[amountParam]); ok {
			acc.sum += amount
			acc.amounts++
		}
	}
	i.mu.RUnlock()

	out := make([]events.AggregateGroup, 0, len(groups))
	for key, acc := range groups {
		g := events.AggregateGroup{
			Key:             key,
			Count:           acc.count,
			UniqueAddresses: len(acc.addresses),
		}
		if acc.amounts > 0 {
			g.TotalAmount = acc.sum
			g.AverageAmount = acc.sum / float64(acc.amounts)
		}
		out = append(out, g)
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Key < out[b].Key
	})

	return out
}

func groupKey(ev *events.IndexedEvent, by events.GroupBy) string {
	switch by {
	case events.GroupByChainID:
		return ev.ChainID
	case events.GroupByAddress:
		return strings.ToLower(ev.Address.Hex())
	default:
		return ev.EventName
	}
}

// eventAddresses returns the lower-cased contract address plus every address valued parameter.
func eventAddresses(ev *events.IndexedEvent) []string {
	out := []string{strings.ToLower(ev.Address.Hex())}
	for _, v := range ev.Params {
		switch x := v.(type) {
		case common.Address:
			out = append(out, strings.ToLower(x.Hex()))
		case string:
			if common.IsHexAddress(x) {
				out = append(out, strings.ToLower(common.HexToAddress(x).Hex()))
			}
		}
	}
	return out
}

// numeric converts numeric parameter values to float64.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case *big.Int:
		if x == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}

	return 0, false
}

// Statistics summarises the events inside the optional time range.
// Top addresses are ordered by count; ties go to the address seen first.
func (i *Indexer) Statistics(window *events.TimeRange) events.Statistics {
	stats := events.Statistics{
		ByEventName: make(map[string]int),
		ByChain:     make(map[string]int),
		ByHour:      make(map[string]int),
		ByDay:       make(map[string]int),
	}

	type addrAcc struct {
		addr      string
		count     int
		firstSeen uint64
	}
	addrs := make(map[string]*addrAcc)

	i.mu.RLock()
	for _, e := range i.entries {
		ev := e.ev
		if !window.Contains(ev.Timestamp) {
			continue
		}

		stats.TotalEvents++
		stats.ByEventName[ev.EventName]++
		stats.ByChain[ev.ChainID]++
		ts := ev.Timestamp.UTC()
		stats.ByHour[ts.Format(hourLayout)]++
		stats.ByDay[ts.Format(dayLayout)]++

		addr := strings.ToLower(ev.Address.Hex())
		acc, ok := addrs[addr]
		if !ok {
			acc = &addrAcc{addr: addr, firstSeen: e.seq}
			addrs[addr] = acc
		}
		acc.count++
		acc.firstSeen = min(acc.firstSeen, e.seq)
	}
	i.mu.RUnlock()

	ranked := make([]*addrAcc, 0, len(addrs))
	for _, a := range addrs {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].count != ranked[b].count {
			return ranked[a].count > ranked[b].count
		}
		return ranked[a].firstSeen < ranked[b].firstSeen
	})

	stats.TopAddresses = make([]events.AddressCount, 0, min(len(ranked), topAddresses))
	for _, a := range ranked[:min(len(ranked), topAddresses)] {
		stats.TopAddresses = append(stats.TopAddresses, events.AddressCount{Address: a.addr, Count: a.count})
	}

	return stats
}
