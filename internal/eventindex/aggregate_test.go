package eventindex

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/stretchr/testify/require"
)

func TestAggregate_ByEventName(t *testing.T) {
	idx, _ := newTestIndexer(t)

	seed(t, idx,
		newEvent(0, withParams(map[string]any{"from": alice, "to": bob, "amount": big.NewInt(100)})),
		newEvent(1, withParams(map[string]any{"from": bob, "to": alice, "amount": json.Number("300")})),
		newEvent(2, withName("Approval"), withParams(map[string]any{"owner": alice})),
		newEvent(3, withTime(baseTime.Add(48*time.Hour))),
	)

	groups := idx.Aggregate(events.AggregationSpec{
		GroupBy: events.GroupByEventName,
		ToTime:  ptrTime(baseTime.Add(time.Hour)),
	})

	require.Equal(t, []events.AggregateGroup{
		{Key: "Transfer", Count: 2, UniqueAddresses: 3, TotalAmount: 400, AverageAmount: 200},
		{Key: "Approval", Count: 1, UniqueAddresses: 2},
	}, groups)
}

func TestAggregate_ByAddressAndChain(t *testing.T) {
	idx, _ := newTestIndexer(t)

	seed(t, idx,
		newEvent(0, withParams(map[string]any{"amount": 5})),
		newEvent(1, withAddress(tokenB), withChain("137"), withParams(map[string]any{"amount": 2.5})),
		newEvent(2, withAddress(tokenB), withChain("137"), withParams(map[string]any{"amount": "not a number"})),
	)

	byAddr := idx.Aggregate(events.AggregationSpec{GroupBy: events.GroupByAddress})
	require.Len(t, byAddr, 2)
	require.Equal(t, "0x00000000000000000000000000000000000000bb", byAddr[0].Key)
	require.Equal(t, 2, byAddr[0].Count)
	require.InDelta(t, 2.5, byAddr[0].TotalAmount, 1e-9)
	require.InDelta(t, 2.5, byAddr[0].AverageAmount, 1e-9, "mean over events with an amount")
	require.InDelta(t, 5.0, byAddr[1].TotalAmount, 1e-9)

	byChain := idx.Aggregate(events.AggregationSpec{GroupBy: events.GroupByChainID})
	require.Equal(t, "137", byChain[0].Key)
	require.Equal(t, "1", byChain[1].Key)
}

func TestStatistics(t *testing.T) {
	idx, _ := newTestIndexer(t)

	addrs := make([]common.Address, 12)
	for n := range addrs {
		addrs[n] = common.HexToAddress(fmt.Sprintf("0x%040x", n+1))
	}

	var evs []*events.ParsedEvent
	k := 0
	add := func(addr common.Address, count int, opts ...testEventOpt) {
		for range count {
			evs = append(evs, newEvent(k, append([]testEventOpt{withAddress(addr)}, opts...)...))
			k++
		}
	}
	// addrs[1] and addrs[2] tie; addrs[1] is seen first
	add(addrs[0], 5)
	add(addrs[1], 3)
	add(addrs[2], 3)
	for n := 3; n < 12; n++ {
		add(addrs[n], 1)
	}
	add(addrs[0], 1, withTime(baseTime.Add(25*time.Hour)), withName("Approval"), withChain("10"))
	seed(t, idx, evs...)

	stats := idx.Statistics(nil)
	require.Equal(t, 21, stats.TotalEvents)
	require.Equal(t, 20, stats.ByEventName["Transfer"])
	require.Equal(t, 1, stats.ByEventName["Approval"])
	require.Equal(t, 20, stats.ByChain["1"])
	require.Equal(t, 1, stats.ByDay["2024-05-02"])
	require.Equal(t, 20, stats.ByDay["2024-05-01"])
	require.Equal(t, 20, stats.ByHour["2024-05-01T12"])

	require.Len(t, stats.TopAddresses, 10)
	require.Equal(t, events.AddressCount{Address: "0x0000000000000000000000000000000000000001", Count: 6}, stats.TopAddresses[0])
	require.Equal(t, "0x0000000000000000000000000000000000000002", stats.TopAddresses[1].Address)
	require.Equal(t, "0x0000000000000000000000000000000000000003", stats.TopAddresses[2].Address)
	require.Equal(t, "0x0000000000000000000000000000000000000004", stats.TopAddresses[3].Address)

	windowed := idx.Statistics(&events.TimeRange{From: ptrTime(baseTime.Add(24 * time.Hour))})
	require.Equal(t, 1, windowed.TotalEvents)
	require.Len(t, windowed.TopAddresses, 1)
}
