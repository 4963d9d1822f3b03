package parser

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/stretchr/testify/require"
)

var (
	usdc  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	nft   = common.HexToAddress("0x00000000000000000000000000000000000000f7")
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func testParser(t *testing.T) *ABIParser {
	t.Helper()

	p, err := New("1", config.ParserConfig{
		Contracts: []config.ContractConfig{
			{
				Address: usdc.Hex(),
				Events: []string{
					"Transfer(address indexed from, address indexed to, uint256 amount)",
					"Approval(address indexed owner, address indexed spender, uint256 amount)",
				},
			},
			{
				Events: []string{"Transfer(address indexed from, address indexed to, uint256 indexed tokenId)"},
			},
		},
	})
	require.NoError(t, err)

	return p
}

func topicOf(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func amountData(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New("1", config.ParserConfig{Contracts: []config.ContractConfig{
		{Address: "0x123", Events: []string{"Transfer(address,address,uint256)"}},
	}})
	require.ErrorContains(t, err, "invalid address")

	_, err = New("1", config.ParserConfig{Contracts: []config.ContractConfig{
		{Events: []string{"Transfer(address"}},
	}})
	require.ErrorContains(t, err, "contract 0")
}

func TestABIParser_ParseLog(t *testing.T) {
	p := testParser(t)

	block := events.Block{
		Number:    100,
		Hash:      common.HexToHash("0xb100"),
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	tx := events.Transaction{Hash: common.HexToHash("0x7a")}
	transfer := common.HexToHash(transferTopic)

	t.Run("erc20 transfer", func(t *testing.T) {
		l := types.Log{
			Address: usdc,
			Topics:  []common.Hash{transfer, topicOf(alice), topicOf(bob)},
			Data:    amountData(250),
			TxHash:  tx.Hash,
			Index:   3,
		}

		ev, err := p.ParseLog(l, tx, block)
		require.NoError(t, err)
		require.NotNil(t, ev)
		require.Equal(t, events.EventID(tx.Hash, 3), ev.ID)
		require.Equal(t, "1", ev.ChainID)
		require.Equal(t, "Transfer", ev.EventName)
		require.Equal(t, uint64(100), ev.BlockNumber)
		require.Equal(t, block.Hash, ev.BlockHash)
		require.Equal(t, tx.Hash, ev.TransactionHash)
		require.Equal(t, uint(3), ev.LogIndex)
		require.Equal(t, usdc, ev.Address)
		require.Equal(t, block.Timestamp, ev.Timestamp)
		require.Equal(t, events.StatusConfirmed, ev.Status)
		require.Equal(t, alice.Hex(), ev.Params["from"])
		require.Equal(t, bob.Hex(), ev.Params["to"])
		require.Equal(t, big.NewInt(250), ev.Params["amount"])
	})

	t.Run("same topic with different indexed layout", func(t *testing.T) {
		l := types.Log{
			Address: nft,
			Topics:  []common.Hash{transfer, topicOf(alice), topicOf(bob), common.BigToHash(big.NewInt(42))},
			TxHash:  tx.Hash,
			Index:   4,
		}

		ev, err := p.ParseLog(l, tx, block)
		require.NoError(t, err)
		require.NotNil(t, ev)
		require.Equal(t, big.NewInt(42), ev.Params["tokenId"])
		require.NotContains(t, ev.Params, "amount")
	})

	t.Run("event bound to another contract", func(t *testing.T) {
		approval, err := ParseSignature("Approval(address indexed owner, address indexed spender, uint256 amount)")
		require.NoError(t, err)

		l := types.Log{
			Address: nft,
			Topics:  []common.Hash{approval.Topic(), topicOf(alice), topicOf(bob)},
			Data:    amountData(1),
		}

		ev, err := p.ParseLog(l, tx, block)
		require.NoError(t, err)
		require.Nil(t, ev)
	})

	t.Run("unknown topic", func(t *testing.T) {
		ev, err := p.ParseLog(types.Log{Address: usdc, Topics: []common.Hash{common.HexToHash("0x01")}}, tx, block)
		require.NoError(t, err)
		require.Nil(t, ev)
	})

	t.Run("anonymous log", func(t *testing.T) {
		ev, err := p.ParseLog(types.Log{Address: usdc}, tx, block)
		require.NoError(t, err)
		require.Nil(t, ev)
	})

	t.Run("undecodable data", func(t *testing.T) {
		l := types.Log{
			Address: usdc,
			Topics:  []common.Hash{transfer, topicOf(alice), topicOf(bob)},
			Data:    []byte{0x01},
			TxHash:  tx.Hash,
			Index:   9,
		}

		ev, err := p.ParseLog(l, tx, block)
		require.Error(t, err)
		require.Nil(t, ev)
	})
}

func TestABIParser_LogFilter(t *testing.T) {
	p := testParser(t)

	f := p.LogFilter()
	require.Empty(t, f.Addresses, "a contract without address matches any emitter")

	approval, err := ParseSignature("Approval(address,address,uint256)")
	require.NoError(t, err)
	require.Equal(t, []common.Hash{common.HexToHash(transferTopic), approval.Topic()}, f.Topic0)
	require.Equal(t, []string{"Transfer", "Approval"}, p.EventNames())

	bound, err := New("1", config.ParserConfig{Contracts: []config.ContractConfig{
		{Address: usdc.Hex(), Events: []string{"Transfer(address,address,uint256)"}},
		{Address: usdc.Hex(), Events: []string{"Approval(address,address,uint256)"}},
	}})
	require.NoError(t, err)
	require.Equal(t, []common.Address{usdc}, bound.LogFilter().Addresses)
}
