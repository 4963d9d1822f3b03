// Package parser decodes raw logs into events using human readable event signatures.
package parser

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ChainReplay/internal/rpc"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

var _ events.Parser = (*ABIParser)(nil)

// binding ties a signature to the contract it is expected from (nil = any contract).
type binding struct {
	address *common.Address
	sig     *Signature
}

func (b binding) matches(l types.Log) bool {
	return (b.address == nil || *b.address == l.Address) && len(l.Topics)-1 == b.sig.IndexedCount()
}

// ABIParser decodes logs whose first topic matches a configured event signature.
type ABIParser struct {
	chainID string
	byTopic map[common.Hash][]binding

	anyAddress bool
	addresses  []common.Address
	topics     []common.Hash
}

// New builds a parser for the configured contracts. chainID is stamped on every parsed event.
func New(chainID string, cfg config.ParserConfig) (*ABIParser, error) {
	p := &ABIParser{
		chainID: chainID,
		byTopic: make(map[common.Hash][]binding),
	}

	seenAddr := make(map[common.Address]struct{})
	for i, contract := range cfg.Contracts {
		var addr *common.Address
		if contract.Address == "" {
			p.anyAddress = true
		} else {
			if !common.IsHexAddress(contract.Address) {
				return nil, fmt.Errorf("contract %d: invalid address %q", i, contract.Address)
			}
			a := common.HexToAddress(contract.Address)
			addr = &a
			if _, ok := seenAddr[a]; !ok {
				seenAddr[a] = struct{}{}
				p.addresses = append(p.addresses, a)
			}
		}

		for _, raw := range contract.Events {
			sig, err := ParseSignature(raw)
			if err != nil {
				return nil, fmt.Errorf("contract %d: %w", i, err)
			}

			topic := sig.Topic()
			if _, ok := p.byTopic[topic]; !ok {
				p.topics = append(p.topics, topic)
			}
			p.byTopic[topic] = append(p.byTopic[topic], binding{address: addr, sig: sig})
		}
	}

	return p, nil
}

// LogFilter returns the eth_getLogs filter matching everything this parser can decode.
func (p *ABIParser) LogFilter() rpc.LogFilter {
	f := rpc.LogFilter{Topic0: append([]common.Hash(nil), p.topics...)}
	if !p.anyAddress {
		f.Addresses = append([]common.Address(nil), p.addresses...)
	}
	return f
}

// EventNames returns the names of all configured events.
func (p *ABIParser) EventNames() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, topic := range p.topics {
		for _, b := range p.byTopic[topic] {
			if _, ok := seen[b.sig.Name]; ok {
				continue
			}
			seen[b.sig.Name] = struct{}{}
			names = append(names, b.sig.Name)
		}
	}
	return names
}

// ParseLog decodes l. Logs without a matching signature return nil, nil.
func (p *ABIParser) ParseLog(l types.Log, tx events.Transaction, block events.Block) (*events.ParsedEvent, error) {
	if len(l.Topics) == 0 {
		return nil, nil
	}

	var errs []error
	for _, b := range p.byTopic[l.Topics[0]] {
		if !b.matches(l) {
			continue
		}

		params, err := b.sig.Decode(l.Topics, l.Data)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		return p.event(l, tx, block, b.sig.Name, params), nil
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("log %s-%d: %w", l.TxHash.Hex(), l.Index, errors.Join(errs...))
	}

	return nil, nil
}

func (p *ABIParser) event(
	l types.Log,
	tx events.Transaction,
	block events.Block,
	name string,
	params map[string]any,
) *events.ParsedEvent {
	txHash := tx.Hash
	if txHash == (common.Hash{}) {
		txHash = l.TxHash
	}
	blockHash := block.Hash
	if blockHash == (common.Hash{}) {
		blockHash = l.BlockHash
	}
	number := block.Number
	if number == 0 {
		number = l.BlockNumber
	}

	return &events.ParsedEvent{
		ID:              events.EventID(txHash, l.Index),
		ChainID:         p.chainID,
		BlockNumber:     number,
		BlockHash:       blockHash,
		TransactionHash: txHash,
		LogIndex:        l.Index,
		Address:         l.Address,
		Topics:          append([]common.Hash(nil), l.Topics...),
		Data:            append([]byte(nil), l.Data...),
		EventName:       name,
		Params:          params,
		Timestamp:       block.Timestamp,
		Status:          events.StatusConfirmed,
	}
}
