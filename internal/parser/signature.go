package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	eventNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	paramNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Param is a single event parameter.
type Param struct {
	Name    string
	Type    string
	Indexed bool
}

// Signature is a parsed human readable event signature, e.g.
// "Transfer(address indexed from, address indexed to, uint256 value)".
type Signature struct {
	Raw    string
	Name   string
	Params []Param

	event abi.Event
}

// ParseSignature parses an event signature. Unnamed parameters are named param<N>.
// Supported forms:
//   - "Transfer(address,address,uint256)"
//   - "Transfer(address indexed from, address indexed to, uint256 value)"
//   - "Transfer(address indexed, address indexed, uint256)"
func ParseSignature(sig string) (*Signature, error) {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return nil, fmt.Errorf("empty signature")
	}

	openParen := strings.Index(sig, "(")
	closeParen := strings.LastIndex(sig, ")")
	switch {
	case openParen == -1:
		return nil, fmt.Errorf("invalid signature %q: missing opening parenthesis", sig)
	case closeParen == -1:
		return nil, fmt.Errorf("invalid signature %q: missing closing parenthesis", sig)
	case closeParen < openParen || closeParen != len(sig)-1:
		return nil, fmt.Errorf("invalid signature %q: malformed parentheses", sig)
	}

	name := strings.TrimSpace(sig[:openParen])
	if !eventNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid event name %q", name)
	}

	params, err := parseParams(sig[openParen+1 : closeParen])
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", sig, err)
	}

	inputs := make(abi.Arguments, 0, len(params))
	for _, p := range params {
		typ, err := abi.NewType(p.Type, "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid signature %q: parameter %s: %w", sig, p.Name, err)
		}
		inputs = append(inputs, abi.Argument{Name: p.Name, Type: typ, Indexed: p.Indexed})
	}

	s := &Signature{
		Raw:    sig,
		Name:   name,
		Params: params,
		event:  abi.NewEvent(name, name, false, inputs),
	}
	if got := s.IndexedCount(); got > 3 { //nolint:mnd
		return nil, fmt.Errorf("invalid signature %q: %d indexed parameters, at most 3 allowed", sig, got)
	}

	return s, nil
}

func parseParams(list string) ([]Param, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}

	parts := strings.Split(list, ",")
	params := make([]Param, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		p, err := parseParam(strings.TrimSpace(part), i)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		params = append(params, p)
	}

	return params, nil
}

// parseParam accepts "type", "type name", "type indexed" and "type indexed name".
func parseParam(s string, index int) (Param, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Param{}, fmt.Errorf("empty parameter at position %d", index)
	}

	p := Param{Type: fields[0], Name: fmt.Sprintf("param%d", index)}

	switch len(fields) {
	case 1:
	case 2: //nolint:mnd
		if fields[1] == "indexed" {
			p.Indexed = true
		} else {
			p.Name = fields[1]
		}
	case 3: //nolint:mnd
		if fields[1] != "indexed" {
			return Param{}, fmt.Errorf("expected 'indexed' keyword, got %q", fields[1])
		}
		p.Indexed = true
		p.Name = fields[2]
	default:
		return Param{}, fmt.Errorf("too many parts in parameter %q", s)
	}

	if !paramNameRe.MatchString(p.Name) {
		return Param{}, fmt.Errorf("invalid parameter name %q", p.Name)
	}

	return p, nil
}

// Canonical returns the signature without names, e.g. "Transfer(address,address,uint256)".
func (s *Signature) Canonical() string {
	types := make([]string, len(s.Params))
	for i, p := range s.Params {
		types[i] = p.Type
	}
	return s.Name + "(" + strings.Join(types, ",") + ")"
}

// Topic is the keccak256 hash of the canonical signature, the first topic of matching logs.
func (s *Signature) Topic() common.Hash {
	return s.event.ID
}

// IndexedCount returns how many parameters are carried in topics.
func (s *Signature) IndexedCount() int {
	n := 0
	for _, p := range s.Params {
		if p.Indexed {
			n++
		}
	}
	return n
}

// Decode unpacks the indexed and non-indexed parameters of a log.
// Indexed dynamic values (string, bytes, arrays) decode to their topic hash.
func (s *Signature) Decode(topics []common.Hash, data []byte) (map[string]any, error) {
	if len(topics) == 0 || topics[0] != s.Topic() {
		return nil, fmt.Errorf("log topic does not match %s", s.Canonical())
	}
	if len(topics)-1 != s.IndexedCount() {
		return nil, fmt.Errorf("%s expects %d indexed topics, log has %d",
			s.Canonical(), s.IndexedCount(), len(topics)-1)
	}

	out := make(map[string]any, len(s.Params))

	var indexed abi.Arguments
	for _, arg := range s.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(out, indexed, topics[1:]); err != nil {
			return nil, fmt.Errorf("failed to decode topics of %s: %w", s.Name, err)
		}
	}

	if nonIndexed := s.event.Inputs.NonIndexed(); len(nonIndexed) > 0 {
		if err := nonIndexed.UnpackIntoMap(out, data); err != nil {
			return nil, fmt.Errorf("failed to decode data of %s: %w", s.Name, err)
		}
	}

	for k, v := range out {
		out[k] = normalize(v)
	}

	return out, nil
}
