package eventindex

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

// searchTerms derives the lower-cased term set of an event: its name, hashes, contract address
// and every scalar leaf of the decoded params and user metadata. The result is sorted and unique.
func searchTerms(ev *events.IndexedEvent) []string {
	set := make(map[string]struct{})
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}

	add(ev.EventName)
	add(ev.TransactionHash.Hex())
	add(ev.BlockHash.Hex())
	add(ev.Address.Hex())

	for _, v := range ev.Params {
		collectLeaves(v, add)
	}
	for _, v := range ev.Metadata.Extra {
		collectLeaves(v, add)
	}

	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	return terms
}

// collectLeaves walks maps and slices and reports the string form of every scalar.
func collectLeaves(v any, add func(string)) {
	if s, ok := scalarString(v); ok {
		add(s)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			collectLeaves(iter.Value().Interface(), add)
		}
	case reflect.Slice, reflect.Array:
		for n := 0; n < rv.Len(); n++ {
			collectLeaves(rv.Index(n).Interface(), add)
		}
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			collectLeaves(rv.Elem().Interface(), add)
		}
	}
}

// scalarString renders scalar values; ok is false for containers and nil.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	case *big.Int:
		if x == nil {
			return "", false
		}
		return x.String(), true
	case big.Int:
		return x.String(), true
	case common.Address:
		return x.Hex(), true
	case common.Hash:
		return x.Hex(), true
	case []byte:
		return "0x" + hex.EncodeToString(x), true
	case time.Time:
		return x.UTC().Format(time.RFC3339), true
	case fmt.Stringer:
		return x.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Array:
		// fixed size byte arrays such as bytes32
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for n := range b {
				b[n] = byte(rv.Index(n).Uint())
			}
			return "0x" + hex.EncodeToString(b), true
		}
	}

	return "", false
}

// tokenize splits a free text query into lower-cased tokens.
func tokenize(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// matchesQuery requires every token to be a substring of at least one term.
func matchesQuery(terms []string, tokens []string) bool {
	for _, tok := range tokens {
		found := false
		for _, term := range terms {
			if strings.Contains(term, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
