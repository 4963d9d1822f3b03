package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", hexMeddler[common.Hash]{parse: common.HexToHash})
	meddler.Register("address", hexMeddler[common.Address]{parse: common.HexToAddress})
}

type hexer interface {
	Hex() string
}

// hexMeddler stores go-ethereum fixed size types as hex strings. NULL maps to the zero value or a nil pointer.
type hexMeddler[T hexer] struct {
	parse func(string) T
}

func (hexMeddler[T]) PreRead(any) (any, error) {
	return new(sql.NullString), nil
}

func (m hexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case *T:
		var v T
		if ns.Valid {
			v = m.parse(ns.String)
		}
		*ptr = v
	case **T:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		v := m.parse(ns.String)
		*ptr = &v
	default:
		return fmt.Errorf("unsupported field type %T", fieldAddr)
	}

	return nil
}

func (hexMeddler[T]) PreWrite(field any) (any, error) {
	switch v := field.(type) {
	case T:
		return v.Hex(), nil
	case *T:
		if v == nil {
			return nil, nil
		}
		return (*v).Hex(), nil
	default:
		return nil, fmt.Errorf("unsupported field type %T", field)
	}
}
