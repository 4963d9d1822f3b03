package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEventID(t *testing.T) {
	t.Parallel()

	tx := common.HexToHash("0xabc")
	require.Equal(t, tx.Hex()+"-0", EventID(tx, 0))
	require.Equal(t, tx.Hex()+"-17", EventID(tx, 17))
}
