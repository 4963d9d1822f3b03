package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockDataError struct {
	data any
	msg  string
}

func (m *mockDataError) Error() string {
	return m.msg
}

func (m *mockDataError) ErrorData() any {
	return m.data
}

func TestIsTooManyResultsError(t *testing.T) {
	t.Parallel()

	const data = "Query returned more than 10000 results. Try with this block range [0x10, 0x20]."

	tests := []struct {
		name      string
		err       error
		wantMatch bool
		wantData  string
	}{
		{
			name: "nil error",
		},
		{
			name:      "data error with matching payload",
			err:       &mockDataError{data: data, msg: "query returned more than 10000 results"},
			wantMatch: true,
			wantData:  data,
		},
		{
			name:      "wrapped data error",
			err:       fmt.Errorf("eth_getLogs: %w", &mockDataError{data: data, msg: "limit"}),
			wantMatch: true,
			wantData:  data,
		},
		{
			name: "data error with unrelated payload",
			err:  &mockDataError{data: "execution reverted", msg: "reverted"},
		},
		{
			name:      "plain error carrying the message",
			err:       errors.New("Query returned more than 5000 results"),
			wantMatch: true,
			wantData:  "Query returned more than 5000 results",
		},
		{
			name: "plain unrelated error",
			err:  errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotMatch, gotData := IsTooManyResultsError(tt.err)
			require.Equal(t, tt.wantMatch, gotMatch)
			require.Equal(t, tt.wantData, gotData)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		wantFrom uint64
		wantTo   uint64
		wantOK   bool
	}{
		{
			name: "empty message",
		},
		{
			name: "no block range",
			msg:  "Query returned more than 20000 results.",
		},
		{
			name:     "valid block range",
			msg:      "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc].",
			wantFrom: 8256805,
			wantTo:   8261580,
			wantOK:   true,
		},
		{
			name:     "mixed case and extra spaces",
			msg:      "Try with this block range [0x1aBc,   0x2DEF].",
			wantFrom: 6844,
			wantTo:   11759,
			wantOK:   true,
		},
		{
			name: "invalid hex",
			msg:  "Try with this block range [0xZZZZ, 0x1234].",
		},
		{
			name: "inverted range",
			msg:  "Try with this block range [0x20, 0x10].",
		},
		{
			name:     "first of several ranges",
			msg:      "Try with these ranges [0x10, 0x20] and [0x30, 0x40].",
			wantFrom: 16,
			wantTo:   32,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			from, to, ok := ParseSuggestedBlockRange(tt.msg)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.wantFrom, from)
			require.Equal(t, tt.wantTo, to)
		})
	}
}
