package ethcontract_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/ethcontract"
)

func TestBlockNumberJSON(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  ethcontract.BlockNumber
		wire  string
		error bool
	}{
		{name: "tag", in: `"pending"`, want: ethcontract.Pending, wire: `"pending"`},
		{name: "upper case tag", in: `"EARLIEST"`, want: ethcontract.Earliest, wire: `"earliest"`},
		{name: "hex quantity", in: `"0x2a"`, want: ethcontract.BlockNum(42), wire: `"0x2a"`},
		{name: "bare number", in: `42`, want: ethcontract.BlockNum(42), wire: `"0x2a"`},
		{name: "garbage", in: `"soon"`, error: true},
		{name: "object", in: `{}`, error: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var b ethcontract.BlockNumber
			err := json.Unmarshal([]byte(tc.in), &b)
			if tc.error {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, b)
			out, err := json.Marshal(b)
			require.NoError(t, err)
			require.JSONEq(t, tc.wire, string(out))
		})
	}
}

func TestZeroBlockNumberIsLatest(t *testing.T) {
	var b ethcontract.BlockNumber
	require.True(t, b.IsLatest())
	_, ok := b.Number()
	require.False(t, ok, "a tag has no concrete number")
}
