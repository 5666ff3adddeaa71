package wallet

import (
	"encoding/hex"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUint(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
		n    int
	}{
		{"00", 0, 1},
		{"17", 23, 1},
		{"1818", 24, 2},
		{"18ff", 255, 2},
		{"190100", 256, 3},
		{"1a000f4240", 1000000, 5},
		{"1b000000e8d4a51000", 1000000000000, 9},
	}
	for _, c := range cases {
		b, _ := hex.DecodeString(c.in)
		got, n, err := DecodeUint(b)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
		assert.Equal(t, c.n, n, c.in)
	}

	_, _, err := DecodeUint(nil)
	assert.ErrorIs(t, err, ErrTruncated)
	_, _, err = DecodeUint([]byte{0x19, 0x01})
	assert.ErrorIs(t, err, ErrTruncated)
	_, _, err = DecodeUint([]byte{0x20}) // negative int
	assert.ErrorIs(t, err, ErrNotUint)
	_, _, err = DecodeUint([]byte{0x1f}) // indefinite
	assert.ErrorIs(t, err, ErrUnsupportedLen)
}

func utxoHex(t *testing.T, output any) string {
	t.Helper()
	txHash := make([]byte, 32)
	b, err := cbor.Marshal([]any{[]any{txHash, 0}, output})
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func multiasset(policy, name []byte, qty uint64) map[cbor.ByteString]map[cbor.ByteString]uint64 {
	return map[cbor.ByteString]map[cbor.ByteString]uint64{
		cbor.ByteString(policy): {cbor.ByteString(name): qty},
	}
}

func TestScanSumsAcrossOutputShapes(t *testing.T) {
	paso := Paso()
	other, err := NewAsset("aa"+PasoPolicyID[2:], PasoAssetName)
	require.NoError(t, err)
	addr := []byte{0x01, 0x02}

	utxos := []string{
		// legacy array output
		utxoHex(t, []any{addr, []any{uint64(2000000), multiasset(paso.policy, paso.name, 1500)}}),
		// post-Alonzo map output
		utxoHex(t, map[uint64]any{0: addr, 1: []any{uint64(1000000), multiasset(paso.policy, paso.name, 7)}}),
		// lovelace only
		utxoHex(t, []any{addr, uint64(5000000)}),
		// different policy
		utxoHex(t, []any{addr, []any{uint64(1), multiasset(other.policy, other.name, 99)}}),
		// garbage
		"zz",
		"a0",
	}
	b := paso.Scan(utxos)
	assert.EqualValues(t, 1507, b.Amount)
	assert.Equal(t, 6, b.Scanned)
	assert.Equal(t, 2, b.Skipped)
}

func TestScanLargeQuantities(t *testing.T) {
	paso := Paso()
	u := utxoHex(t, []any{[]byte{1}, []any{uint64(1), multiasset(paso.policy, paso.name, 1<<40)}})
	assert.EqualValues(t, uint64(1<<40), paso.Scan([]string{u}).Amount)
}

func TestNewAssetRejectsBadHex(t *testing.T) {
	_, err := NewAsset("xyz", "")
	assert.Error(t, err)
}
