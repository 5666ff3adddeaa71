// Package wallet reads the PASO token balance out of the UTXOs a browser
// wallet reports.  The figure is informational and never touches the credit
// ledger.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// PASO asset identifiers on Cardano mainnet.
const (
	PasoPolicyID  = "0b0d0c5a1acd08efde911a8466fc1bbd5b09d2de87b2ccb809d64b01"
	PasoAssetName = "5041534f" // "PASO"
)

// Asset is a native token key.
type Asset struct {
	policy []byte
	name   []byte
}

// NewAsset parses hex policy id and asset name.
func NewAsset(policyHex, nameHex string) (Asset, error) {
	p, err := hex.DecodeString(policyHex)
	if err != nil {
		return Asset{}, fmt.Errorf("policy id: %w", err)
	}
	n, err := hex.DecodeString(nameHex)
	if err != nil {
		return Asset{}, fmt.Errorf("asset name: %w", err)
	}
	return Asset{policy: p, name: n}, nil
}

// Paso is the PASO token.
func Paso() Asset {
	a, _ := NewAsset(PasoPolicyID, PasoAssetName)
	return a
}

// Balance is the outcome of scanning a wallet.
type Balance struct {
	Amount  uint64 `json:"amount"`
	Scanned int    `json:"scanned"`
	Skipped int    `json:"skipped"` // UTXOs that could not be decoded
}

// Scan sums the asset across hex-encoded TransactionUnspentOutput values,
// as returned by CIP-30 getUtxos.  Undecodable entries are skipped.
func (a Asset) Scan(utxos []string) Balance {
	var b Balance
	for _, u := range utxos {
		b.Scanned++
		raw, err := hex.DecodeString(strings.TrimSpace(u))
		if err != nil {
			b.Skipped++
			continue
		}
		amt, err := a.amountIn(raw)
		if err != nil {
			b.Skipped++
			continue
		}
		if b.Amount > math.MaxUint64-amt {
			b.Amount = math.MaxUint64
			continue
		}
		b.Amount += amt
	}
	return b
}

var errShape = errors.New("unexpected utxo shape")

// amountIn decodes [input, output] and returns the asset quantity held by
// output, zero when absent.
func (a Asset) amountIn(utxo []byte) (uint64, error) {
	var pair []cbor.RawMessage
	if err := cbor.Unmarshal(utxo, &pair); err != nil {
		return 0, err
	}
	if len(pair) != 2 {
		return 0, errShape
	}
	value, err := outputValue(pair[1])
	if err != nil {
		return 0, err
	}
	return a.amountInValue(value)
}

// outputValue extracts the value field of a legacy (array) or post-Alonzo
// (map) transaction output.
func outputValue(out cbor.RawMessage) (cbor.RawMessage, error) {
	var legacy []cbor.RawMessage
	if err := cbor.Unmarshal(out, &legacy); err == nil {
		if len(legacy) < 2 {
			return nil, errShape
		}
		return legacy[1], nil
	}
	var post map[uint64]cbor.RawMessage
	if err := cbor.Unmarshal(out, &post); err != nil {
		return nil, err
	}
	v, ok := post[1]
	if !ok {
		return nil, errShape
	}
	return v, nil
}

// amountInValue handles coin-only values and [coin, multiasset].
func (a Asset) amountInValue(value cbor.RawMessage) (uint64, error) {
	if len(value) == 0 {
		return 0, errShape
	}
	if value[0]>>5 == 0 {
		return 0, nil // lovelace only
	}
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(value, &parts); err != nil {
		return 0, err
	}
	if len(parts) != 2 {
		return 0, errShape
	}
	var multi map[cbor.ByteString]map[cbor.ByteString]cbor.RawMessage
	if err := cbor.Unmarshal(parts[1], &multi); err != nil {
		return 0, err
	}
	assets, ok := multi[cbor.ByteString(a.policy)]
	if !ok {
		return 0, nil
	}
	qty, ok := assets[cbor.ByteString(a.name)]
	if !ok {
		return 0, nil
	}
	n, _, err := DecodeUint(qty)
	return n, err
}
