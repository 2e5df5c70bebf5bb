package utxo

import (
	"encoding/binary"

	"github.com/LarryRuane/bitcoin/domain/consensus/model/externalapi"
)

// Coin is an unspent transaction output together with the context it was
// created in. A Coin can also represent the spent state: a coin created by
// SpentCoin() carries no script and no value and is distinct from there
// being no entry at all for an outpoint (see CacheEntry).
//
// Grounded on coins.h/coins.cpp's Coin (read via original_source/src/coins.cpp):
// the same (amount, scriptPubKey, height, coinbase) shape, with "spent" played
// by an explicit sentinel rather than relying on a sentinel amount value.
type Coin struct {
	Amount          uint64
	ScriptPublicKey []byte
	BlockHeight     uint32
	IsCoinbase      bool
	spent           bool
}

// NewCoin builds an unspent coin.
func NewCoin(amount uint64, scriptPublicKey []byte, blockHeight uint32, isCoinbase bool) Coin {
	return Coin{
		Amount:          amount,
		ScriptPublicKey: scriptPublicKey,
		BlockHeight:     blockHeight,
		IsCoinbase:      isCoinbase,
	}
}

// SpentCoin returns the empty sentinel value representing "this outpoint
// existed but has been spent", as opposed to "no entry at all".
func SpentCoin() Coin {
	return Coin{spent: true}
}

// IsSpent reports whether this coin is the spent sentinel.
func (c Coin) IsSpent() bool {
	return c.spent
}

// Clear turns c into the spent sentinel in place, dropping its payload.
func (c *Coin) Clear() {
	*c = SpentCoin()
}

// DynamicMemoryUsage is the per-coin contribution to a cache's accounting
// totals. Deliberately just the script length: spec.md §9 flags the
// original's "apparent double-counting" of container overhead as debugging
// residue that must not be reproduced.
func (c Coin) DynamicMemoryUsage() uint64 {
	return uint64(len(c.ScriptPublicKey))
}

// commitmentElement serializes outpoint and coin into the byte string the
// UTXO-set-commitment multiset accumulates. The encoding isn't persisted
// anywhere and doesn't need to be stable across versions, only
// self-consistent between the Add and the matching Remove.
func commitmentElement(outpoint externalapi.DomainOutpoint, coin Coin) []byte {
	buf := make([]byte, 0, externalapi.DomainHashSize+4+8+4+1+len(coin.ScriptPublicKey))
	buf = append(buf, outpoint.TransactionID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, outpoint.Index)
	buf = binary.LittleEndian.AppendUint64(buf, coin.Amount)
	buf = binary.LittleEndian.AppendUint32(buf, coin.BlockHeight)
	if coin.IsCoinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, coin.ScriptPublicKey...)
	return buf
}
