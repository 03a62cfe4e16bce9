// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegator

import (
	"encoding/binary"

	"github.com/vechain/slp/slp"
)

// derivationPrefix is the utility pallet's sub account derivation prefix.
var derivationPrefix = []byte("modlpy/utilisuba")

// Deriver derives a remote subaccount from an index. Implementations are pure.
type Deriver interface {
	Derive(index uint16) slp.Address
}

func preimage(parent slp.Address, index uint16) [][]byte {
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], index)
	return [][]byte{derivationPrefix, parent.Bytes(), idx[:]}
}

// SubstrateDeriver derives 32 bytes accounts of substrate style chains.
type SubstrateDeriver struct {
	Parent slp.Address
}

// Derive implements Deriver.
func (d SubstrateDeriver) Derive(index uint16) slp.Address {
	return slp.Address(slp.Blake2b(preimage(d.Parent, index)...))
}

// EthereumDeriver derives 20 bytes accounts of ethereum compatible chains.
// The parent is the 20 bytes account, extended from the left.
type EthereumDeriver struct {
	Parent slp.Address
}

// Derive implements Deriver.
func (d EthereumDeriver) Derive(index uint16) slp.Address {
	h := slp.Keccak256(preimage(d.Parent, index)...)
	return slp.BytesToAddress(h[12:])
}
