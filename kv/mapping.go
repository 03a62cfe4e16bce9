// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// Key is a mapping key.
type Key interface {
	Bytes() []byte
}

// RawKey is a plain byte slice key.
type RawKey []byte

// Bytes implements Key.
func (k RawKey) Bytes() []byte { return k }

// Mapping is a typed key/value view of a store, values are rlp encoded.
type Mapping[K Key, V any] struct {
	bucket Bucket
	store  Store
}

// NewMapping creates a mapping over the bucket of the source store.
func NewMapping[K Key, V any](src Store, bucket Bucket) *Mapping[K, V] {
	return &Mapping[K, V]{bucket: bucket, store: bucket.NewStore(src)}
}

// Get returns the value of key. ok is false if the key does not exist.
func (m *Mapping[K, V]) Get(key K) (value V, ok bool, err error) {
	raw, err := m.store.Get(key.Bytes())
	if err != nil {
		if m.store.IsNotFound(err) {
			return value, false, nil
		}
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrap(err, "decode mapping value")
	}
	return value, true, nil
}

// Has returns whether key exists.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	return m.store.Has(key.Bytes())
}

// Set writes value of key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.put(m.store, key, value)
}

// Delete removes key.
func (m *Mapping[K, V]) Delete(key K) error {
	return m.store.Delete(key.Bytes())
}

func (m *Mapping[K, V]) put(p Putter, key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "encode mapping value")
	}
	return p.Put(key.Bytes(), raw)
}

// SetIn queues a write of key into batch b. b must be a batch of the source store
// the mapping was created on, so that writes of several mappings commit together.
func (m *Mapping[K, V]) SetIn(b Batch, key K, value V) error {
	return m.put(m.bucket.NewBatchOf(b), key, value)
}

// DeleteIn queues a delete of key into batch b.
func (m *Mapping[K, V]) DeleteIn(b Batch, key K) error {
	return m.bucket.NewBatchOf(b).Delete(key.Bytes())
}

// Iterate calls fn for every entry whose key starts with prefix, in key order.
// Iteration stops at the first error returned by fn.
func (m *Mapping[K, V]) Iterate(prefix []byte, fn func(key []byte, value V) error) error {
	it := m.store.Iterate(prefix)
	defer it.Release()

	for it.Next() {
		var value V
		if err := rlp.DecodeBytes(it.Value(), &value); err != nil {
			return errors.Wrap(err, "decode mapping value")
		}
		key := append([]byte(nil), it.Key()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return it.Error()
}
