// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides logical bucket for kv store.
type Bucket string

func (b Bucket) key(key []byte) []byte {
	k := make([]byte, 0, len(b)+len(key))
	return append(append(k, b...), key...)
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.b.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.src.Has(s.b.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error      { return s.src.Put(s.b.key(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.b.key(key)) }

func (s *bucketStore) NewBatch() Batch {
	return s.b.NewBatchOf(s.src.NewBatch())
}

func (s *bucketStore) Iterate(prefix []byte) Iterator {
	return &bucketIter{s.src.Iterate(s.b.key(prefix)), len(s.b)}
}

// NewBatchOf creates a bucket batch that queues into the source batch.
func (b Bucket) NewBatchOf(src Batch) Batch {
	return &bucketBatch{b, src}
}

type bucketBatch struct {
	b Bucket
	Batch
}

func (bb *bucketBatch) Put(key, val []byte) error { return bb.Batch.Put(bb.b.key(key), val) }
func (bb *bucketBatch) Delete(key []byte) error   { return bb.Batch.Delete(bb.b.key(key)) }

type bucketIter struct {
	Iterator
	strip int
}

// Key returns the key with the bucket stripped.
func (it *bucketIter) Key() []byte {
	return it.Iterator.Key()[it.strip:]
}
