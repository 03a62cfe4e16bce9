// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDB(t *testing.T) {
	persistent, err := New(filepath.Join(t.TempDir(), "db"), Options{CacheSize: 16, OpenFilesCacheCapacity: 16})
	require.NoError(t, err)
	defer persistent.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	for _, db := range []*LevelDB{persistent, mem} {
		require.NoError(t, db.Put([]byte("a1"), []byte("v1")))
		require.NoError(t, db.Put([]byte("a2"), []byte("v2")))
		require.NoError(t, db.Put([]byte("b1"), []byte("v3")))

		v, err := db.Get([]byte("a1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), v)

		_, err = db.Get([]byte("zz"))
		assert.True(t, db.IsNotFound(err))

		has, err := db.Has([]byte("a2"))
		require.NoError(t, err)
		assert.True(t, has)

		var keys []string
		it := db.Iterate([]byte("a"))
		for it.Next() {
			keys = append(keys, string(it.Key()))
		}
		it.Release()
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"a1", "a2"}, keys)

		b := db.NewBatch()
		require.NoError(t, b.Delete([]byte("a1")))
		require.NoError(t, b.Put([]byte("c1"), []byte("v4")))
		assert.Equal(t, 2, b.Len())
		require.NoError(t, b.Write())

		has, err = db.Has([]byte("a1"))
		require.NoError(t, err)
		assert.False(t, has)
		v, err = db.Get([]byte("c1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v4"), v)
	}
}
