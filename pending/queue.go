// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package pending keeps the operations dispatched to remote chains until they
// are confirmed, failed or timed out.
package pending

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/slp/kv"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/slp"
)

var (
	logger = log.WithContext("pkg", "pending")

	metricPendingEntries = metrics.LazyLoadGaugeVec("pending_entries_gauge", []string{"currency"})
)

var counterKey = kv.RawKey("next")

type idKey uint64

func (k idKey) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

type indexKey struct {
	currency  slp.Currency
	delegator slp.Address
	id        uint64
}

func (k indexKey) Bytes() []byte {
	return k.currency.Key(k.delegator.Bytes(), idKey(k.id).Bytes())
}

// Queue is the persisted set of pending entries with a per delegator index.
type Queue struct {
	db          kv.Store
	entries     *kv.Mapping[idKey, *Entry]
	byDelegator *kv.Mapping[indexKey, uint64]
	counter     *kv.Mapping[kv.RawKey, uint64]
}

// NewQueue opens the pending queue on db.
func NewQueue(db kv.Store) (*Queue, error) {
	q := &Queue{
		db:          db,
		entries:     kv.NewMapping[idKey, *Entry](db, "pending/e/"),
		byDelegator: kv.NewMapping[indexKey, uint64](db, "pending/d/"),
		counter:     kv.NewMapping[kv.RawKey, uint64](db, "pending/n/"),
	}

	counts := make(map[slp.Currency]int64)
	if err := q.iterate(func(e *Entry) (bool, error) {
		counts[e.Currency()]++
		return true, nil
	}); err != nil {
		return nil, err
	}
	for currency, n := range counts {
		metricPendingEntries().SetWithLabel(n, map[string]string{"currency": currency.String()})
	}
	if len(counts) > 0 {
		logger.Info("pending entries restored", "currencies", len(counts))
	}
	return q, nil
}

// NextID reserves the next correlation id. Ids start at 1 and are never reused.
func (q *Queue) NextID() (uint64, error) {
	last, _, err := q.counter.Get(counterKey)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get id counter")
	}
	if last == ^uint64(0) {
		return 0, slp.NewError(slp.CapacityExceeded, "correlation ids exhausted")
	}
	next := last + 1
	if err := q.counter.Set(counterKey, next); err != nil {
		return 0, errors.Wrap(err, "failed to set id counter")
	}
	return next, nil
}

// Insert stores e. The id must not be in use.
func (q *Queue) Insert(e *Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if has, err := q.entries.Has(idKey(e.ID)); err != nil {
		return errors.Wrap(err, "failed to check entry")
	} else if has {
		return errors.Errorf("entry %d already exists", e.ID)
	}

	batch := q.db.NewBatch()
	if err := q.entries.SetIn(batch, idKey(e.ID), e); err != nil {
		return err
	}
	if err := q.byDelegator.SetIn(batch, indexKey{e.Currency(), e.Delegator(), e.ID}, e.ID); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "failed to insert entry")
	}
	metricPendingEntries().AddWithLabel(1, map[string]string{"currency": e.Currency().String()})
	logger.Debug("pending entry inserted", "id", e.ID, "currency", e.Currency(), "delegator", e.Delegator(), "op", e.Describe())
	return nil
}

// Get returns the entry of id, ok is false if there is none.
func (q *Queue) Get(id uint64) (*Entry, bool, error) {
	e, ok, err := q.entries.Get(idKey(id))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get entry")
	}
	return e, ok, nil
}

// Remove deletes and returns the entry of id, ok is false if there was none.
func (q *Queue) Remove(id uint64) (*Entry, bool, error) {
	e, ok, err := q.Get(id)
	if err != nil || !ok {
		return nil, ok, err
	}

	batch := q.db.NewBatch()
	if err := q.entries.DeleteIn(batch, idKey(id)); err != nil {
		return nil, false, err
	}
	if err := q.byDelegator.DeleteIn(batch, indexKey{e.Currency(), e.Delegator(), id}); err != nil {
		return nil, false, err
	}
	if err := batch.Write(); err != nil {
		return nil, false, errors.Wrap(err, "failed to remove entry")
	}
	metricPendingEntries().AddWithLabel(-1, map[string]string{"currency": e.Currency().String()})
	logger.Debug("pending entry removed", "id", id)
	return e, true, nil
}

// ByDelegator returns the entries of delegator ordered by id.
func (q *Queue) ByDelegator(currency slp.Currency, delegator slp.Address) ([]*Entry, error) {
	var ids []uint64
	err := q.byDelegator.Iterate(currency.Key(delegator.Bytes()), func(_ []byte, id uint64) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate delegator entries")
	}

	entries := make([]*Entry, 0, len(ids))
	for _, id := range ids {
		e, ok, err := q.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("index refers to missing entry %d", id)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CheckAdmit fails with OperationInFlight when delegator already has an entry.
// Unlocks are independent appends and may be in flight together.
func (q *Queue) CheckAdmit(currency slp.Currency, delegator slp.Address, op Operation) error {
	entries, err := q.ByDelegator(currency, delegator)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if op == OpUnlock && e.Operation() == OpUnlock {
			continue
		}
		return slp.NewError(slp.OperationInFlight, "%s of delegator %v in flight as %d", e.Describe(), delegator, e.ID)
	}
	return nil
}

// Expired returns up to max entries created at least timeout before now, oldest first.
func (q *Queue) Expired(now time.Time, timeout time.Duration, max int) ([]*Entry, error) {
	deadline := now.Add(-timeout).UnixMilli()
	var expired []*Entry
	err := q.iterate(func(e *Entry) (bool, error) {
		if len(expired) >= max || int64(e.CreatedAt) > deadline {
			return false, nil
		}
		expired = append(expired, e)
		return true, nil
	})
	return expired, err
}

// List returns up to limit entries ordered by id. A limit <= 0 means all.
func (q *Queue) List(limit int) ([]*Entry, error) {
	var entries []*Entry
	err := q.iterate(func(e *Entry) (bool, error) {
		if limit > 0 && len(entries) >= limit {
			return false, nil
		}
		entries = append(entries, e)
		return true, nil
	})
	return entries, err
}

// Len returns the number of entries.
func (q *Queue) Len() (int, error) {
	n := 0
	err := q.iterate(func(*Entry) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

var errStop = errors.New("stop")

// iterate visits entries in id order, which is also creation order, until fn returns false.
func (q *Queue) iterate(fn func(*Entry) (bool, error)) error {
	err := q.entries.Iterate(nil, func(_ []byte, e *Entry) error {
		more, err := fn(e)
		if err != nil {
			return err
		}
		if !more {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return errors.Wrap(err, "failed to iterate entries")
	}
	return nil
}
