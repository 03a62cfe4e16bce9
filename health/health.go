// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

type Reconciliation struct {
	LastSettled   uint64     `json:"lastSettled"`
	LastSettledAt *time.Time `json:"lastSettledAt"`
}

type Status struct {
	Healthy        bool            `json:"healthy"`
	Running        bool            `json:"running"`
	Reconciliation *Reconciliation `json:"reconciliation"`
	HaltedBy       string          `json:"haltedBy,omitempty"`
}

// Health tracks the reconciliation loop.
type Health struct {
	lock        sync.RWMutex
	running     bool
	halted      error
	lastSettled uint64
	settledAt   time.Time
}

func (h *Health) Settled(id uint64, at time.Time) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.lastSettled = id
	h.settledAt = at
}

func (h *Health) RunningStatus(running bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.running = running
}

// Halt marks the loop as stopped by err. Halted stays unhealthy until restart.
func (h *Health) Halt(err error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.running = false
	h.halted = err
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	rec := &Reconciliation{LastSettled: h.lastSettled}
	if !h.settledAt.IsZero() {
		at := h.settledAt
		rec.LastSettledAt = &at
	}
	status := &Status{
		Healthy:        h.running && h.halted == nil,
		Running:        h.running,
		Reconciliation: rec,
	}
	if h.halted != nil {
		status.HaltedBy = h.halted.Error()
	}
	return status
}
