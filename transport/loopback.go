// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/slp/co"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
)

var (
	logger = log.WithContext("pkg", "transport")

	metricSubmitted = metrics.LazyLoadCounterVec("transport_submitted_count", []string{"outcome"})
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("transport closed")

// Decider chooses the outcome of a submitted payload.
type Decider func(payload []byte, id uint64) (Outcome, string)

// Loopback is an in-process transport. Every call submitted with a non-zero
// id is confirmed back to the subscribers after a delay.
type Loopback struct {
	delay  time.Duration
	decide Decider

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	feed  event.Feed
	scope event.SubscriptionScope
	goes  co.Goes
}

// NewLoopback creates a loopback transport confirming every call as successful.
func NewLoopback(delay time.Duration) *Loopback {
	return &Loopback{
		delay: delay,
		decide: func([]byte, uint64) (Outcome, string) {
			return Success, ""
		},
		done: make(chan struct{}),
	}
}

// SetDecider replaces how outcomes are chosen.
func (l *Loopback) SetDecider(d Decider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decide = d
}

// SubscribeConfirmations delivers the confirmations to ch.
func (l *Loopback) SubscribeConfirmations(ch chan<- Confirmation) event.Subscription {
	return l.scope.Track(l.feed.Subscribe(ch))
}

// Submit implements agent.Transport. The confirmation is always delivered
// asynchronously so that callers may hold locks the consumer needs.
func (l *Loopback) Submit(ctx context.Context, payload []byte, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if id == 0 {
		metricSubmitted().AddWithLabel(1, map[string]string{"outcome": "none"})
		return nil
	}

	outcome, reason := l.decide(payload, id)
	metricSubmitted().AddWithLabel(1, map[string]string{"outcome": outcome.String()})
	c := Confirmation{ID: id, Outcome: outcome, Reason: reason}

	l.goes.Go(func() {
		if l.delay > 0 {
			timer := time.NewTimer(l.delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-l.done:
				return
			}
		}
		l.feed.Send(c)
		logger.Trace("confirmation sent", "id", c.ID, "outcome", c.Outcome)
	})
	return nil
}

// Close stops accepting calls, drops the confirmations still delayed and
// ends every subscription.
func (l *Loopback) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()

	l.scope.Close()
	l.goes.Wait()
	logger.Debug("closed")
}
