// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reconciler settles pending entries as confirmations arrive and
// times out the ones whose confirmation never comes.
package reconciler

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/slp/auditlog"
	"github.com/vechain/slp/health"
	"github.com/vechain/slp/log"
	"github.com/vechain/slp/metrics"
	"github.com/vechain/slp/registry"
	"github.com/vechain/slp/slp"
	"github.com/vechain/slp/transport"
)

var (
	logger = log.WithContext("pkg", "reconciler")

	metricConfirmLatency = metrics.LazyLoadHistogramVec(
		"reconciler_confirm_latency_ms", []string{"result"}, metrics.BucketConfirmLatency,
	)
	metricAuditFailures = metrics.LazyLoadCounter("reconciler_audit_failures_count")
)

// Options tunes the reconciler.
type Options struct {
	Timeout       time.Duration // age after which an entry is timed out, 0 never times out
	SweepInterval time.Duration
	MaxSweep      int // entries timed out per sweep at most
	Health        *health.Health
}

// Settler is what the reconciler drives, implemented by registry.Registry.
type Settler interface {
	Confirm(c transport.Confirmation) (*registry.Settlement, error)
	Sweep(now time.Time, timeout time.Duration, max int) ([]*registry.Settlement, error)
}

type Reconciler struct {
	settler       Settler
	audit         *auditlog.AuditLog
	confirmations <-chan transport.Confirmation
	options       Options
	clock         func() time.Time
}

// New creates a reconciler consuming confirmations. The audit log is optional.
func New(settler Settler, audit *auditlog.AuditLog, confirmations <-chan transport.Confirmation, options Options) *Reconciler {
	if options.SweepInterval <= 0 {
		options.SweepInterval = 10 * time.Second
	}
	if options.MaxSweep <= 0 {
		options.MaxSweep = 100
	}
	if options.Health == nil {
		options.Health = &health.Health{}
	}
	return &Reconciler{
		settler:       settler,
		audit:         audit,
		confirmations: confirmations,
		options:       options,
		clock:         time.Now,
	}
}

// Run handles confirmations one at a time and sweeps on every interval until
// ctx is done or the confirmation channel closes. It returns early with the
// error when a confirmation breaks a ledger invariant, no further write must
// happen before an operator looks at it.
func (r *Reconciler) Run(ctx context.Context) error {
	logger.Debug("enter reconcile loop")
	defer logger.Debug("leave reconcile loop")

	r.options.Health.RunningStatus(true)
	defer r.options.Health.RunningStatus(false)

	var sweep <-chan time.Time
	if r.options.Timeout > 0 {
		ticker := time.NewTicker(r.options.SweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-r.confirmations:
			if !ok {
				return nil
			}
			if err := r.confirm(ctx, c); err != nil {
				r.options.Health.Halt(err)
				return err
			}
		case <-sweep:
			if err := r.sweep(ctx); err != nil {
				r.options.Health.Halt(err)
				return err
			}
		}
	}
}

func (r *Reconciler) confirm(ctx context.Context, c transport.Confirmation) error {
	s, err := r.settler.Confirm(c)
	switch {
	case err == nil:
	case slp.IsKind(err, slp.StaleConfirmation):
		// dropped, recorded for resync below
	case slp.IsKind(err, slp.InvariantViolation):
		logger.Error("ledger invariant broken, reconciliation halted", "id", c.ID, "err", err)
		return errors.WithMessagef(err, "confirmation %d", c.ID)
	default:
		logger.Warn("failed to settle confirmation", "id", c.ID, "err", err)
		return nil
	}
	r.record(ctx, s)
	return nil
}

func (r *Reconciler) sweep(ctx context.Context) error {
	settled, err := r.settler.Sweep(r.clock(), r.options.Timeout, r.options.MaxSweep)
	for _, s := range settled {
		r.record(ctx, s)
	}
	if err != nil {
		return errors.WithMessage(err, "sweep")
	}
	if len(settled) > 0 {
		logger.Info("pending entries timed out", "count", len(settled))
	}
	return nil
}

// Record returns the audit record of s settled at now.
func Record(s *registry.Settlement, now time.Time) *auditlog.Record {
	rec := &auditlog.Record{
		ID:         s.ID,
		Result:     s.Result.String(),
		Amount:     "0",
		Reason:     s.Reason,
		RecordedAt: uint64(now.UnixMilli()),
	}
	if e := s.Entry; e != nil {
		rec.Currency = e.Currency()
		rec.Delegator = e.Delegator()
		rec.Operation = e.Describe()
		if e.Ledger != nil {
			rec.Amount = e.Ledger.Amount.Dec()
		}
	}
	return rec
}

// record writes s to the audit trail. A failed write is logged and counted but
// does not stop reconciliation.
func (r *Reconciler) record(ctx context.Context, s *registry.Settlement) {
	now := r.clock()
	rec := Record(s, now)
	r.options.Health.Settled(s.ID, now)
	if e := s.Entry; e != nil {
		if latency := now.UnixMilli() - int64(e.CreatedAt); latency >= 0 {
			metricConfirmLatency().ObserveWithLabels(latency, map[string]string{"result": rec.Result})
		}
	}
	if r.audit == nil {
		return
	}
	if _, err := r.audit.Write(ctx, rec); err != nil {
		metricAuditFailures().Add(1)
		logger.Error("failed to write audit record", "id", s.ID, "err", err)
	}
}
