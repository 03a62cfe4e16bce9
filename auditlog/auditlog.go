// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auditlog keeps the trail of settled pending entries in sqlite. Stale
// confirmations are recorded as well, for external resync tooling.
package auditlog

import (
	"context"
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/slp/slp"
)

// Record is one settled entry.
type Record struct {
	Seq        uint64
	ID         uint64
	Result     string
	Currency   slp.Currency
	Delegator  slp.Address // zero for stale confirmations
	Operation  string
	Amount     string // decimal
	Reason     string
	RecordedAt uint64 // unix milliseconds
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Filter selects records. Nil or empty fields match everything.
type Filter struct {
	ID        *uint64
	Currency  slp.Currency
	Delegator *slp.Address
	Result    string
	Order     Order
	Offset    uint64
	Limit     uint64
}

type AuditLog struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the audit log at path.
func New(path string) (log *AuditLog, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if log == nil {
			db.Close()
		}
	}()
	// a memory database lives as long as its connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(settlementTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	return &AuditLog{path, db, driverVer}, nil
}

// NewMem creates an audit log in ram.
func NewMem() (*AuditLog, error) {
	return New(":memory:")
}

func (a *AuditLog) Close() error {
	return a.db.Close()
}

func (a *AuditLog) Path() string {
	return a.path
}

func (a *AuditLog) DriverVersion() string {
	return a.driverVersion
}

// Write appends r and returns its sequence number.
func (a *AuditLog) Write(ctx context.Context, r *Record) (uint64, error) {
	var delegator []byte
	if !r.Delegator.IsZero() {
		delegator = r.Delegator.Bytes()
	}
	res, err := a.db.ExecContext(ctx,
		"INSERT INTO settlement(id, result, currency, delegator, operation, amount, reason, recordedAt) VALUES(?,?,?,?,?,?,?,?)",
		r.ID, r.Result, r.Currency.String(), delegator, r.Operation, r.Amount, r.Reason, r.RecordedAt,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert settlement")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// Filter returns the records matching f.
func (a *AuditLog) Filter(ctx context.Context, f *Filter) ([]*Record, error) {
	if f == nil {
		f = &Filter{}
	}
	var args []any
	stmt := "SELECT seq, id, result, currency, delegator, operation, amount, reason, recordedAt FROM settlement WHERE 1"
	if f.ID != nil {
		args = append(args, *f.ID)
		stmt += " AND id = ? "
	}
	if f.Currency != "" {
		args = append(args, f.Currency.String())
		stmt += " AND currency = ? "
	}
	if f.Delegator != nil {
		args = append(args, f.Delegator.Bytes())
		stmt += " AND delegator = ? "
	}
	if f.Result != "" {
		args = append(args, f.Result)
		stmt += " AND result = ? "
	}
	if f.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}
	if f.Limit > 0 {
		stmt += " limit ?, ? "
		args = append(args, f.Offset, f.Limit)
	}
	return a.query(ctx, stmt, args...)
}

func (a *AuditLog) query(ctx context.Context, stmt string, args ...any) ([]*Record, error) {
	rows, err := a.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			r         Record
			currency  string
			delegator []byte
		)
		if err := rows.Scan(
			&r.Seq,
			&r.ID,
			&r.Result,
			&currency,
			&delegator,
			&r.Operation,
			&r.Amount,
			&r.Reason,
			&r.RecordedAt,
		); err != nil {
			return nil, err
		}
		r.Currency = slp.Currency(currency)
		if len(delegator) > 0 {
			r.Delegator = slp.BytesToAddress(delegator)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
