// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auditlog

// create a table for settled entries
const settlementTableSchema = `
create table if not exists settlement (
	seq integer primary key autoincrement,
	id integer not null,
	result text not null,
	currency text not null,
	delegator blob(32),
	operation text not null,
	amount text not null,
	reason text not null,
	recordedAt integer not null
);

CREATE INDEX if not exists idIndex on settlement(id);
CREATE INDEX if not exists delegatorIndex on settlement(currency, delegator);
CREATE INDEX if not exists resultIndex on settlement(result);
`
