package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for logging, including postgres
// diagnostics from either pgx or lib/pq.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string
	PG         PGDetails
}

type PGDetails struct {
	Code       string
	Constraint string
	Table      string
	Column     string
	Detail     string
	Message    string
}

func (p PGDetails) empty() bool {
	return p == PGDetails{}
}

func Dump(err error) ErrorDump {
	var d ErrorDump
	if err == nil {
		return d
	}
	d.TopMessage = err.Error()
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.PG = pgDetails(err)
	return d
}

func pgDetails(err error) PGDetails {
	if pgxErr := (*pgconn.PgError)(nil); errors.As(err, &pgxErr) {
		return PGDetails{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		return PGDetails{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return PGDetails{}
}

// Fields renders the dump as structured log fields. Postgres keys are only
// present when the chain held a driver error.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if !d.PG.empty() {
		fields["pg_code"] = d.PG.Code
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_table"] = d.PG.Table
		fields["pg_column"] = d.PG.Column
		fields["pg_detail"] = d.PG.Detail
		fields["pg_message"] = d.PG.Message
	}
	return fields
}
