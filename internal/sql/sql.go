// Package sql holds the embedded schema migrations and query text used by
// the claims store.
package sql

import (
	"embed"
)

// Migrations contains the schema migration files, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/upsert_file.sql
var UpsertFile string

//go:embed queries/delete_file_claims.sql
var DeleteFileClaims string

//go:embed queries/list_claims.sql
var ListClaims string

//go:embed queries/savings_summary.sql
var SavingsSummary string

//go:embed queries/savings_by_date.sql
var SavingsByDate string

//go:embed queries/anomaly_summary.sql
var AnomalySummary string
