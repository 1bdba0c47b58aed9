package sql

import _ "embed"

// Schema creates every table the ledger, goals and scheduler need.
//
//go:embed schema.sql
var Schema string
