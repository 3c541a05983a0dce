// Package migrations contains the embedded SQL schema of the accounts service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
