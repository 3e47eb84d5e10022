// Package migrations contains the embedded SQL schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
