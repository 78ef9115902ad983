package migrations

import "embed"

// Engine directories inside files.
const (
	postgresDir   = "postgres"
	clickhouseDir = "clickhouse"
)

// files holds the SQL migrations, one directory per engine, applied in
// lexical order.
//
//go:embed postgres/*.sql clickhouse/*.sql
var files embed.FS
