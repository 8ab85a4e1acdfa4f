// Package db carries the SQL migrations embedded into the binary so schema
// setup does not depend on the working directory at startup.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
