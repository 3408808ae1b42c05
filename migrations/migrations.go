package migrations

import "embed"

// Embedded migration files bundled at compile time so the agent ships
// as a single artifact with no external schema dependencies.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
