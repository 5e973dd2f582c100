package catalog

import "github.com/ontocat/ontocat/internal/database"

// Catalog table layout. The column order in these lists is the insert
// order for catalog writes; the verifier digests columns in the same
// order, so the two must not drift apart.
const (
	tableTypes      = "ontology_types"
	tableInformants = "informants"
)

var (
	typeColumns      = []string{"position", "name", "parents", "source_depth", "sink_depth", "nearest_sink_children", "is_sink", "is_root"}
	informantColumns = []string{"position", "name", "type_name", "document", "entry_time", "verification_status"}
)

// sqliteSchema creates the catalog tables in sqlite's dialect. Array
// values (parents, nearest sink children) are stored as JSON text; the
// record itself is one JSON document per row.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ontology_types (
	position INTEGER NOT NULL,
	name TEXT PRIMARY KEY,
	parents TEXT NOT NULL,
	source_depth INTEGER NOT NULL,
	sink_depth INTEGER NOT NULL,
	nearest_sink_children TEXT NOT NULL,
	is_sink INTEGER NOT NULL,
	is_root INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS informants (
	position INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type_name TEXT NOT NULL,
	document TEXT NOT NULL,
	entry_time TEXT NOT NULL,
	verification_status TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_informants_name ON informants (name)`,
}

// mysqlSchema is the same layout for shared deployments. Duplicate record
// names are allowed, so informants is keyed by position and only indexed
// by name.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS ontology_types (
	position INT NOT NULL,
	name VARCHAR(255) NOT NULL PRIMARY KEY,
	parents TEXT NOT NULL,
	source_depth INT NOT NULL,
	sink_depth INT NOT NULL,
	nearest_sink_children TEXT NOT NULL,
	is_sink TINYINT(1) NOT NULL,
	is_root TINYINT(1) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS informants (
	position INT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	type_name VARCHAR(255) NOT NULL,
	document TEXT NOT NULL,
	entry_time VARCHAR(32) NOT NULL,
	verification_status VARCHAR(32) NOT NULL,
	INDEX idx_informants_name (name)
)`,
}

// schemaStatements returns the DDL for the dialect, in execution order.
func schemaStatements(dialect database.Dialect) []string {
	if dialect == database.DialectMySQL {
		return mysqlSchema
	}
	return sqliteSchema
}
