// Package verifier checks that catalog writes landed intact by comparing
// the in-memory store and graph against what the catalog tables hold.
package verifier

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/store"
)

// Method defines how a catalog write is checked.
type Method string

const (
	// MethodCount uses simple row count comparison (fast)
	MethodCount Method = "count"
	// MethodSHA256 uses a SHA256 digest of all rows (slower but thorough)
	MethodSHA256 Method = "sha256"
	// MethodSkip skips verification entirely
	MethodSkip Method = "skip"
)

// ParseMethod converts a flag or configuration string to a Method. An
// empty string selects count.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "count":
		return MethodCount, nil
	case "sha256":
		return MethodSHA256, nil
	case "skip":
		return MethodSkip, nil
	default:
		return "", fmt.Errorf("unsupported verification method %q (count, sha256, or skip)", s)
	}
}

// Result holds verification results for a single catalog table.
type Result struct {
	Table        string
	Method       Method
	MemoryCount  int64
	CatalogCount int64
	MemoryHash   string
	CatalogHash  string
	Match        bool
	ErrorMessage string
}

// Stats contains overall verification statistics.
type Stats struct {
	TablesVerified int
	TablesPassed   int
	TablesFailed   int
	TotalRows      int64
	Method         Method
}

// Catalog table and column layout. The column order here must mirror the
// insert order used when the catalog is written, because the digest is
// computed over columns in this order on both sides.
const (
	tableTypes      = "ontology_types"
	tableInformants = "informants"
)

var (
	typeColumns      = []string{"position", "name", "parents", "source_depth", "sink_depth", "nearest_sink_children", "is_sink", "is_root"}
	informantColumns = []string{"position", "name", "type_name", "document", "entry_time", "verification_status"}
)

// Verifier compares in-memory build outputs against catalog tables.
type Verifier struct {
	db      *sql.DB
	dialect database.Dialect
	method  Method
	logger  *logger.Logger
}

// New creates a verifier for the given catalog connection.
func New(db *sql.DB, dialect database.Dialect, method Method, log *logger.Logger) (*Verifier, error) {
	if db == nil {
		return nil, fmt.Errorf("catalog database is nil")
	}
	if log == nil {
		log = logger.NewNop()
	}

	// Default to count if method not specified
	if method == "" {
		method = MethodCount
	}

	return &Verifier{
		db:      db,
		dialect: dialect,
		method:  method,
		logger:  log,
	}, nil
}

// GetMethod returns the configured verification method.
func (v *Verifier) GetMethod() Method {
	return v.method
}

// Verify checks the graph and store tables, in that order, skipping
// whichever argument is nil. On the first mismatch it returns the
// statistics gathered so far together with a detailed error.
func (v *Verifier) Verify(ctx context.Context, g *ontology.Graph, s *store.Store) (*Stats, error) {
	if v.method == MethodSkip {
		v.logger.Infow("verification skipped", "method", MethodSkip)
		return &Stats{Method: MethodSkip}, nil
	}

	stats := &Stats{Method: v.method}

	// Record a table result, failing on the first mismatch so later
	// tables are not queried.
	check := func(result *Result) error {
		stats.TablesVerified++
		stats.TotalRows += result.MemoryCount

		if result.Match {
			stats.TablesPassed++
			v.logger.Debugw("verification passed", "table", result.Table, "rows", result.MemoryCount)
			return nil
		}
		stats.TablesFailed++
		v.logger.Errorw("verification failed", "table", result.Table, "reason", result.ErrorMessage)
		return fmt.Errorf("verification mismatch in table %s: %s", result.Table, result.ErrorMessage)
	}

	if g != nil {
		result, err := v.VerifyGraph(ctx, g)
		if err != nil {
			return stats, err
		}
		if err := check(result); err != nil {
			return stats, err
		}
	}
	if s != nil {
		result, err := v.VerifyStore(ctx, s)
		if err != nil {
			return stats, err
		}
		if err := check(result); err != nil {
			return stats, err
		}
	}

	v.logger.Debugw("verification complete",
		"tables", stats.TablesVerified, "passed", stats.TablesPassed, "rows", stats.TotalRows)
	return stats, nil
}

// VerifyStore checks the informants table against the in-memory store.
func (v *Verifier) VerifyStore(ctx context.Context, s *store.Store) (*Result, error) {
	if v.method == MethodSkip {
		return &Result{Table: tableInformants, Method: MethodSkip, Match: true}, nil
	}

	var memoryHash string
	if v.method == MethodSHA256 {
		var err error
		memoryHash, _, err = v.hashStoreRows(s.Rows())
		if err != nil {
			return nil, fmt.Errorf("failed to hash store rows: %w", err)
		}
	}
	return v.verifyTable(ctx, tableInformants, informantColumns, memoryHash, int64(s.Len()))
}

// VerifyGraph checks the ontology_types table against the in-memory graph.
func (v *Verifier) VerifyGraph(ctx context.Context, g *ontology.Graph) (*Result, error) {
	if v.method == MethodSkip {
		return &Result{Table: tableTypes, Method: MethodSkip, Match: true}, nil
	}

	var memoryHash string
	if v.method == MethodSHA256 {
		var err error
		memoryHash, _, err = v.hashGraphNodes(g)
		if err != nil {
			return nil, fmt.Errorf("failed to hash graph nodes: %w", err)
		}
	}
	return v.verifyTable(ctx, tableTypes, typeColumns, memoryHash, int64(g.NodeCount()))
}

// verifyTable compares the memory-side digest and count against the
// catalog table, honoring the configured method.
func (v *Verifier) verifyTable(ctx context.Context, table string, columns []string, memoryHash string, memoryCount int64) (*Result, error) {
	result := &Result{
		Table:       table,
		Method:      v.method,
		MemoryCount: memoryCount,
		MemoryHash:  memoryHash,
	}

	switch v.method {
	case MethodCount:
		catalogCount, err := v.countTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		result.CatalogCount = catalogCount
		result.Match = memoryCount == catalogCount

	case MethodSHA256:
		catalogHash, catalogCount, err := v.computeTableHash(ctx, table, columns)
		if err != nil {
			return nil, fmt.Errorf("failed to compute %s hash: %w", table, err)
		}
		result.CatalogCount = catalogCount
		result.CatalogHash = catalogHash
		result.Match = memoryHash == catalogHash && memoryCount == catalogCount

	default:
		return nil, fmt.Errorf("unsupported verification method: %s", v.method)
	}

	if !result.Match {
		if result.MemoryCount != result.CatalogCount {
			result.ErrorMessage = fmt.Sprintf("count mismatch: memory=%d, catalog=%d",
				result.MemoryCount, result.CatalogCount)
		} else {
			result.ErrorMessage = fmt.Sprintf("hash mismatch: memory=%s, catalog=%s",
				result.MemoryHash[:16], result.CatalogHash[:16])
		}
	}

	return result, nil
}

// countTable returns the row count of a catalog table.
func (v *Verifier) countTable(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", v.dialect.QuoteIdentifier(table))
	var count int64
	if err := v.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// computeTableHash computes a SHA256 digest of all rows in the table,
// ordered by position for determinism.
func (v *Verifier) computeTableHash(ctx context.Context, table string, columns []string) (string, int64, error) {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = v.dialect.QuoteIdentifier(col)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), v.dialect.QuoteIdentifier(table), v.dialect.QuoteIdentifier("position"))

	rows, err := v.db.QueryContext(ctx, query)
	if err != nil {
		return "", 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	hasher := sha256.New()
	var totalRows int64

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return "", 0, fmt.Errorf("hash computation interrupted: %w", err)
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for j := range values {
			valuePtrs[j] = &values[j]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return "", 0, fmt.Errorf("failed to scan row: %w", err)
		}

		hasher.Write([]byte(serializeRow(columns, values)))
		hasher.Write([]byte("\n"))
		totalRows++
	}
	if err := rows.Err(); err != nil {
		return "", 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), totalRows, nil
}

// hashStoreRows computes the memory-side digest of store rows, built from
// the same values a store write sends to the catalog.
func (v *Verifier) hashStoreRows(rows []*store.Row) (string, int64, error) {
	hasher := sha256.New()
	for i, row := range rows {
		document, err := json.Marshal(row.Record)
		if err != nil {
			return "", 0, fmt.Errorf("failed to marshal record %q: %w", row.Name, err)
		}
		values := []interface{}{
			int64(i),
			row.Name,
			row.Record.TypeName,
			string(document),
			row.EntryTime,
			row.VerificationStatus,
		}
		hasher.Write([]byte(serializeRow(informantColumns, values)))
		hasher.Write([]byte("\n"))
	}
	return hex.EncodeToString(hasher.Sum(nil)), int64(len(rows)), nil
}

// hashGraphNodes computes the memory-side digest of graph nodes, built
// from the same values a graph write sends to the catalog.
func (v *Verifier) hashGraphNodes(g *ontology.Graph) (string, int64, error) {
	hasher := sha256.New()
	names := g.AllNodes()
	for i, name := range names {
		node := g.GetNode(name)
		if node == nil {
			return "", 0, fmt.Errorf("graph has no node %q", name)
		}
		parents, err := json.Marshal(g.GetParents(name))
		if err != nil {
			return "", 0, fmt.Errorf("failed to marshal parents of %q: %w", name, err)
		}
		sinkChildren, err := json.Marshal(node.NearestSinkChildren)
		if err != nil {
			return "", 0, fmt.Errorf("failed to marshal sink children of %q: %w", name, err)
		}
		values := []interface{}{
			int64(i),
			name,
			string(parents),
			int64(node.SourceDepth),
			int64(node.SinkDepth),
			string(sinkChildren),
			boolValue(node.IsSink),
			boolValue(node.IsRoot),
		}
		hasher.Write([]byte(serializeRow(typeColumns, values)))
		hasher.Write([]byte("\n"))
	}
	return hex.EncodeToString(hasher.Sum(nil)), int64(len(names)), nil
}

// boolValue converts a bool to the integer form it takes in the catalog.
func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// serializeRow converts a row to a deterministic string representation for
// hashing. Format: col1=val1,col2=val2,... with a null byte separator so
// values containing commas stay unambiguous.
func serializeRow(columns []string, values []interface{}) string {
	var parts []string

	for i, col := range columns {
		val := values[i]
		var valStr string

		switch v := val.(type) {
		case nil:
			valStr = "NULL"
		case []byte:
			valStr = string(v)
		case int64:
			valStr = fmt.Sprintf("%d", v)
		case float64:
			valStr = fmt.Sprintf("%f", v)
		case bool:
			valStr = fmt.Sprintf("%t", v)
		case string:
			valStr = v
		default:
			valStr = fmt.Sprintf("%v", v)
		}

		parts = append(parts, fmt.Sprintf("%s=%s", col, valStr))
	}

	return strings.Join(parts, "\x00")
}
