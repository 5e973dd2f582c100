// Package catalog persists build outputs. The annotated type graph and
// the record store land in sqlite (default) or mysql tables so later runs
// can load them without rebuilding, and so other tools can query them.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ontocat/ontocat/internal/config"
	"github.com/ontocat/ontocat/internal/database"
	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/lock"
	"github.com/ontocat/ontocat/internal/logger"
	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/store"
	"github.com/ontocat/ontocat/internal/verifier"
)

// Manager reads and writes the catalog tables. Writes hold the catalog
// write lock; reads run unlocked.
type Manager struct {
	db      *sql.DB
	dialect database.Dialect
	log     *logger.Logger

	// conn is set when the manager opened its own connection and owns
	// closing it.
	conn *database.Manager

	now func() time.Time
}

// NewManager wraps an existing catalog connection. The caller keeps
// ownership of the connection unless the manager was built with Open.
func NewManager(db *sql.DB, dialect database.Dialect, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		db:      db,
		dialect: dialect,
		log:     log,
		now:     time.Now,
	}
}

// Open connects to the catalog described by the configuration and ensures
// the schema exists.
func Open(ctx context.Context, cfg *config.CatalogConfig, log *logger.Logger) (*Manager, error) {
	conn, err := database.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	m := NewManager(conn.DB, conn.Dialect(), log)
	m.conn = conn
	if err := m.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the catalog connection.
func (m *Manager) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// DB exposes the underlying connection for components that run their own
// queries, like the verifier.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Dialect returns the catalog dialect.
func (m *Manager) Dialect() database.Dialect {
	return m.dialect
}

// Ping reports whether the catalog is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("catalog is not connected")
	}
	return m.db.PingContext(ctx)
}

// EnsureSchema creates the catalog tables when missing.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(m.dialect) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	if err := lock.EnsureSchema(ctx, m.dialect, m.db); err != nil {
		return err
	}
	m.log.Debugw("catalog schema ready", "dialect", m.dialect)
	return nil
}

// SaveOptions controls how a catalog write is checked.
type SaveOptions struct {
	// Verify selects the post-write integrity check. Empty or MethodSkip
	// writes without checking.
	Verify verifier.Method
}

func (o SaveOptions) wantsVerify() bool {
	return o.Verify != "" && o.Verify != verifier.MethodSkip
}

// SaveGraph rewrites the ontology_types table from the graph, holding the
// catalog write lock for the duration. With opts.Verify set, the write is
// checked against the table before the lock is given back.
func (m *Manager) SaveGraph(ctx context.Context, g *ontology.Graph, opts SaveOptions) (*verifier.Stats, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}

	var stats *verifier.Stats
	l := lock.New(m.dialect, m.db, lock.GenerateLockName("write"))
	err := lock.WithLock(ctx, l, lock.TimeoutShort, func() error {
		if err := m.writeGraph(ctx, g); err != nil {
			return err
		}
		if !opts.wantsVerify() {
			return nil
		}
		v, err := verifier.New(m.db, m.dialect, opts.Verify, m.log)
		if err != nil {
			return err
		}
		stats, err = v.Verify(ctx, g, nil)
		return err
	})
	if err != nil {
		return stats, err
	}

	m.log.Debugw("saved graph", "types", g.NodeCount(), "root", g.Root)
	return stats, nil
}

// SaveStore rewrites the informants table from the store under the
// catalog write lock. With opts.Verify set, the write is checked before
// the lock is given back, and a clean check stamps every row, in the
// catalog and in memory, with today's date.
func (m *Manager) SaveStore(ctx context.Context, s *store.Store, opts SaveOptions) (*verifier.Stats, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}

	var stats *verifier.Stats
	l := lock.New(m.dialect, m.db, lock.GenerateLockName("write"))
	err := lock.WithLock(ctx, l, lock.TimeoutShort, func() error {
		if err := m.writeStore(ctx, s); err != nil {
			return err
		}
		if !opts.wantsVerify() {
			return nil
		}
		v, err := verifier.New(m.db, m.dialect, opts.Verify, m.log)
		if err != nil {
			return err
		}
		stats, err = v.Verify(ctx, nil, s)
		if err != nil {
			return err
		}
		return m.markVerified(ctx, s)
	})
	if err != nil {
		return stats, err
	}

	m.log.Debugw("saved store", "rows", s.Len())
	return stats, nil
}

// writeGraph replaces the ontology_types rows inside one transaction.
func (m *Manager) writeGraph(ctx context.Context, g *ontology.Graph) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.log.Errorw("failed to rollback graph write", "error", rbErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", m.dialect.QuoteIdentifier(tableTypes))); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tableTypes, err)
	}

	insert := m.insertQuery(tableTypes, typeColumns)
	for i, name := range g.AllNodes() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("graph write interrupted: %w", err)
		}

		node := g.GetNode(name)
		if node == nil {
			return fmt.Errorf("graph has no node %q", name)
		}
		parents, err := json.Marshal(g.GetParents(name))
		if err != nil {
			return fmt.Errorf("failed to marshal parents of %q: %w", name, err)
		}
		sinkChildren, err := json.Marshal(node.NearestSinkChildren)
		if err != nil {
			return fmt.Errorf("failed to marshal sink children of %q: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, insert,
			int64(i), name, string(parents), int64(node.SourceDepth), int64(node.SinkDepth),
			string(sinkChildren), boolValue(node.IsSink), boolValue(node.IsRoot)); err != nil {
			return fmt.Errorf("failed to insert type %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph write: %w", err)
	}
	tx = nil
	return nil
}

// writeStore replaces the informants rows inside one transaction.
func (m *Manager) writeStore(ctx context.Context, s *store.Store) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.log.Errorw("failed to rollback store write", "error", rbErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", m.dialect.QuoteIdentifier(tableInformants))); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tableInformants, err)
	}

	insert := m.insertQuery(tableInformants, informantColumns)
	for i, row := range s.Rows() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("store write interrupted: %w", err)
		}

		document, err := json.Marshal(row.Record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %q: %w", row.Name, err)
		}

		if _, err := tx.ExecContext(ctx, insert,
			int64(i), row.Name, row.Record.TypeName, string(document), row.EntryTime, row.VerificationStatus); err != nil {
			return fmt.Errorf("failed to insert record %q: %w", row.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit store write: %w", err)
	}
	tx = nil
	return nil
}

// markVerified stamps every informant row with today's date after a clean
// post-write check, in the catalog first and the store after.
func (m *Manager) markVerified(ctx context.Context, s *store.Store) error {
	date := m.now().Format(store.EntryTimeLayout)
	query := fmt.Sprintf("UPDATE %s SET %s = ?",
		m.dialect.QuoteIdentifier(tableInformants), m.dialect.QuoteIdentifier("verification_status"))
	if _, err := m.db.ExecContext(ctx, query, date); err != nil {
		return fmt.Errorf("failed to stamp verification date: %w", err)
	}
	s.MarkAllVerified(date)
	m.log.Debugw("store write verified", "rows", s.Len(), "date", date)
	return nil
}

// LoadGraph rebuilds the annotated graph from the ontology_types table.
func (m *Manager) LoadGraph(ctx context.Context) (*ontology.Graph, error) {
	rows, err := m.db.QueryContext(ctx, m.selectQuery(tableTypes, typeColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableTypes, err)
	}
	defer rows.Close()

	type typeRow struct {
		name    string
		parents []string
		node    *ontology.Node
	}
	var loaded []typeRow
	root := ""

	for rows.Next() {
		var (
			position         int64
			name             string
			parentsJSON      string
			sourceDepth      int
			sinkDepth        int
			sinkChildrenJSON string
			isSink           bool
			isRoot           bool
		)
		if err := rows.Scan(&position, &name, &parentsJSON, &sourceDepth, &sinkDepth, &sinkChildrenJSON, &isSink, &isRoot); err != nil {
			return nil, fmt.Errorf("failed to scan type row: %w", err)
		}

		var parents []string
		if err := json.Unmarshal([]byte(parentsJSON), &parents); err != nil {
			return nil, fmt.Errorf("failed to parse parents of %q: %w", name, err)
		}
		var sinkChildren []string
		if err := json.Unmarshal([]byte(sinkChildrenJSON), &sinkChildren); err != nil {
			return nil, fmt.Errorf("failed to parse sink children of %q: %w", name, err)
		}

		if isRoot {
			root = name
		}
		loaded = append(loaded, typeRow{
			name:    name,
			parents: parents,
			node: &ontology.Node{
				Name:                name,
				SourceDepth:         sourceDepth,
				SinkDepth:           sinkDepth,
				NearestSinkChildren: sinkChildren,
				IsSink:              isSink,
				IsRoot:              isRoot,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableTypes, err)
	}

	if len(loaded) == 0 {
		return nil, fmt.Errorf("catalog holds no ontology (run a build first)")
	}
	if root == "" {
		return nil, fmt.Errorf("catalog holds no root type")
	}

	g := ontology.NewGraph(root)
	for _, tr := range loaded {
		g.AddNode(tr.name, tr.node)
	}
	for _, tr := range loaded {
		for _, parent := range tr.parents {
			g.AddEdge(parent, tr.name)
		}
	}

	m.log.Debugw("loaded graph", "types", g.NodeCount(), "root", root)
	return g, nil
}

// LoadStore rebuilds the record store from the informants table, rows in
// their original order.
func (m *Manager) LoadStore(ctx context.Context) (*store.Store, error) {
	rows, err := m.db.QueryContext(ctx, m.selectQuery(tableInformants, informantColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableInformants, err)
	}
	defer rows.Close()

	var loaded []*store.Row
	for rows.Next() {
		var (
			position  int64
			name      string
			typeName  string
			document  string
			entryTime string
			status    string
		)
		if err := rows.Scan(&position, &name, &typeName, &document, &entryTime, &status); err != nil {
			return nil, fmt.Errorf("failed to scan informant row: %w", err)
		}

		var rec informant.Record
		if err := json.Unmarshal([]byte(document), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse record %q: %w", name, err)
		}

		loaded = append(loaded, &store.Row{
			Name:               name,
			Record:             &rec,
			EntryTime:          entryTime,
			VerificationStatus: status,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tableInformants, err)
	}

	s := store.New(m.log)
	if err := s.SetRows(loaded); err != nil {
		return nil, fmt.Errorf("failed to rebuild store: %w", err)
	}

	m.log.Debugw("loaded store", "rows", s.Len())
	return s, nil
}

// insertQuery builds the parameterized insert for a table in the catalog
// dialect.
func (m *Manager) insertQuery(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = m.dialect.QuoteIdentifier(col)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.dialect.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
}

// selectQuery builds the ordered select for a table in the catalog
// dialect.
func (m *Manager) selectQuery(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = m.dialect.QuoteIdentifier(col)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), m.dialect.QuoteIdentifier(table), m.dialect.QuoteIdentifier("position"))
}

// boolValue converts a bool to the integer form it takes in the catalog.
func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
