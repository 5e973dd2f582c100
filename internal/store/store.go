// Package store holds the ordered, name-keyed collection of records and
// its filtering operations.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	orderedmap "github.com/elliotchance/orderedmap/v2"

	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/logger"
)

// EntryTimeLayout formats row dates as month_day_year.
const EntryTimeLayout = "01_02_2006"

// StatusPending marks a row that has not been verified yet.
const StatusPending = "pending"

// Row is one store entry: a record plus its accession metadata.
type Row struct {
	Name               string             `json:"name"`
	Record             *informant.Record  `json:"record"`
	EntryTime          string             `json:"entry_time"`
	VerificationStatus string             `json:"verification_status"`
}

// AppendOptions controls how Append treats names already present.
type AppendOptions struct {
	// AllowDuplicates appends a second row under an existing name instead
	// of skipping it. It wins over Replace.
	AllowDuplicates bool
	// Replace updates the first existing row in place, keeping its
	// position.
	Replace bool
	// Verify stamps the verification status with today's date instead of
	// leaving the row pending.
	Verify bool
}

// Store is an insertion-ordered collection of rows indexed by record name.
// Lookups resolve to the first row appended under a name; iteration sees
// every row.
type Store struct {
	rows  []*Row
	index *orderedmap.OrderedMap[string, *Row]
	log   *logger.Logger

	// now is swapped in tests to pin entry dates.
	now func() time.Time
}

// New creates an empty store. A nil logger is replaced with a no-op one.
func New(log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		index: orderedmap.NewOrderedMap[string, *Row](),
		log:   log,
		now:   time.Now,
	}
}

// Len returns the number of rows, duplicates included.
func (s *Store) Len() int {
	return len(s.rows)
}

// Rows returns the rows in insertion order. The slice is fresh, the rows
// are shared.
func (s *Store) Rows() []*Row {
	out := make([]*Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Names returns one name per row, in insertion order. Names repeat when
// duplicates were allowed in.
func (s *Store) Names() []string {
	out := make([]string, len(s.rows))
	for i, row := range s.rows {
		out[i] = row.Name
	}
	return out
}

// Get returns the first row appended under the name.
func (s *Store) Get(name string) (*Row, bool) {
	return s.index.Get(name)
}

// Has reports whether any row carries the name.
func (s *Store) Has(name string) bool {
	_, ok := s.index.Get(name)
	return ok
}

// Resolve satisfies informant.Resolver for reference walks.
func (s *Store) Resolve(name string) (*informant.Record, bool) {
	row, ok := s.index.Get(name)
	if !ok {
		return nil, false
	}
	return row.Record, true
}

// Append adds records to the store. A record whose name is already
// present is appended anyway under AllowDuplicates, updated in place under
// Replace, and otherwise skipped; the skipped names are returned in input
// order and nothing about their rows changes. Nil records are an error.
func (s *Store) Append(records []*informant.Record, opts AppendOptions) ([]string, error) {
	today := s.now().Format(EntryTimeLayout)
	status := StatusPending
	if opts.Verify {
		status = today
	}

	var skipped []string
	for i, rec := range records {
		if rec == nil {
			return skipped, fmt.Errorf("append: record %d is nil", i)
		}
		if rec.Name == "" {
			return skipped, fmt.Errorf("append: record %d has no name", i)
		}

		existing, present := s.index.Get(rec.Name)
		switch {
		case !present || opts.AllowDuplicates:
			row := &Row{
				Name:               rec.Name,
				Record:             rec,
				EntryTime:          today,
				VerificationStatus: status,
			}
			s.rows = append(s.rows, row)
			if !present {
				s.index.Set(rec.Name, row)
			}
		case opts.Replace:
			existing.Record = rec
			existing.EntryTime = today
			existing.VerificationStatus = status
			s.log.Debugw("replaced stored record", "name", rec.Name)
		default:
			skipped = append(skipped, rec.Name)
			s.log.Debugw("skipped duplicate record", "name", rec.Name)
		}
	}
	return skipped, nil
}

// Delete removes the first row stored under the name, keeping the order
// of the rest. When duplicates exist, the next row with the same name
// becomes the one lookups resolve to.
func (s *Store) Delete(name string) bool {
	idx := -1
	for i, row := range s.rows {
		if row.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.rows = append(s.rows[:idx], s.rows[idx+1:]...)
	s.index.Delete(name)
	for _, row := range s.rows[idx:] {
		if row.Name == name {
			s.index.Set(name, row)
			break
		}
	}
	return true
}

// MarkVerified stamps the first row under the name with the given date,
// or today when date is empty.
func (s *Store) MarkVerified(name, date string) bool {
	row, ok := s.index.Get(name)
	if !ok {
		return false
	}
	if date == "" {
		date = s.now().Format(EntryTimeLayout)
	}
	row.VerificationStatus = date
	return true
}

// MarkAllVerified stamps every row with the given date, or today when date
// is empty. Returns the number of rows stamped.
func (s *Store) MarkAllVerified(date string) int {
	if date == "" {
		date = s.now().Format(EntryTimeLayout)
	}
	for _, row := range s.rows {
		row.VerificationStatus = date
	}
	return len(s.rows)
}

// SetRows replaces the store contents with rows already carrying their
// entry metadata, keeping their order. Used when rehydrating a store from
// the catalog.
func (s *Store) SetRows(rows []*Row) error {
	next := make([]*Row, 0, len(rows))
	index := orderedmap.NewOrderedMap[string, *Row]()
	for i, row := range rows {
		if row == nil || row.Record == nil || row.Name == "" {
			return fmt.Errorf("set rows: row %d has no name", i)
		}
		next = append(next, row)
		if _, present := index.Get(row.Name); !present {
			index.Set(row.Name, row)
		}
	}

	s.rows = next
	s.index = index
	return nil
}

// snapshot is the on-disk JSON shape of a store.
type snapshot struct {
	Rows []*Row `json:"rows"`
}

// Save writes the store as a JSON snapshot, rows in insertion order.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(snapshot{Rows: s.rows}, "", "  ")
	if err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	s.log.Debugw("saved store snapshot", "path", path, "rows", len(s.rows))
	return nil
}

// Load replaces the store contents with a snapshot written by Save.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("load store: parse %s: %w", path, err)
	}

	rows := make([]*Row, 0, len(snap.Rows))
	index := orderedmap.NewOrderedMap[string, *Row]()
	for i, row := range snap.Rows {
		if row == nil || row.Name == "" {
			return fmt.Errorf("load store: row %d of %s has no name", i, path)
		}
		rows = append(rows, row)
		if _, present := index.Get(row.Name); !present {
			index.Set(row.Name, row)
		}
	}

	s.rows = rows
	s.index = index
	s.log.Debugw("loaded store snapshot", "path", path, "rows", len(rows))
	return nil
}
