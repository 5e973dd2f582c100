// Package accession keeps a JSON journal of store and catalog activity,
// newest entries first, grouped by the actor that performed them.
package accession

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ontocat/ontocat/internal/logger"
)

// DefaultMaxEntries caps how many entries one actor keeps.
const DefaultMaxEntries = 500

// Actions recorded in the journal.
const (
	ActionAppend = "append"
	ActionDelete = "delete"
	ActionBuild  = "build"
	ActionFilter = "filter"
	ActionReduce = "reduce"
	ActionVerify = "verify"
)

// Entry is one journal line. Actor is filled in when entries are read
// back; on disk the actor is the grouping key, not a field.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Records   []string  `json:"records,omitempty"`
	Ontology  string    `json:"ontology,omitempty"`

	Actor string `json:"-"`
}

// journalFile is the on-disk shape: entries grouped per actor, each list
// newest first.
type journalFile struct {
	Actors map[string][]Entry `json:"actors"`
}

// Journal reads and writes one accession record file.
type Journal struct {
	Path       string
	MaxEntries int // 0 means DefaultMaxEntries

	log *logger.Logger
	now func() time.Time
}

// New opens a journal at path. The file is created on first Append.
func New(path string, log *logger.Logger) *Journal {
	if log == nil {
		log = logger.NewNop()
	}
	return &Journal{
		Path: path,
		log:  log,
		now:  time.Now,
	}
}

func (j *Journal) maxEntries() int {
	if j.MaxEntries > 0 {
		return j.MaxEntries
	}
	return DefaultMaxEntries
}

// load reads the journal file. A missing, empty, corrupt or wrong-shape
// file resets to an empty journal with a warning rather than failing, so
// one bad write never blocks future logging.
func (j *Journal) load() *journalFile {
	empty := &journalFile{Actors: make(map[string][]Entry)}

	data, err := os.ReadFile(j.Path)
	if err != nil || len(data) == 0 {
		return empty
	}

	var jf journalFile
	if err := json.Unmarshal(data, &jf); err != nil {
		j.log.Warnw("corrupt accession record, resetting", "path", j.Path, "error", err)
		return empty
	}
	if jf.Actors == nil {
		jf.Actors = make(map[string][]Entry)
	}
	return &jf
}

func (j *Journal) save(jf *journalFile) error {
	data, err := json.MarshalIndent(jf, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal accession record: %w", err)
	}
	if err := os.WriteFile(j.Path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write accession record: %w", err)
	}
	return nil
}

// Append prepends an entry to the actor's list and truncates the list to
// the entry cap. The entry's ID and timestamp are assigned here; the
// completed entry is returned.
func (j *Journal) Append(actor string, e Entry) (Entry, error) {
	if actor == "" {
		return Entry{}, fmt.Errorf("actor name is empty")
	}
	if e.Action == "" {
		return Entry{}, fmt.Errorf("entry action is empty")
	}

	e.ID = uuid.NewString()
	e.Timestamp = j.now()
	e.Actor = actor

	jf := j.load()
	entries := append([]Entry{e}, jf.Actors[actor]...)
	if max := j.maxEntries(); len(entries) > max {
		entries = entries[:max]
	}
	jf.Actors[actor] = entries

	if err := j.save(jf); err != nil {
		return Entry{}, err
	}
	j.log.Debugw("accession logged",
		"actor", actor,
		"action", e.Action,
		"records", len(e.Records))
	return e, nil
}

// Read returns every actor's entries, newest first per actor. A missing
// file reads as an empty journal.
func (j *Journal) Read() (map[string][]Entry, error) {
	return j.load().Actors, nil
}

// Entries returns one actor's entries, newest first.
func (j *Journal) Entries(actor string) []Entry {
	entries := j.load().Actors[actor]
	for i := range entries {
		entries[i].Actor = actor
	}
	return entries
}

// Recent flattens all actors into one newest-first list, truncated to
// limit when limit is positive. Ties keep actor-list order.
func (j *Journal) Recent(limit int) []Entry {
	jf := j.load()

	var all []Entry
	actors := make([]string, 0, len(jf.Actors))
	for actor := range jf.Actors {
		actors = append(actors, actor)
	}
	sort.Strings(actors)
	for _, actor := range actors {
		for _, e := range jf.Actors[actor] {
			e.Actor = actor
			all = append(all, e)
		}
	}

	sort.SliceStable(all, func(i, k int) bool {
		return all[i].Timestamp.After(all[k].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Prune truncates every actor's list to max entries and drops actors left
// with none. It reports how many entries were removed.
func (j *Journal) Prune(max int) (int, error) {
	if max < 0 {
		return 0, fmt.Errorf("prune size must not be negative")
	}

	jf := j.load()
	removed := 0
	for actor, entries := range jf.Actors {
		if len(entries) <= max {
			continue
		}
		removed += len(entries) - max
		if max == 0 {
			delete(jf.Actors, actor)
			continue
		}
		jf.Actors[actor] = entries[:max]
	}
	if removed == 0 {
		return 0, nil
	}

	if err := j.save(jf); err != nil {
		return 0, err
	}
	j.log.Debugw("accession record pruned", "removed", removed, "keep", max)
	return removed, nil
}
