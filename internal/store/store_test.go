package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ontocat/ontocat/internal/informant"
)

// fixedClock pins entry dates so tests can assert them.
func fixedClock(s *Store) {
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
}

const fixedDate = "03_14_2026"

// rec builds a record for store tests.
func rec(t *testing.T, name string, opts ...informant.Option) *informant.Record {
	t.Helper()
	r, err := informant.New("Informant", name, opts...)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", name, err)
	}
	return r
}

func TestAppend_NewRows(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	skipped, err := s.Append([]*informant.Record{rec(t, "alpha"), rec(t, "beta")}, AppendOptions{})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}

	row, ok := s.Get("alpha")
	if !ok {
		t.Fatal("alpha not found")
	}
	if row.EntryTime != fixedDate {
		t.Errorf("entry time = %q, want %q", row.EntryTime, fixedDate)
	}
	if row.VerificationStatus != StatusPending {
		t.Errorf("verification status = %q, want pending", row.VerificationStatus)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestAppend_VerifyStampsDate(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{Verify: true}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	row, _ := s.Get("alpha")
	if row.VerificationStatus != fixedDate {
		t.Errorf("verification status = %q, want %q", row.VerificationStatus, fixedDate)
	}
}

func TestAppend_DuplicateSkippedByDefault(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	first := rec(t, "alpha", informant.WithDescription("one"))
	if _, err := s.Append([]*informant.Record{first}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	skipped, err := s.Append([]*informant.Record{rec(t, "alpha", informant.WithDescription("two"))}, AppendOptions{})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !reflect.DeepEqual(skipped, []string{"alpha"}) {
		t.Errorf("skipped = %v, want [alpha]", skipped)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	row, _ := s.Get("alpha")
	if row.Record.Description != "one" {
		t.Error("a reported no-op must not change the stored row")
	}
}

func TestAppend_Replace(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha", informant.WithDescription("one")), rec(t, "beta")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	skipped, err := s.Append([]*informant.Record{rec(t, "alpha", informant.WithDescription("two"))}, AppendOptions{Replace: true})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}

	// Position is retained, content replaced.
	if got := s.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("Names = %v", got)
	}
	row, _ := s.Get("alpha")
	if row.Record.Description != "two" {
		t.Errorf("description = %q, want the replacement", row.Record.Description)
	}
}

func TestAppend_AllowDuplicates(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	first := rec(t, "alpha", informant.WithDescription("one"))
	second := rec(t, "alpha", informant.WithDescription("two"))
	if _, err := s.Append([]*informant.Record{first}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	skipped, err := s.Append([]*informant.Record{second}, AppendOptions{AllowDuplicates: true})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	// Lookups resolve to the first row; iteration sees both.
	row, _ := s.Get("alpha")
	if row.Record.Description != "one" {
		t.Errorf("Get resolved %q, want the first row", row.Record.Description)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"alpha", "alpha"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestAppend_AllowDuplicatesWinsOverReplace(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{AllowDuplicates: true, Replace: true}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want a second row, not a replacement", s.Len())
	}
}

func TestAppend_NilRecord(t *testing.T) {
	s := New(nil)

	if _, err := s.Append([]*informant.Record{nil}, AppendOptions{}); err == nil {
		t.Error("nil record must error")
	}
	unnamed := &informant.Record{TypeName: "Informant"}
	if _, err := s.Append([]*informant.Record{unnamed}, AppendOptions{}); err == nil {
		t.Error("unnamed record must error")
	}
}

func TestDelete(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha"), rec(t, "beta"), rec(t, "gamma")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if !s.Delete("beta") {
		t.Fatal("Delete(beta) = false")
	}
	if s.Delete("beta") {
		t.Error("second Delete(beta) should be false")
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"alpha", "gamma"}) {
		t.Errorf("Names = %v", got)
	}
	if s.Has("beta") {
		t.Error("beta should be gone")
	}
}

func TestDelete_DuplicatePromotesNext(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	first := rec(t, "alpha", informant.WithDescription("one"))
	second := rec(t, "alpha", informant.WithDescription("two"))
	if _, err := s.Append([]*informant.Record{first}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := s.Append([]*informant.Record{second}, AppendOptions{AllowDuplicates: true}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if !s.Delete("alpha") {
		t.Fatal("Delete failed")
	}
	row, ok := s.Get("alpha")
	if !ok {
		t.Fatal("the second row should remain")
	}
	if row.Record.Description != "two" {
		t.Errorf("lookup resolved %q, want the promoted row", row.Record.Description)
	}
}

func TestResolve(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	var res informant.Resolver = s
	got, ok := res.Resolve("alpha")
	if !ok || got.Name != "alpha" {
		t.Errorf("Resolve = %v, %v", got, ok)
	}
	if _, ok := res.Resolve("ghost"); ok {
		t.Error("ghost should not resolve")
	}
}

func TestMarkVerified(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if !s.MarkVerified("alpha", "") {
		t.Fatal("MarkVerified failed")
	}
	row, _ := s.Get("alpha")
	if row.VerificationStatus != fixedDate {
		t.Errorf("status = %q, want %q", row.VerificationStatus, fixedDate)
	}
	if s.MarkVerified("ghost", "") {
		t.Error("MarkVerified on a missing name should be false")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	records := []*informant.Record{
		rec(t, "alpha", informant.WithTags("raw"), informant.WithReferences("beta")),
		rec(t, "beta", informant.WithDescription("second")),
		rec(t, "gamma"),
	}
	if _, err := s.Append(records, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "store.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := New(nil)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Len() != 3 {
		t.Fatalf("Len = %d", loaded.Len())
	}
	if got := loaded.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta", "gamma"}) {
		t.Errorf("Names = %v", got)
	}
	row, ok := loaded.Get("alpha")
	if !ok {
		t.Fatal("alpha missing after load")
	}
	if row.EntryTime != fixedDate {
		t.Errorf("entry time = %q", row.EntryTime)
	}
	if !reflect.DeepEqual(row.Record.Tags, []string{"raw"}) {
		t.Errorf("tags = %v", row.Record.Tags)
	}
	if !reflect.DeepEqual(row.Record.References, []string{"beta"}) {
		t.Errorf("references = %v", row.Record.References)
	}
}

func TestLoad_RejectsBadSnapshot(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := New(nil)
	if err := s.Load(bad); err == nil {
		t.Error("malformed JSON must error")
	}

	unnamed := filepath.Join(dir, "unnamed.json")
	if err := os.WriteFile(unnamed, []byte(`{"rows":[{"entry_time":"01_01_2026"}]}`), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := s.Load(unnamed); err == nil {
		t.Error("a row without a name must error")
	}

	if err := s.Load(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("a missing file must error")
	}
}

func TestRows_CopyIsShallow(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows := s.Rows()
	rows[0] = nil
	if row, ok := s.Get("alpha"); !ok || row == nil {
		t.Error("mutating the returned slice must not affect the store")
	}
}

func TestMarkAllVerified(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	if _, err := s.Append([]*informant.Record{rec(t, "alpha"), rec(t, "beta")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if n := s.MarkAllVerified(""); n != 2 {
		t.Errorf("stamped = %d, want 2", n)
	}
	for _, row := range s.Rows() {
		if row.VerificationStatus != fixedDate {
			t.Errorf("%s status = %q, want %q", row.Name, row.VerificationStatus, fixedDate)
		}
	}
}

func TestSetRows(t *testing.T) {
	src := New(nil)
	fixedClock(src)
	if _, err := src.Append([]*informant.Record{rec(t, "alpha"), rec(t, "beta")}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	dst := New(nil)
	if err := dst.SetRows(src.Rows()); err != nil {
		t.Fatalf("SetRows failed: %v", err)
	}
	if got := dst.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("Names = %v", got)
	}
	row, ok := dst.Get("beta")
	if !ok || row.EntryTime != fixedDate {
		t.Errorf("beta row = %+v, %v", row, ok)
	}

	if err := dst.SetRows([]*Row{{Name: "ghost"}}); err == nil {
		t.Error("a row without a record must be rejected")
	}
}
