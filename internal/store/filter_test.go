package store

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/goleak"

	"github.com/ontocat/ontocat/internal/informant"
	"github.com/ontocat/ontocat/internal/ontology"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// depthStore builds a store whose records carry increasing source depths
// 0, 1, 2, ..., n-1.
func depthStore(t *testing.T, n int) *Store {
	t.Helper()
	s := New(nil)
	fixedClock(s)

	records := make([]*informant.Record, 0, n)
	for i := 0; i < n; i++ {
		r := rec(t, fmt.Sprintf("rec-%02d", i))
		r.SourceDepth = i
		records = append(records, r)
	}
	if _, err := s.Append(records, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return s
}

func rowNames(rows []*Row) []string {
	var out []string
	for _, row := range rows {
		out = append(out, row.Name)
	}
	return out
}

func TestFilter_DepthExpression(t *testing.T) {
	s := depthStore(t, 4)

	rows, err := s.Filter("(@source_depth > 1)", FilterOptions{})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got := rowNames(rows); !reflect.DeepEqual(got, []string{"rec-02", "rec-03"}) {
		t.Errorf("matches = %v", got)
	}
}

func TestFilter_OrderFollowsStore(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	names := []string{"delta", "alpha", "gamma", "beta"}
	var records []*informant.Record
	for i, name := range names {
		r := rec(t, name)
		r.SourceDepth = i % 2
		records = append(records, r)
	}
	if _, err := s.Append(records, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, err := s.Filter("(@source_depth == 0)", FilterOptions{})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got := rowNames(rows); !reflect.DeepEqual(got, []string{"delta", "gamma"}) {
		t.Errorf("matches = %v, want insertion order", got)
	}
}

func TestFilter_MissingAttributeMatchesNothing(t *testing.T) {
	s := depthStore(t, 3)

	rows, err := s.Filter("(@missing == 'x')", FilterOptions{})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("matches = %v, want none", rowNames(rows))
	}

	rows, err = s.Filter("(@missing == 'x')", FilterOptions{OnMissing: true})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(rows) != s.Len() {
		t.Errorf("OnMissing=true should match every row, got %d", len(rows))
	}
}

func TestFilter_UndecidableRowExcluded(t *testing.T) {
	s := New(nil)
	fixedClock(s)

	good := rec(t, "good", informant.WithExtra("rank", 5))
	bad := rec(t, "bad", informant.WithExtra("rank", "high"))
	alsoGood := rec(t, "also-good", informant.WithExtra("rank", 9))
	if _, err := s.Append([]*informant.Record{good, bad, alsoGood}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, err := s.Filter("(@rank > 1)", FilterOptions{})
	if err != nil {
		t.Fatalf("the filter continues past undecidable rows: %v", err)
	}
	if got := rowNames(rows); !reflect.DeepEqual(got, []string{"good", "also-good"}) {
		t.Errorf("matches = %v", got)
	}
}

func TestFilter_ParseErrorSurfaces(t *testing.T) {
	s := depthStore(t, 2)

	if _, err := s.Filter("(@a ==", FilterOptions{}); err == nil {
		t.Error("malformed expression must error")
	}
}

func TestFilter_RegistryFieldPresence(t *testing.T) {
	reg := ontology.NewTypeRegistry("Informant")
	if err := reg.Register(&ontology.Type{Name: "File", Fields: []string{"file_type"}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	s := New(nil)
	fixedClock(s)
	plain, err := informant.New("File", "plain")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	csv, err := informant.New("File", "csv-file", informant.WithExtra("file_type", "csv"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Append([]*informant.Record{plain, csv}, AppendOptions{}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rows, err := s.Filter("(@file_type == none)", FilterOptions{Registry: reg})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got := rowNames(rows); !reflect.DeepEqual(got, []string{"plain"}) {
		t.Errorf("matches = %v, want the record with the unset declared field", got)
	}
}

func TestFilterParallel_EqualsSequential(t *testing.T) {
	s := depthStore(t, 25)
	expr := "(@source_depth > 4) & !(@source_depth == 11)"

	want, err := s.Filter(expr, FilterOptions{})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	for _, chunks := range []int{1, 2, 3, 5, 7, 24, 25, 40} {
		got, err := s.FilterParallel(context.Background(), expr, FilterOptions{Workers: 4, Chunks: chunks})
		if err != nil {
			t.Fatalf("FilterParallel(chunks=%d) failed: %v", chunks, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("chunks=%d: parallel result %v, sequential %v", chunks, rowNames(got), rowNames(want))
		}
	}
}

func TestFilterParallel_EmptyStore(t *testing.T) {
	s := New(nil)

	rows, err := s.FilterParallel(context.Background(), "(@source_depth > 1)", FilterOptions{})
	if err != nil {
		t.Fatalf("FilterParallel failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %v", rowNames(rows))
	}
}

func TestFilterParallel_CancelledContext(t *testing.T) {
	s := depthStore(t, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.FilterParallel(ctx, "(@source_depth > 1)", FilterOptions{Chunks: 8}); err == nil {
		t.Error("a cancelled context should fail the filter")
	}
}

func TestPartition(t *testing.T) {
	rows := make([]*Row, 10)
	for i := range rows {
		rows[i] = &Row{Name: fmt.Sprintf("r%d", i)}
	}

	cases := []struct {
		n     int
		sizes []int
	}{
		{1, []int{10}},
		{3, []int{4, 3, 3}},
		{5, []int{2, 2, 2, 2, 2}},
		{10, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{15, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tc := range cases {
		parts := partition(rows, tc.n)
		var sizes []int
		total := 0
		for _, p := range parts {
			sizes = append(sizes, len(p))
			total += len(p)
		}
		if !reflect.DeepEqual(sizes, tc.sizes) {
			t.Errorf("partition(10, %d) sizes = %v, want %v", tc.n, sizes, tc.sizes)
		}
		if total != len(rows) {
			t.Errorf("partition(10, %d) loses rows: %d", tc.n, total)
		}
	}

	if parts := partition(nil, 4); parts != nil {
		t.Errorf("partition(empty) = %v", parts)
	}
}
