package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ontocat/ontocat/internal/ontology"
	"github.com/ontocat/ontocat/internal/predicate"
)

const defaultWorkers = 4

// FilterOptions configures expression filtering.
type FilterOptions struct {
	// OnMissing is the value a clause takes when its attribute is absent
	// from the record under evaluation.
	OnMissing bool
	// Registry answers field presence for declared-but-unset fields.
	Registry *ontology.TypeRegistry
	// Workers caps the goroutines of FilterParallel. Defaults to 4.
	Workers int
	// Chunks is the number of contiguous slices FilterParallel cuts the
	// store into. Defaults to the worker count.
	Chunks int
}

func (o FilterOptions) workerCount() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return defaultWorkers
}

func (o FilterOptions) chunkCount() int {
	if o.Chunks > 0 {
		return o.Chunks
	}
	return o.workerCount()
}

func (o FilterOptions) evalOptions() predicate.Options {
	return predicate.Options{OnMissing: o.OnMissing, Registry: o.Registry}
}

// Filter evaluates the expression against every row and returns the
// matches in store order. A malformed expression is an error; a row the
// expression cannot be decided for is logged and excluded.
func (s *Store) Filter(expr string, opts FilterOptions) ([]*Row, error) {
	pred, err := predicate.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return s.filterRun(s.rows, pred, opts.evalOptions()), nil
}

// filterRun evaluates one contiguous run of rows, keeping their order.
func (s *Store) filterRun(rows []*Row, pred *predicate.Predicate, opts predicate.Options) []*Row {
	var matched []*Row
	for _, row := range rows {
		ok, err := pred.Eval(row.Record, opts)
		if err != nil {
			s.log.WithRecord(row.Name).WithExpr(pred.Source).Warnw("row excluded, expression failed", "error", err)
			continue
		}
		if ok {
			matched = append(matched, row)
		}
	}
	return matched
}

// FilterParallel cuts the store into chunks and evaluates them
// concurrently. Chunk-local order is preserved and chunks reassemble in
// chunk order, so the result equals what Filter returns.
func (s *Store) FilterParallel(ctx context.Context, expr string, opts FilterOptions) ([]*Row, error) {
	pred, err := predicate.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	evalOpts := opts.evalOptions()

	chunks := partition(s.rows, opts.chunkCount())
	results := make([][]*Row, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workerCount())
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = s.filterRun(chunk, pred, evalOpts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	var out []*Row
	for _, part := range results {
		out = append(out, part...)
	}
	return out, nil
}

// partition cuts rows into at most n contiguous chunks whose lengths
// differ by one at most.
func partition(rows []*Row, n int) [][]*Row {
	if n > len(rows) {
		n = len(rows)
	}
	if n <= 0 {
		return nil
	}

	out := make([][]*Row, 0, n)
	size := len(rows) / n
	rem := len(rows) % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, rows[start:end])
		start = end
	}
	return out
}
