package informant

// Resolver resolves record names encountered during reference walks. The
// collection store satisfies it.
type Resolver interface {
	Resolve(name string) (*Record, bool)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(name string) (*Record, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(name string) (*Record, bool) { return f(name) }

// sight advances a tally cell one state: absent means never sighted, false
// means sighted exactly once, true means sighted again after that.
func sight(tally map[string]bool, name string) {
	if _, ok := tally[name]; !ok {
		tally[name] = false
		return
	}
	tally[name] = true
}

// Reduce walks the reference graph depth-first from rec, tallying every
// reference sighting, and returns the subset of rec's direct references
// that were sighted exactly once. A direct reference that is reachable
// again through another reference is redundant and dropped. Each record's
// reference list is expanded at most once, so cycles terminate; dangling
// names are tallied but not descended into. The record is not modified.
func Reduce(rec *Record, res Resolver) []string {
	if rec == nil {
		return nil
	}

	tally := make(map[string]bool)
	visited := map[string]bool{rec.Name: true}

	var walk func(r *Record)
	walk = func(r *Record) {
		for _, name := range r.References {
			sight(tally, name)
			if res == nil {
				continue
			}
			child, ok := res.Resolve(name)
			if !ok || child == nil {
				continue
			}
			if visited[child.Name] {
				continue
			}
			visited[child.Name] = true
			walk(child)
		}
	}
	walk(rec)

	reduced := make([]string, 0, len(rec.References))
	for _, name := range rec.References {
		if redundant := tally[name]; !redundant {
			reduced = append(reduced, name)
		}
	}
	return reduced
}

// ApplyReduce replaces rec's reference list with its reduced form and
// returns the distinct names that were dropped, in their original order.
func ApplyReduce(rec *Record, res Resolver) []string {
	if rec == nil {
		return nil
	}

	reduced := Reduce(rec, res)
	kept := make(map[string]bool, len(reduced))
	for _, name := range reduced {
		kept[name] = true
	}

	var dropped []string
	seen := make(map[string]bool)
	for _, name := range rec.References {
		if kept[name] || seen[name] {
			continue
		}
		seen[name] = true
		dropped = append(dropped, name)
	}

	rec.References = reduced
	return dropped
}
