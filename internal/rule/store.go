package rule

import (
	"fmt"
	"sort"

	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/logger"
)

// Store holds the validated, enabled rule set, indexed by event kind and
// ordered by descending priority with load order breaking ties. Stores are
// built once and never modified.
type Store struct {
	byKind map[event.Kind][]*Rule
	count  int
}

// Load validates each document and builds the Store from the rules that
// pass. One malformed document never blocks the others: its reasons are
// collected into the returned Rejected slice and loading continues.
// Disabled rules are dropped here and never participate in matching.
func Load(docs []Document) (*Store, []Rejected) {
	var rejected []Rejected
	seen := make(map[string]string, len(docs))
	store := &Store{byKind: make(map[event.Kind][]*Rule)}

	var accepted []*Rule
	for i, doc := range docs {
		r, warnings, errors := compile(doc, i)
		for _, w := range warnings {
			logger.Warn("rule warning", "path", doc.Path, "warning", w)
		}
		if len(errors) > 0 {
			name, _ := doc.Fields["name"].(string)
			rejected = append(rejected, Rejected{Name: name, Path: doc.Path, Reasons: errors})
			continue
		}
		if prev, dup := seen[r.Name]; dup {
			rejected = append(rejected, Rejected{
				Name:    r.Name,
				Path:    doc.Path,
				Reasons: []string{fmt.Sprintf("duplicate rule name (first defined in %s)", prev)},
			})
			continue
		}
		seen[r.Name] = doc.Path
		if !r.Enabled {
			logger.Debug("rule disabled", "rule", r.Name)
			continue
		}
		accepted = append(accepted, r)
	}

	// Descending priority, stable on load order.
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].Priority != accepted[j].Priority {
			return accepted[i].Priority > accepted[j].Priority
		}
		return accepted[i].order < accepted[j].order
	})

	for _, r := range accepted {
		store.byKind[r.EventKind] = append(store.byKind[r.EventKind], r)
		store.count++
	}

	return store, rejected
}

// Query returns the enabled rules for an event kind, highest priority
// first. The returned slice is shared; callers must not modify it.
func (s *Store) Query(kind event.Kind) []*Rule {
	return s.byKind[kind]
}

// Len returns the number of enabled rules across all event kinds.
func (s *Store) Len() int {
	return s.count
}

// All returns every enabled rule grouped by kind order, for display.
func (s *Store) All() []*Rule {
	out := make([]*Rule, 0, s.count)
	for _, kind := range event.Kinds {
		out = append(out, s.byKind[kind]...)
	}
	return out
}
