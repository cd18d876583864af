package match

import "github.com/crm-sirene/internal/debug"

// DefaultMaxDepth allows the single establishment -> headquarters hop of a
// well-formed registry.
const DefaultMaxDepth = 1

// Resolver derives the workforce bracket of a matched establishment,
// following the headquarters of closed secondary establishments.
type Resolver struct {
	hq       *HeadquartersIndex
	maxDepth int
}

// NewResolver creates a resolver. maxDepth < 0 is treated as 0, meaning no
// headquarters hop at all.
func NewResolver(hq *HeadquartersIndex, maxDepth int) *Resolver {
	if hq == nil {
		hq = NewHeadquartersIndex(nil)
	}
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Resolver{hq: hq, maxDepth: maxDepth}
}

// Resolve returns the workforce bracket or one of the ToDetermine and
// Closed sentinels.
func (r *Resolver) Resolve(rec *RegistryRecord) string {
	return r.ResolveDebug(false, rec)
}

// ResolveDebug is Resolve with trace output
func (r *Resolver) ResolveDebug(localDebug bool, rec *RegistryRecord) string {
	if rec == nil {
		return ToDetermine
	}
	return r.resolve(localDebug, rec, 0, map[*RegistryRecord]bool{})
}

func (r *Resolver) resolve(localDebug bool, rec *RegistryRecord, depth int, visited map[*RegistryRecord]bool) string {
	if visited[rec] {
		debug.DebugOutput(localDebug, "Headquarters cycle at %s", rec.ID)
		return ToDetermine
	}
	visited[rec] = true

	switch rec.Status {
	case StatusActive:
		if rec.Workforce == "" {
			return ToDetermine
		}
		return rec.Workforce

	case StatusClosed:
		if rec.Headquarters {
			return Closed
		}
		hq, ok := r.hq.Get(rec.ParentID)
		if !ok {
			debug.DebugOutput(localDebug, "No headquarters for %s (parent %s)", rec.ID, rec.ParentID)
			return ToDetermine
		}
		if depth >= r.maxDepth {
			debug.DebugOutput(localDebug, "Headquarters depth limit %d reached at %s", r.maxDepth, rec.ID)
			return ToDetermine
		}
		debug.DebugOutput(localDebug, "Closed %s -> headquarters %s", rec.ID, hq.ID)
		return r.resolve(localDebug, hq, depth+1, visited)
	}

	return ToDetermine
}
