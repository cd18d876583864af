package reconcile

import (
	"strings"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/postal"
)

// Outcome is the evaluation of one CRM row. Kind is one of the metrics
// Outcome* values.
type Outcome struct {
	Kind            string
	Bucket          string
	BucketSize      int
	Result          match.Result
	Workforce       string
	AddressFallback bool
}

// Accepted reports whether the row is enriched
func (o Outcome) Accepted() bool {
	return o.Kind == metrics.OutcomeMatched || o.Kind == metrics.OutcomeDirect
}

// Engine holds the indices of one registry snapshot. It is read-only
// after NewEngine and safe for concurrent use.
type Engine struct {
	cfg      Config
	blocking *match.BlockingIndex
	hq       *match.HeadquartersIndex
	byID     map[string]*match.RegistryRecord
	matcher  *match.Matcher
	resolver *match.Resolver
	parser   postal.Parser
}

// NewEngine builds the blocking, headquarters and (with a direct-id
// field) establishment id indices. Nil scorer and parser disable
// nothing: defaults are used.
func NewEngine(cfg Config, registry []*match.RegistryRecord, scorer *match.Scorer, parser postal.Parser) *Engine {
	if scorer == nil {
		scorer = match.NewScorer()
	}
	if parser == nil {
		parser = postal.Default()
	}

	hq := match.NewHeadquartersIndex(registry)
	e := &Engine{
		cfg:      cfg,
		blocking: match.NewBlockingIndex(registry),
		hq:       hq,
		matcher:  match.NewMatcher(scorer, cfg.Threshold),
		resolver: match.NewResolver(hq, cfg.MaxDepth),
		parser:   parser,
	}
	if cfg.Fields.DirectID != "" {
		e.byID = make(map[string]*match.RegistryRecord, len(registry))
		for _, rec := range registry {
			if rec == nil || rec.ID == "" {
				continue
			}
			if _, ok := e.byID[rec.ID]; !ok {
				e.byID[rec.ID] = rec
			}
		}
	}
	return e
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() Config {
	return e.cfg
}

// Blocking returns the blocking index
func (e *Engine) Blocking() *match.BlockingIndex {
	return e.blocking
}

// Headquarters returns the headquarters index
func (e *Engine) Headquarters() *match.HeadquartersIndex {
	return e.hq
}

// Threshold returns the acceptance threshold
func (e *Engine) Threshold() float64 {
	return e.matcher.Threshold()
}

// InJurisdiction applies the country filter; an empty jurisdiction
// accepts everything.
func (e *Engine) InJurisdiction(country string) bool {
	if e.cfg.Jurisdiction == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(country), e.cfg.Jurisdiction)
}

// Evaluate decides the enrichment of one CRM row
func (e *Engine) Evaluate(row dataset.Row) Outcome {
	fields := e.cfg.Fields

	if !e.InJurisdiction(row[fields.Country]) {
		return Outcome{Kind: metrics.OutcomeJurisdiction}
	}

	if e.byID != nil {
		id := strings.Join(strings.Fields(row[fields.DirectID]), "")
		if target, ok := e.byID[id]; ok {
			return Outcome{
				Kind:      metrics.OutcomeDirect,
				Result:    match.Result{Record: target, Score: DirectScore},
				Workforce: e.resolver.ResolveDebug(e.cfg.Debug, target),
			}
		}
	}

	key, city, fallback, ok := e.locate(row)
	if !ok {
		return Outcome{Kind: metrics.OutcomeNoBucket, AddressFallback: fallback}
	}
	bucket := e.blocking.Lookup(key)
	if len(bucket) == 0 {
		return Outcome{Kind: metrics.OutcomeNoBucket, Bucket: key, AddressFallback: fallback}
	}

	query := match.Query{Name: row[fields.Name], City: city}
	best, accepted := e.matcher.Match(e.cfg.Debug, query, bucket)
	out := Outcome{
		Kind:            metrics.OutcomeUnmatched,
		Bucket:          key,
		BucketSize:      len(bucket),
		Result:          best,
		AddressFallback: fallback,
	}
	if accepted {
		out.Kind = metrics.OutcomeMatched
		out.Workforce = e.resolver.ResolveDebug(e.cfg.Debug, best.Record)
	}
	return out
}

// Rank returns the n best candidates of the row's bucket
func (e *Engine) Rank(row dataset.Row, n int) []match.Result {
	key, city, _, ok := e.locate(row)
	if !ok {
		return nil
	}
	query := match.Query{Name: row[e.cfg.Fields.Name], City: city}
	return e.matcher.Rank(query, e.blocking.Lookup(key), n)
}

// Resolve returns the workforce bracket of a registry record
func (e *Engine) Resolve(rec *match.RegistryRecord) string {
	return e.resolver.ResolveDebug(e.cfg.Debug, rec)
}

// locate returns the bucket key and query city of a row. An empty postal
// code falls back to the address column through the parser.
func (e *Engine) locate(row dataset.Row) (key, city string, fallback, ok bool) {
	fields := e.cfg.Fields
	postalCode := strings.TrimSpace(row[fields.PostalCode])
	city = row[fields.City]

	if postalCode == "" && fields.Address != "" && e.parser != nil {
		comp := e.parser.Parse(row[fields.Address])
		if comp.PostalCode != "" {
			postalCode = comp.PostalCode
			fallback = true
			if strings.TrimSpace(city) == "" {
				city = comp.City
			}
		}
	}

	key, ok = match.BucketKey(postalCode)
	return key, city, fallback, ok
}
