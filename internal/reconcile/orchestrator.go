// Package reconcile drives a reconciliation run: it enriches every CRM
// record with the registry establishment it matches, resolves the
// workforce bracket, and hands periodic snapshots to a sink so a crash
// loses at most one checkpoint window.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/debug"
	"github.com/crm-sirene/internal/logging"
	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/postal"
)

// Orchestrator runs reconciliations with a fixed configuration
type Orchestrator struct {
	cfg     Config
	scorer  *match.Scorer
	parser  postal.Parser
	metrics *metrics.Metrics
	auditor Auditor
	logger  *zerolog.Logger
}

// Option customises an Orchestrator
type Option func(*Orchestrator)

// WithScorer replaces the default scoring weights
func WithScorer(s *match.Scorer) Option {
	return func(o *Orchestrator) { o.scorer = s }
}

// WithParser sets the address parser used when a record has no postal code
func WithParser(p postal.Parser) Option {
	return func(o *Orchestrator) { o.parser = p }
}

// WithMetrics records outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAuditor reports every accepted decision to a
func WithAuditor(a Auditor) Option {
	return func(o *Orchestrator) { o.auditor = a }
}

// WithLogger sets the run logger
func WithLogger(l *zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator. The config is validated by Reconcile.
func New(cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	if o.scorer == nil {
		o.scorer = match.NewScorer()
	}
	if o.parser == nil {
		o.parser = postal.Default()
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	return o
}

// Config returns the orchestrator configuration
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Reconcile enriches crm against registry. The sink receives a snapshot
// at start, after every CheckpointInterval records and at the end; sink
// failures are logged and counted without stopping the run. A nil sink
// disables checkpointing.
func (o *Orchestrator) Reconcile(ctx context.Context, crm *dataset.Table, registry []*match.RegistryRecord, sink Sink) (*Run, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if crm == nil {
		return nil, errors.New("reconcile: nil CRM table")
	}

	localDebug := o.cfg.Debug
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	log := o.logger.With().Str("run_id", run.ID).Logger()

	done := debug.DebugTiming(localDebug, "build indices")
	engine := NewEngine(o.cfg, registry, o.scorer, o.parser)
	done()

	log.Info().
		Int("crm_records", crm.Len()).
		Int("registry_records", len(registry)).
		Int("buckets", engine.Blocking().Len()).
		Int("indexed", engine.Blocking().Size()).
		Msg("Indices built")

	run.Records = make([]*Record, crm.Len())
	for i, row := range crm.Rows {
		run.Records[i] = &Record{Index: i, Fields: row}
	}
	run.Stats.Total = len(run.Records)

	snap := &Snapshot{
		RunID:   run.ID,
		Columns: append([]string(nil), crm.Columns...),
		Output:  o.cfg.Output,
		Records: run.Records,
	}

	o.checkpoint(ctx, &log, sink, snap, run, 0, false)

	interval := o.cfg.CheckpointInterval
	total := len(run.Records)
	for start := 0; start < total; start += interval {
		end := start + interval
		if end > total {
			end = total
		}

		window := run.Records[start:end]
		outcomes, err := o.evaluateWindow(ctx, engine, window)
		if err != nil {
			return nil, fmt.Errorf("evaluating records %d-%d: %w", start, end-1, err)
		}
		for i, rec := range window {
			o.apply(ctx, &log, run, rec, outcomes[i])
		}

		if end%interval == 0 && end < total {
			o.checkpoint(ctx, &log, sink, snap, run, end, false)
		}
	}

	o.checkpoint(ctx, &log, sink, snap, run, total, true)
	run.Finished = time.Now()

	log.Info().
		Int("total", run.Stats.Total).
		Int("matched", run.Stats.Matched).
		Int("direct", run.Stats.Direct).
		Int("unmatched", run.Stats.Unmatched).
		Int("no_bucket", run.Stats.NoBucket).
		Int("skipped_jurisdiction", run.Stats.SkippedJurisdiction).
		Int("checkpoint_failures", run.Stats.CheckpointFailures).
		Dur("took", run.Duration()).
		Msg("Reconciliation complete")

	return run, nil
}

// evaluateWindow computes the outcome of every record of the window.
// With several workers each goroutine writes only its own slot.
func (o *Orchestrator) evaluateWindow(ctx context.Context, engine *Engine, window []*Record) ([]Outcome, error) {
	outcomes := make([]Outcome, len(window))

	if o.cfg.Workers <= 1 {
		for i, rec := range window {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = engine.Evaluate(rec.Fields)
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, rec := range window {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = engine.Evaluate(rec.Fields)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// apply writes an outcome onto its record and updates the run counters.
// It always runs in input order.
func (o *Orchestrator) apply(ctx context.Context, log *zerolog.Logger, run *Run, rec *Record, out Outcome) {
	o.metrics.RecordOutcome(out.Kind)
	if out.BucketSize > 0 {
		o.metrics.ObserveScan(out.BucketSize, out.Result.Score)
	}
	if out.AddressFallback {
		run.Stats.AddressFallbacks++
	}

	var method string
	switch out.Kind {
	case metrics.OutcomeJurisdiction:
		run.Stats.SkippedJurisdiction++
		return
	case metrics.OutcomeNoBucket:
		run.Stats.NoBucket++
		return
	case metrics.OutcomeUnmatched:
		run.Stats.Unmatched++
		return
	case metrics.OutcomeDirect:
		run.Stats.Direct++
		method = MethodDirect
	case metrics.OutcomeMatched:
		run.Stats.Matched++
		method = MethodFuzzy
	}

	target := out.Result.Record
	rec.LegalID = target.ID
	rec.ParentID = target.ParentID
	rec.MatchedName = target.NameNorm
	rec.Score = out.Result.Score
	rec.Workforce = out.Workforce
	rec.Method = method

	if o.auditor == nil {
		return
	}
	err := o.auditor.RecordDecision(ctx, Decision{
		RunID:     run.ID,
		Index:     rec.Index,
		LegalID:   rec.LegalID,
		ParentID:  rec.ParentID,
		Score:     rec.Score,
		Workforce: rec.Workforce,
		Method:    method,
		Breakdown: out.Result.Breakdown,
	})
	if err != nil {
		run.Stats.AuditFailures++
		log.Warn().Err(err).Int("index", rec.Index).Msg("Failed to record decision")
	}
}

func (o *Orchestrator) checkpoint(ctx context.Context, log *zerolog.Logger, sink Sink, snap *Snapshot, run *Run, processed int, final bool) {
	if sink == nil {
		return
	}

	snap.Processed = processed
	snap.Final = final
	snap.TakenAt = time.Now()

	err := sink.Write(ctx, snap)
	o.metrics.CheckpointResult(err == nil)
	if err != nil {
		run.Stats.CheckpointFailures++
		log.Error().Err(err).Int("processed", processed).Msg("Checkpoint failed")
		return
	}
	run.Stats.Checkpoints++
	log.Info().
		Int("processed", processed).
		Int("total", run.Stats.Total).
		Int("matched", run.Stats.Matched+run.Stats.Direct).
		Bool("final", final).
		Msg("Checkpoint saved")
}
