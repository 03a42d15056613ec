package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"prodtrans/internal/domain"
	"prodtrans/internal/fields"
	"prodtrans/internal/fingerprint"
	"prodtrans/internal/infra"
)

const defaultUnitConcurrency = 4

// JobRunner abstracts the job state machine for the orchestrator.
type JobRunner interface {
	Run(ctx context.Context, req Request) (*JobResult, error)
}

var _ JobRunner = (*Runner)(nil)

// ServiceConfig carries the translation defaults applied to every record.
type ServiceConfig struct {
	// TargetLocale is the locale translated into when a request names none.
	TargetLocale string
	// Sync requests inline completion per unit; large units still downgrade.
	Sync bool
	// Provider and Routing select the upstream engine; Routing wins.
	Provider string
	Routing  string
	// UnitConcurrency bounds in-flight units per record.
	UnitConcurrency int
	// RecordTimeout bounds the wall clock per record. Zero disables it.
	RecordTimeout time.Duration
}

// Service coordinates record translation across the cache, the field
// policy, and the job runner.
type Service struct {
	cache  domain.CacheRepository
	jobs   JobRunner
	policy fields.Policy
	cfg    ServiceConfig
	logger *infra.Logger
}

// NewService constructs the orchestrator.
func NewService(cache domain.CacheRepository, jobs JobRunner, policy fields.Policy, cfg ServiceConfig, logger *infra.Logger) *Service {
	if cfg.UnitConcurrency <= 0 {
		cfg.UnitConcurrency = defaultUnitConcurrency
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{cache: cache, jobs: jobs, policy: policy, cfg: cfg, logger: logger}
}

// RecordRequest asks for one record to be translated. Fields narrows the
// policy to the named fields; empty means the full policy. Target overrides
// the configured target locale.
type RecordRequest struct {
	Record domain.Record
	Fields []string
	Target string
}

// RecordResult is the outcome of TranslateRecord. Record always holds the
// fully translated copy, whether it was computed or served from the cache.
type RecordResult struct {
	Record      domain.Record
	Entry       *domain.CacheEntry
	Fingerprint string
	CacheHit    bool
}

// Fingerprint computes the cache key of a record under the service policy,
// narrowed to the named fields when any are given.
func (s *Service) Fingerprint(record domain.Record, fieldNames []string) (string, error) {
	policy := s.policy
	if len(fieldNames) > 0 {
		policy = policy.Select(fieldNames...)
	}
	return fingerprint.Digest(policy.HashContent(record))
}

// TranslateRecord returns the translated copy of the record, serving it
// from the cache when the fingerprint matches a committed entry and
// otherwise translating every planned unit, merging the results, and
// committing the copy. The source record is never mutated. Concurrent
// calls for the same record converge on a single committed entry.
func (s *Service) TranslateRecord(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	identity, ok := req.Record.Identity()
	if !ok {
		return nil, fmt.Errorf("translate: %w", domain.ErrMissingIdentity)
	}

	policy := s.policy
	if len(req.Fields) > 0 {
		policy = policy.Select(req.Fields...)
	}
	target := req.Target
	if target == "" {
		target = s.cfg.TargetLocale
	}
	if target == "" {
		return nil, fmt.Errorf("translate: target locale is required: %w", domain.ErrInvalidTarget)
	}
	if target == policy.Source {
		return nil, fmt.Errorf("translate: target locale %q equals the source locale: %w", target, domain.ErrInvalidTarget)
	}

	if s.cfg.RecordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RecordTimeout)
		defer cancel()
	}

	fp, err := fingerprint.Digest(policy.HashContent(req.Record))
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	entry, err := s.cache.Lookup(ctx, identity, fp)
	switch {
	case err == nil:
		s.logger.Debug().
			Str("tenant", identity.Tenant).
			Str("catalog_number", identity.CatalogNumber).
			Str("fingerprint", fp).
			Msg("translate: cache hit")
		return &RecordResult{Record: entry.Translated, Entry: entry, Fingerprint: fp, CacheHit: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		// miss, translate below
	default:
		return nil, fmt.Errorf("translate: cache lookup: %w", err)
	}

	units := policy.Plan(req.Record)
	translated := req.Record.Clone()
	results := make([]string, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.UnitConcurrency)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			res, err := s.jobs.Run(gctx, Request{
				Text:     []string{unit.Text},
				From:     policy.Source,
				To:       target,
				Sync:     s.cfg.Sync,
				Provider: s.cfg.Provider,
				Routing:  s.cfg.Routing,
			})
			if err != nil {
				return fmt.Errorf("unit %s: %w", unit.Path, err)
			}
			if len(res.Results) == 0 {
				return fmt.Errorf("unit %s: empty result: %w", unit.Path, domain.ErrMalformedResponse)
			}
			results[i] = res.Results[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("translate: record %s/%s: %w", identity.Tenant, identity.CatalogNumber, err)
	}

	for i, unit := range units {
		if err := policy.Merge(translated, unit, results[i], target); err != nil {
			return nil, fmt.Errorf("translate: merge %s: %w", unit.Path, err)
		}
	}

	// A cancelled record must not be committed.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("translate: record %s/%s: %w", identity.Tenant, identity.CatalogNumber, err)
	}

	newEntry := &domain.CacheEntry{
		Tenant:         identity.Tenant,
		CatalogNumber:  identity.CatalogNumber,
		Code:           req.Record.StringField(domain.FieldCode),
		Status:         statusOrUnknown(req.Record),
		Fingerprint:    fp,
		Translated:     translated,
		SourceModified: sourceModified(req.Record),
	}
	inserted, err := s.cache.InsertIfAbsent(ctx, newEntry)
	if err != nil {
		return nil, fmt.Errorf("translate: cache insert: %w", err)
	}
	if !inserted {
		winner, err := s.cache.Lookup(ctx, identity, fp)
		if err != nil {
			return nil, fmt.Errorf("translate: reread after lost insert race: %w", err)
		}
		s.logger.Debug().
			Str("tenant", identity.Tenant).
			Str("catalog_number", identity.CatalogNumber).
			Str("fingerprint", fp).
			Msg("translate: lost insert race, serving committed entry")
		return &RecordResult{Record: winner.Translated, Entry: winner, Fingerprint: fp, CacheHit: true}, nil
	}

	s.logger.Info().
		Str("tenant", identity.Tenant).
		Str("catalog_number", identity.CatalogNumber).
		Str("fingerprint", fp).
		Int("units", len(units)).
		Msg("translate: record translated and cached")
	return &RecordResult{Record: translated, Entry: newEntry, Fingerprint: fp, CacheHit: false}, nil
}

func statusOrUnknown(record domain.Record) string {
	if status := record.StringField(domain.FieldStatus); status != "" {
		return status
	}
	return "UNKNOWN"
}

func sourceModified(record domain.Record) time.Time {
	if at, ok := record.ModifiedAt(); ok {
		return at
	}
	return time.Now().UTC()
}
