package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/cache"
	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/report"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrExportsDisabled is returned by RequestExport when no broker is
// configured.
var ErrExportsDisabled = errors.New("asynchronous exports are not configured")

// LedgerStore is the persistence collaborator holding daily records.
type LedgerStore interface {
	ListRecords(ctx context.Context, start, end core.Date) ([]core.RawRecord, error)
	UpsertRecord(ctx context.Context, rec core.RawRecord) error
	DeleteRecord(ctx context.Context, date core.Date) error
	DataVersion(ctx context.Context) (int64, error)
}

// FamilyStore is the persistence collaborator holding article families.
type FamilyStore interface {
	GetFamily(ctx context.Context, id int64) (core.RawFamily, error)
	ListFamilies(ctx context.Context) ([]core.RawFamily, error)
	SaveFamily(ctx context.Context, f core.RawFamily) (int64, error)
	DeleteFamily(ctx context.Context, id int64) error
}

// ExportPublisher hands export requests to the worker.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

type Options struct {
	CacheSize           int
	CacheTTL            time.Duration
	OverviewConcurrency int
}

// ReportService loads snapshots from storage and runs them through the
// reporting facade. Aggregates are memoized per data version; writes made
// through the service also purge the cache.
type ReportService struct {
	ledger     LedgerStore
	families   FamilyStore
	exports    ExportPublisher
	reporter   *report.Reporter
	aggregates cache.Cache[core.Aggregate]
	limit      int
	logger     *log.Logger
}

// NewReportService wires the service. exports may be nil, in which case
// RequestExport fails with ErrExportsDisabled.
func NewReportService(ledger LedgerStore, families FamilyStore, exports ExportPublisher, opts Options, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.OverviewConcurrency <= 0 {
		opts.OverviewConcurrency = 4
	}
	return &ReportService{
		ledger:     ledger,
		families:   families,
		exports:    exports,
		reporter:   report.New(logger),
		aggregates: cache.NewLRUCache[core.Aggregate](opts.CacheSize, opts.CacheTTL),
		limit:      opts.OverviewConcurrency,
		logger:     logger.WithComponent(log.ComponentService),
	}
}

func (s *ReportService) Aggregate(ctx context.Context, q report.AggregateQuery) (core.Aggregate, error) {
	if err := core.ValidateRange(q.Start, q.End); err != nil {
		return core.Aggregate{}, err
	}
	q.NameFilter = strings.TrimSpace(q.NameFilter)

	version, err := s.ledger.DataVersion(ctx)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("data version: %w", err)
	}
	key := fmt.Sprintf("%d|%s|%s|%s", version, q.Start, q.End, strings.ToLower(q.NameFilter))
	if agg, ok := s.aggregates.Get(key); ok {
		s.logger.DebugContext(ctx, "aggregate served from cache",
			log.FieldOperation, log.OpAggregate, "cache_key", key)
		return agg.Clone(), nil
	}

	records, err := s.ledger.ListRecords(ctx, q.Start, q.End)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("list records: %w", err)
	}
	agg, err := s.reporter.Aggregate(ctx, records, q)
	if err != nil {
		return core.Aggregate{}, err
	}
	s.aggregates.Set(key, agg.Clone())
	return agg, nil
}

func (s *ReportService) Series(ctx context.Context, q report.SeriesQuery) (core.Series, error) {
	if err := core.ValidateRange(q.Start, q.End); err != nil {
		return core.Series{}, err
	}
	records, err := s.ledger.ListRecords(ctx, q.Start, q.End)
	if err != nil {
		return core.Series{}, fmt.Errorf("list records: %w", err)
	}
	return s.reporter.Series(ctx, records, q)
}

func (s *ReportService) Drilldown(ctx context.Context, q report.DrilldownQuery) ([]core.LineItem, error) {
	if err := core.ValidateRange(q.Start, q.End); err != nil {
		return nil, err
	}
	records, err := s.ledger.ListRecords(ctx, q.Start, q.End)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return s.reporter.Drilldown(ctx, records, q)
}

// SaveRecord stores one daily record. The date must parse; everything else
// is normalized leniently when read.
func (s *ReportService) SaveRecord(ctx context.Context, rec core.RawRecord) (core.Date, error) {
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Date{}, err
	}
	rec.Date = date.String()
	if err := s.ledger.UpsertRecord(ctx, rec); err != nil {
		return core.Date{}, fmt.Errorf("save record %s: %w", date, err)
	}
	s.aggregates.Purge()
	s.logger.InfoContext(ctx, "ledger record saved",
		log.FieldOperation, log.OpUpsert, log.FieldRecordDate, date.String())
	return date, nil
}

func (s *ReportService) DeleteRecord(ctx context.Context, date core.Date) error {
	if err := s.ledger.DeleteRecord(ctx, date); err != nil {
		return fmt.Errorf("delete record %s: %w", date, err)
	}
	s.aggregates.Purge()
	return nil
}

// Families returns every stored family, decoded.
func (s *ReportService) Families(ctx context.Context) ([]core.Family, error) {
	raws, err := s.families.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	out := make([]core.Family, 0, len(raws))
	for _, raw := range raws {
		out = append(out, core.DecodeFamily(raw))
	}
	return out, nil
}

func (s *ReportService) Family(ctx context.Context, id int64) (core.Family, error) {
	raw, err := s.families.GetFamily(ctx, id)
	if err != nil {
		return core.Family{}, fmt.Errorf("family %d: %w", id, err)
	}
	return core.DecodeFamily(raw), nil
}

// SaveFamily validates the matrix and stores it, returning its id.
func (s *ReportService) SaveFamily(ctx context.Context, f core.Family) (int64, error) {
	if strings.TrimSpace(f.Name) == "" {
		return 0, fmt.Errorf("%w: family name", core.ErrMissingID)
	}
	if _, err := s.reporter.Comparison(ctx, f); err != nil {
		return 0, err
	}
	raw, err := core.EncodeFamily(f)
	if err != nil {
		return 0, fmt.Errorf("encode family: %w", err)
	}
	id, err := s.families.SaveFamily(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("save family %q: %w", f.Name, err)
	}
	s.logger.InfoContext(ctx, "family saved", log.NewFields().
		WithOperation(log.OpUpsert).
		WithFamily(id, f.Name).
		ToSlice()...)
	return id, nil
}

func (s *ReportService) DeleteFamily(ctx context.Context, id int64) error {
	if err := s.families.DeleteFamily(ctx, id); err != nil {
		return fmt.Errorf("delete family %d: %w", id, err)
	}
	return nil
}

func (s *ReportService) Comparison(ctx context.Context, familyID int64) (core.Comparison, error) {
	f, err := s.Family(ctx, familyID)
	if err != nil {
		return core.Comparison{}, err
	}
	return s.reporter.Comparison(ctx, f)
}

// Quote parses the caller's quantities (row id to decimal text) and builds
// the per-supplier purchase request.
func (s *ReportService) Quote(ctx context.Context, familyID int64, quantities map[string]string) (core.Quote, error) {
	parsed, err := ParseQuantities(quantities)
	if err != nil {
		return core.Quote{}, err
	}
	f, err := s.Family(ctx, familyID)
	if err != nil {
		return core.Quote{}, err
	}
	return s.reporter.Quote(ctx, f, parsed)
}

// ParseQuantities converts decimal text keyed by row id. Blank values are
// zero.
func ParseQuantities(in map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(in))
	for id, raw := range in {
		q, err := core.ParseQuantity(raw)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", id, err)
		}
		out[id] = q
	}
	return out, nil
}

// ComparisonOverview computes the comparison of every stored family. A
// family whose matrix is invalid is logged and left out.
func (s *ReportService) ComparisonOverview(ctx context.Context) ([]core.Comparison, error) {
	raws, err := s.families.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}

	results := make([]*core.Comparison, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := s.reporter.Comparison(gctx, core.DecodeFamily(raw))
			if err != nil {
				s.logger.WarnContext(gctx, "family left out of overview", log.NewFields().
					WithOperation(log.OpComparison).
					WithFamily(raw.ID, raw.Name).
					WithError(err).
					ToSlice()...)
				return nil
			}
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.Comparison, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// RequestExport validates the request and queues it for the export worker.
func (s *ReportService) RequestExport(ctx context.Context, msg *amqp.ExportRequestMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if s.exports == nil {
		return "", ErrExportsDisabled
	}
	if err := s.exports.PublishExportRequest(ctx, msg); err != nil {
		return "", fmt.Errorf("publish export request: %w", err)
	}
	s.logger.InfoContext(ctx, "export requested", log.NewFields().
		WithOperation(log.OpExport).
		WithExport(msg.ID, string(msg.Kind)).
		ToSlice()...)
	return msg.ID, nil
}

// CleanExpired drops expired aggregates and returns how many were removed.
func (s *ReportService) CleanExpired() int {
	return s.aggregates.CleanExpired()
}

// CacheStats reports the aggregate cache counters.
func (s *ReportService) CacheStats() cache.Stats {
	return s.aggregates.Stats()
}
