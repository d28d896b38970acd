package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"backoffice/internal/amqp"
	"backoffice/internal/core"
	"backoffice/internal/export"
	"backoffice/internal/log"
	"backoffice/internal/report"
	"backoffice/internal/sheets"
)

// Reports is the part of the report service the worker renders from.
type Reports interface {
	Aggregate(ctx context.Context, q report.AggregateQuery) (core.Aggregate, error)
	Comparison(ctx context.Context, familyID int64) (core.Comparison, error)
	Quote(ctx context.Context, familyID int64, quantities map[string]string) (core.Quote, error)
}

// ExportWorker turns export requests into workbooks on disk and, when a
// publisher is configured, mirrors aggregates and comparisons to a
// spreadsheet.
type ExportWorker struct {
	reports   Reports
	publisher sheets.ReportPublisher
	dir       string
	logger    *log.Logger
}

// NewExportWorker creates a worker writing into dir. publisher may be nil.
func NewExportWorker(reports Reports, publisher sheets.ReportPublisher, dir string, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		reports:   reports,
		publisher: publisher,
		dir:       dir,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExportRequest processes one message. Returned errors make the
// consumer requeue the message, so only transient failures should surface;
// requests that can never succeed are logged and dropped.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	fields := log.NewFields().WithOperation(log.OpExport).WithExport(msg.ID, string(msg.Kind))
	w.logger.InfoContext(ctx, "Processing export request", fields.ToSlice()...)

	path, err := w.render(ctx, msg)
	if err != nil {
		if permanent(err) {
			w.logger.ErrorContext(ctx, "Dropping export request", fields.WithError(err).ToSlice()...)
			return nil
		}
		return fmt.Errorf("export %s %s: %w", msg.Kind, msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Export written", fields.With("path", path).ToSlice()...)
	return nil
}

func (w *ExportWorker) render(ctx context.Context, msg *amqp.ExportRequestMessage) (string, error) {
	var (
		wb  *export.Workbook
		err error
	)
	switch msg.Kind {
	case amqp.ExportAggregate:
		wb, err = w.aggregate(ctx, msg)
	case amqp.ExportComparison:
		wb, err = w.comparison(ctx, msg)
	case amqp.ExportQuote:
		var q core.Quote
		if q, err = w.reports.Quote(ctx, msg.FamilyID, msg.Quantities); err == nil {
			wb, err = export.QuoteWorkbook(q)
		}
	default:
		err = fmt.Errorf("%w: unknown kind %q", amqp.ErrInvalidMessage, msg.Kind)
	}
	if err != nil {
		return "", err
	}
	defer wb.Close()

	path := filepath.Join(w.dir, export.FileName(string(msg.Kind), msg.ID))
	if err := wb.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

func (w *ExportWorker) aggregate(ctx context.Context, msg *amqp.ExportRequestMessage) (*export.Workbook, error) {
	start, err := core.ParseDate(msg.Start)
	if err != nil {
		return nil, err
	}
	end, err := core.ParseDate(msg.End)
	if err != nil {
		return nil, err
	}
	agg, err := w.reports.Aggregate(ctx, report.AggregateQuery{Start: start, End: end, NameFilter: msg.Filter})
	if err != nil {
		return nil, err
	}
	w.publish(ctx, msg, func(p sheets.ReportPublisher) (string, error) {
		return p.PublishAggregate(ctx, agg)
	})
	return export.AggregateWorkbook(agg)
}

func (w *ExportWorker) comparison(ctx context.Context, msg *amqp.ExportRequestMessage) (*export.Workbook, error) {
	c, err := w.reports.Comparison(ctx, msg.FamilyID)
	if err != nil {
		return nil, err
	}
	w.publish(ctx, msg, func(p sheets.ReportPublisher) (string, error) {
		return p.PublishComparison(ctx, c)
	})
	return export.ComparisonWorkbook(c)
}

// publish mirrors a report to the spreadsheet. Failures are logged only;
// the workbook is the export of record.
func (w *ExportWorker) publish(ctx context.Context, msg *amqp.ExportRequestMessage, fn func(sheets.ReportPublisher) (string, error)) {
	if w.publisher == nil {
		return
	}
	fields := log.NewFields().WithOperation(log.OpPublish).WithExport(msg.ID, string(msg.Kind))
	ref, err := fn(w.publisher)
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to publish report to sheet", fields.WithError(err).ToSlice()...)
		return
	}
	w.logger.InfoContext(ctx, "Report published to sheet", fields.With("ref", ref).ToSlice()...)
}

// permanent reports whether retrying the request cannot help.
func permanent(err error) bool {
	for _, target := range []error{
		amqp.ErrInvalidMessage,
		core.ErrInvalidDate,
		core.ErrInvalidRange,
		core.ErrDuplicateDate,
		core.ErrNotFound,
		core.ErrInvalidAmount,
		core.ErrNegativeQuantity,
		core.ErrUnknownRow,
		core.ErrMissingID,
		core.ErrDuplicateRow,
		core.ErrDuplicateSupplier,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
