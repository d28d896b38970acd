// Package sheets publishes computed reports to a spreadsheet.
package sheets

import (
	"context"

	"backoffice/internal/core"
)

// ReportPublisher writes report snapshots somewhere people can read them.
// The returned reference locates the written block (e.g. an A1 range).
type ReportPublisher interface {
	PublishAggregate(ctx context.Context, agg core.Aggregate) (ref string, err error)
	PublishComparison(ctx context.Context, c core.Comparison) (ref string, err error)
}
