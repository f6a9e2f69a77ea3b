// Package export writes per-period billing reports to object storage.
package export

import (
	"context"
	"path"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/domain/period"
	"github.com/brfledger/utilitybilling/internal/logger"
)

// PeriodExporter exports a billed period and returns where the report went
type PeriodExporter interface {
	ExportPeriod(ctx context.Context, p *period.BillingPeriod) (string, error)
}

type Exporter struct {
	report   *BillingReportExporter
	uploader Uploader
	prefix   string
	logger   *logger.Logger
	now      func() time.Time
}

func NewExporter(report *BillingReportExporter, uploader Uploader, cfg *config.Configuration, log *logger.Logger) *Exporter {
	return &Exporter{
		report:   report,
		uploader: uploader,
		prefix:   cfg.Export.KeyPrefix,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (e *Exporter) ExportPeriod(ctx context.Context, p *period.BillingPeriod) (string, error) {
	data, rows, err := e.report.PrepareData(ctx, p)
	if err != nil {
		return "", err
	}

	key := path.Join(e.prefix, p.Name, "billing_report_"+e.now().Format("20060102T150405Z")+".csv")
	location, err := e.uploader.Upload(ctx, key, data)
	if err != nil {
		return "", err
	}

	e.logger.Infow("exported billing report",
		"billing_period_id", p.ID,
		"rows", rows,
		"location", location)
	return location, nil
}
