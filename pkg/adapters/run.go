package adapters

import (
	"github.com/de-tools/export-consolidator/pkg/models/api"
	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/models/store"
)

// MapDomainReportToStore converts a finished batch into a ledger row.
// locations holds the artifact location per request, "" when not stored.
func MapDomainReportToStore(report *domain.BatchReport, locations []string, runErr error) *store.BatchRun {
	run := &store.BatchRun{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Host:       report.Host,
		Profile:    report.Profile,
		Success:    report.Success(),
		Rows:       report.TotalRows(),
		Error:      errString(runErr),
		Requests:   make([]store.RequestRun, 0, len(report.Requests)),
	}

	for i, rr := range report.Requests {
		req := store.RequestRun{
			Seq:              i,
			OwnerID:          rr.Request.OwnerID,
			OwnerLabel:       rr.Request.OwnerLabel,
			FileName:         rr.Request.FileName,
			StartDate:        rr.Request.Range.Start,
			EndDate:          rr.Request.Range.End,
			Success:          rr.Success,
			DayCount:         rr.Totals.Days,
			SuccessfulDays:   rr.Totals.SuccessfulDays,
			Rows:             rr.Totals.Rows,
			Bytes:            rr.Totals.Bytes,
			ArtifactName:     rr.ArtifactName,
			ArtifactLocation: optional(location(locations, i)),
			Error:            errString(rr.Err),
			Outcomes:         make([]store.DayRecord, 0, len(rr.Outcomes)),
		}
		for _, o := range rr.Outcomes {
			req.Outcomes = append(req.Outcomes, MapDomainOutcomeToStore(o))
		}
		run.Requests = append(run.Requests, req)
	}
	return run
}

func MapDomainOutcomeToStore(o domain.DayOutcome) store.DayRecord {
	day := store.DayRecord{
		DayKey:        o.DayKey,
		AttemptedPath: o.AttemptedPath,
		Success:       o.Success,
		ByteSize:      o.ByteSize,
		SizeMismatch:  o.SizeMismatch,
		RowsAdded:     o.RowsAdded,
		ErrorKind:     optional(string(o.ErrorKind)),
		Detail:        optional(o.Detail),
	}
	if o.HasListedSize {
		size := o.ListedSize
		day.ListedSize = &size
	}
	return day
}

func MapStoreRunToAPI(run store.BatchRun) api.RunSummary {
	summary := api.RunSummary{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Host:       run.Host,
		Profile:    run.Profile,
		Success:    run.Success,
		Rows:       run.Rows,
	}
	if run.Error != nil {
		summary.Error = *run.Error
	}
	return summary
}

func MapDomainReportToAPI(runID string, report *domain.BatchReport, locations []string) api.BatchResponse {
	resp := api.BatchResponse{
		RunID:      runID,
		Host:       report.Host,
		Profile:    report.Profile,
		Success:    report.Success(),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Requests:   make([]api.RequestResult, 0, len(report.Requests)),
		Log:        report.Lines(),
	}

	for i, rr := range report.Requests {
		result := api.RequestResult{
			OwnerID:          rr.Request.OwnerID,
			OwnerLabel:       rr.Request.OwnerLabel,
			FileName:         rr.Request.FileName,
			Period:           MapDomainRangeToAPI(rr.Request.Range),
			Success:          rr.Success,
			Rows:             rr.Totals.Rows,
			Days:             rr.Totals.Days,
			SuccessfulDays:   rr.Totals.SuccessfulDays,
			Bytes:            rr.Totals.Bytes,
			ArtifactName:     rr.ArtifactName,
			ArtifactLocation: location(locations, i),
			Outcomes:         make([]api.DayOutcome, 0, len(rr.Outcomes)),
		}
		if rr.Err != nil {
			result.Error = rr.Err.Error()
		}
		for _, o := range rr.Outcomes {
			day := api.DayOutcome{
				DayKey:       o.DayKey,
				Path:         o.AttemptedPath,
				Success:      o.Success,
				ByteSize:     o.ByteSize,
				SizeMismatch: o.SizeMismatch,
				Rows:         o.RowsAdded,
				ErrorKind:    string(o.ErrorKind),
				Detail:       o.Detail,
			}
			if o.HasListedSize {
				size := o.ListedSize
				day.ListedSize = &size
			}
			result.Outcomes = append(result.Outcomes, day)
		}
		resp.Requests = append(resp.Requests, result)
	}
	return resp
}

func MapDomainRangeToAPI(r domain.DateRange) api.TimePeriod {
	period := api.TimePeriod{
		Start: r.Start.Format(domain.DateLayout),
		End:   r.End.Format(domain.DateLayout),
	}
	if !r.End.Before(r.Start) {
		period.Duration = int(r.End.Sub(r.Start).Hours()/24) + 1
	}
	return period
}

func location(locations []string, i int) string {
	if i < len(locations) {
		return locations[i]
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func errString(err error) *string {
	if err == nil {
		return nil
	}
	return optional(err.Error())
}
