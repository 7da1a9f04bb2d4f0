package config

import (
	"fmt"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
)

// ResolveRange parses start and end, or falls back to the previous Monday to
// Sunday week when both are empty.
func ResolveRange(start, end string, now time.Time) (domain.DateRange, error) {
	switch {
	case start == "" && end == "":
		return domain.PreviousWeek(now), nil
	case start == "" || end == "":
		return domain.DateRange{}, fmt.Errorf("start and end dates must be given together")
	}
	return domain.ParseDateRange(start, end)
}

// Requests builds one fetch request per owner. fileName overrides every
// owner's file; otherwise the owner's file or defaultFile is used.
func Requests(owners []Owner, r domain.DateRange, fileName, defaultFile string) []domain.FetchRequest {
	if defaultFile == "" {
		defaultFile = DefaultFileName
	}
	requests := make([]domain.FetchRequest, 0, len(owners))
	for _, o := range owners {
		file := fileName
		if file == "" {
			file = o.File
		}
		if file == "" {
			file = defaultFile
		}
		requests = append(requests, domain.FetchRequest{
			OwnerID:    o.ExportID,
			OwnerLabel: o.DisplayName(),
			Range:      r,
			FileName:   file,
		})
	}
	return requests
}
