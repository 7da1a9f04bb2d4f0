package daterange

import (
	"github.com/de-tools/export-consolidator/pkg/models/domain"
)

// Enumerate returns one YYYYMMDD day key per calendar day from r.Start to r.End
// inclusive, ascending. A reversed range yields an empty slice.
func Enumerate(r domain.DateRange) []string {
	r = domain.NewDateRange(r.Start, r.End)
	if r.Start.After(r.End) {
		return []string{}
	}

	keys := make([]string, 0, int(r.End.Sub(r.Start).Hours()/24)+1)
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(domain.DayKeyLayout))
	}
	return keys
}
