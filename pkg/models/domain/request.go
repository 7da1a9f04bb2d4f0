package domain

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// MaxRequestDays bounds the range of a single request.
const MaxRequestDays = 92

// FetchRequest asks for one file name across a date range for one owning entity.
type FetchRequest struct {
	OwnerID    string
	OwnerLabel string
	Range      DateRange
	FileName   string
}

// Validate checks the fields the remote path is built from.
func (r FetchRequest) Validate() error {
	if r.OwnerID == "" {
		return fmt.Errorf("owner id is required")
	}
	if r.FileName == "" {
		return fmt.Errorf("file name is required")
	}
	if strings.ContainsAny(r.OwnerID, "/\\") || strings.ContainsAny(r.FileName, "/\\") {
		return fmt.Errorf("owner id and file name must not contain path separators")
	}
	if isDotSegment(r.OwnerID) || isDotSegment(r.FileName) {
		return fmt.Errorf("owner id and file name must not be . or ..")
	}
	if days := r.Range.Days(); days > MaxRequestDays {
		return fmt.Errorf("date range %s spans %d days, at most %d are allowed", r.Range, days, MaxRequestDays)
	}
	return nil
}

// DayDir is the remote directory holding one day's exports.
func (r FetchRequest) DayDir(dayKey string) string {
	return "/" + r.OwnerID + "/" + dayKey + "/"
}

// RemotePath is /{ownerId}/{dayKey}/{fileName}, never cleaned.
func (r FetchRequest) RemotePath(dayKey string) string {
	return r.DayDir(dayKey) + r.FileName
}

// Name is the label when set, otherwise the owner id.
func (r FetchRequest) Name() string {
	if r.OwnerLabel != "" {
		return r.OwnerLabel
	}
	return r.OwnerID
}

var whitespace = regexp.MustCompile(`\s+`)

// ArtifactName is the file name of the consolidated artifact, e.g.
// Tiki_Turtle_TimeEntries_2025-06-23_to_2025-06-29.csv.
func (r FetchRequest) ArtifactName() string {
	base := strings.TrimSuffix(r.FileName, path.Ext(r.FileName))
	return fmt.Sprintf("%s_%s_%s_to_%s.csv",
		whitespace.ReplaceAllString(r.Name(), "_"),
		base,
		r.Range.Start.Format(DateLayout),
		r.Range.End.Format(DateLayout))
}

func isDotSegment(s string) bool {
	return s == "." || s == ".."
}
