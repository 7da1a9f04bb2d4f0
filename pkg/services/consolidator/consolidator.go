package consolidator

import (
	"strings"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
)

const (
	DefaultDateColumn  = "Date"
	DefaultOwnerColumn = "Restaurant"
)

type Options struct {
	DateColumn  string `mapstructure:"date_column"`
	OwnerColumn string `mapstructure:"owner_column"`
	// IncludeOwner adds the owner provenance column after the date column.
	IncludeOwner bool `mapstructure:"include_owner"`
}

// Merge describes what one day contributed.
type Merge struct {
	Dataset domain.ConsolidatedDataset
	// Lines counts the non-blank lines of the day's file, header included.
	Lines     int
	RowsAdded int
}

// Empty reports whether the day's file had no content at all.
func (m Merge) Empty() bool { return m.Lines == 0 }

// Consolidator appends provenance-prefixed rows to a running dataset. Rows are
// opaque text: no column count or quoting validation is performed.
type Consolidator struct {
	opts Options
}

func New(opts Options) *Consolidator {
	if opts.DateColumn == "" {
		opts.DateColumn = DefaultDateColumn
	}
	if opts.OwnerColumn == "" {
		opts.OwnerColumn = DefaultOwnerColumn
	}
	return &Consolidator{opts: opts}
}

// Consolidate merges one day's raw content into ds and returns the updated
// dataset. ds is not modified. The first day with content fixes the header;
// the first line of every file is skipped as that file's header.
func (c *Consolidator) Consolidate(dayKey, ownerLabel string, raw []byte, ds domain.ConsolidatedDataset) Merge {
	lines := splitLines(raw)
	out := domain.ConsolidatedDataset{
		Header: ds.Header,
		Rows:   ds.Rows[:len(ds.Rows):len(ds.Rows)],
	}
	if len(lines) == 0 {
		return Merge{Dataset: out}
	}

	if !out.HasHeader() {
		out.Header = c.Header(lines[0])
	}

	p := c.prefix(quote(domain.ISODate(dayKey)), quote(ownerLabel))
	added := 0
	for _, row := range lines[1:] {
		out.Rows = append(out.Rows, p+row)
		added++
	}
	return Merge{Dataset: out, Lines: len(lines), RowsAdded: added}
}

// Header returns the provenance-prefixed form of a raw header line.
func (c *Consolidator) Header(raw string) string {
	return c.prefix(quote(c.opts.DateColumn), quote(c.opts.OwnerColumn)) + raw
}

func (c *Consolidator) prefix(date, owner string) string {
	if c.opts.IncludeOwner {
		return date + "," + owner + ","
	}
	return date + ","
}

func splitLines(raw []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
