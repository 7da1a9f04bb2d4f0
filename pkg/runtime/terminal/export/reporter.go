package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/models/store"
)

type TableConfig struct {
	OwnerWidth    int
	FileWidth     int
	DaysWidth     int
	RowsWidth     int
	ArtifactWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		OwnerWidth:    24,
		FileWidth:     20,
		DaysWidth:     7,
		RowsWidth:     8,
		ArtifactWidth: 60,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type requestRow struct {
	Owner    string
	File     string
	Days     string
	Rows     int
	Artifact string
}

type batchView struct {
	*domain.BatchReport
	Rows []requestRow
}

const batchTemplate = `
Batch against {{.Host}}{{if .Profile}} (profile {{.Profile}}){{end}}
Period: {{.StartedAt.Format "2006-01-02 15:04:05"}} to {{.FinishedAt.Format "2006-01-02 15:04:05"}}
Succeeded: {{.Succeeded}} of {{len .Requests}} requests, {{.TotalRows}} rows
{{if .Rows}}
{{separator}}
{{formatRow "Owner" "File" "Days" "Rows" "Artifact"}}
{{separator}}
{{range .Rows}}{{formatRow .Owner .File .Days .Rows .Artifact}}
{{end}}{{separator}}
{{end}}
=== Log ===
{{range .Lines}}{{.}}
{{end}}`

// HandleBatch prints a batch summary followed by its processing log.
// locations holds the stored artifact location per request.
func (c *Reporter) HandleBatch(report *domain.BatchReport, locations []string) error {
	view := batchView{BatchReport: report}
	for i, rr := range report.Requests {
		artifact := "-"
		switch {
		case i < len(locations) && locations[i] != "":
			artifact = locations[i]
		case rr.Err != nil:
			artifact = rr.Err.Error()
		case rr.Success:
			artifact = rr.ArtifactName
		}
		view.Rows = append(view.Rows, requestRow{
			Owner:    rr.Request.Name(),
			File:     rr.Request.FileName,
			Days:     fmt.Sprintf("%d/%d", rr.Totals.SuccessfulDays, rr.Totals.Days),
			Rows:     rr.Totals.Rows,
			Artifact: artifact,
		})
	}
	return c.render("batch", batchTemplate, view)
}

const runsTemplate = `{{separator}}
{{formatRow "Run" "Started" "Profile" "Rows" "Result"}}
{{separator}}
{{range .}}{{formatRow .ID (.StartedAt.Format "2006-01-02 15:04") .Profile .Rows (result .)}}
{{end}}{{separator}}
`

// HandleRuns prints ledger runs as a table.
func (c *Reporter) HandleRuns(runs []store.BatchRun) error {
	return c.render("runs", runsTemplate, runs)
}

func (c *Reporter) render(name, text string, data any) error {
	t, err := template.New(name).Funcs(c.funcs()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(owner, file, days string, rows interface{}, artifact string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*v | %-*s |",
				c.config.OwnerWidth, truncate(owner, c.config.OwnerWidth),
				c.config.FileWidth, truncate(file, c.config.FileWidth),
				c.config.DaysWidth, days,
				c.config.RowsWidth, rows,
				c.config.ArtifactWidth, truncate(artifact, c.config.ArtifactWidth))
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.OwnerWidth+2),
				strings.Repeat("-", c.config.FileWidth+2),
				strings.Repeat("-", c.config.DaysWidth+2),
				strings.Repeat("-", c.config.RowsWidth+2),
				strings.Repeat("-", c.config.ArtifactWidth+2))
		},
		"result": func(run store.BatchRun) string {
			switch {
			case run.Error != nil:
				return *run.Error
			case run.Success:
				return "ok"
			default:
				return "no data"
			}
		},
	}
}

func truncate(s string, width int) string {
	if len(s) <= width || width < 4 {
		return s
	}
	return s[:width-3] + "..."
}
