package api

import "time"

type FetchRequest struct {
	OwnerID    string `json:"owner_id"`
	OwnerLabel string `json:"owner_label,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	// Start and End are YYYY-MM-DD. Both empty means the previous week.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type BatchRequest struct {
	Requests []FetchRequest `json:"requests"`
}

type TimePeriod struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration_days"`
}

type DayOutcome struct {
	DayKey       string `json:"day"`
	Path         string `json:"path"`
	Success      bool   `json:"success"`
	ByteSize     int64  `json:"bytes"`
	ListedSize   *int64 `json:"listed_bytes,omitempty"`
	SizeMismatch bool   `json:"size_mismatch,omitempty"`
	Rows         int    `json:"rows"`
	ErrorKind    string `json:"error_kind,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

type RequestResult struct {
	OwnerID          string       `json:"owner_id"`
	OwnerLabel       string       `json:"owner_label,omitempty"`
	FileName         string       `json:"file_name"`
	Period           TimePeriod   `json:"period"`
	Success          bool         `json:"success"`
	Rows             int          `json:"rows"`
	Days             int          `json:"days"`
	SuccessfulDays   int          `json:"successful_days"`
	Bytes            int64        `json:"bytes"`
	ArtifactName     string       `json:"artifact_name,omitempty"`
	ArtifactLocation string       `json:"artifact_location,omitempty"`
	Error            string       `json:"error,omitempty"`
	Outcomes         []DayOutcome `json:"outcomes"`
}

type BatchResponse struct {
	RunID      string          `json:"run_id,omitempty"`
	Host       string          `json:"host"`
	Profile    string          `json:"profile,omitempty"`
	Success    bool            `json:"success"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Requests   []RequestResult `json:"requests"`
	Log        []string        `json:"log"`
}

type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Host       string    `json:"host"`
	Profile    string    `json:"profile,omitempty"`
	Success    bool      `json:"success"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
