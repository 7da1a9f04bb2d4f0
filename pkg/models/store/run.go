package store

import "time"

type BatchRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Host       string
	Profile    string
	Success    bool
	Rows       int
	Error      *string
	Requests   []RequestRun
}

type RequestRun struct {
	Seq              int
	OwnerID          string
	OwnerLabel       string
	FileName         string
	StartDate        time.Time
	EndDate          time.Time
	Success          bool
	DayCount         int
	SuccessfulDays   int
	Rows             int
	Bytes            int64
	ArtifactName     string
	ArtifactLocation *string
	Error            *string
	Outcomes         []DayRecord
}

type DayRecord struct {
	DayKey        string
	AttemptedPath string
	Success       bool
	ListedSize    *int64
	ByteSize      int64
	SizeMismatch  bool
	RowsAdded     int
	ErrorKind     *string
	Detail        *string
}
