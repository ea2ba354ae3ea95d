// Package attendance holds the attendance data model extracted from the
// portal's exported register, the analytics derived from it, and the report
// formatting for the Telegram front-end.
package attendance

// Status is the per-subject attendance marker for the current date.
type Status string

const (
	StatusPresent Status = "P"
	StatusAbsent  Status = "A"
)

// Record is one subject row of the attendance register. Percentage keeps
// the portal's own rendering (e.g. "90.00") untouched.
type Record struct {
	Subject    string
	Present    int
	Total      int
	Percentage string
}

// DailyStatus is a subject's unambiguous Present/Absent marker for today.
type DailyStatus struct {
	Subject string
	Status  Status
}

// Model is the normalized attendance register for one student.
//
// Records keeps portal row order and excludes rendering artifacts (rows
// whose percentage literal is exactly ".00"); those rows still contribute
// to TotalPresent/TotalSessions. Rows with a "0/0" fraction are excluded
// everywhere: no sessions have been held yet.
type Model struct {
	StudentID     string
	Records       []Record
	TodayStatuses []DailyStatus
	TotalPresent  int
	TotalSessions int
}
