package attendance_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
)

func sampleModel() *attendance.Model {
	return &attendance.Model{
		StudentID: "22BQ1A0542",
		Records: []attendance.Record{
			{Subject: "MATHS", Present: 18, Total: 20, Percentage: "90.00"},
			{Subject: "LONGSUBJECT", Present: 12, Total: 16, Percentage: "75.00"},
		},
		TodayStatuses: []attendance.DailyStatus{
			{Subject: "MATHS", Status: attendance.StatusPresent},
		},
		TotalPresent:  30,
		TotalSessions: 36,
	}
}

func TestBuildReportLayout(t *testing.T) {
	m := sampleModel()
	a := attendance.Compute(m.TotalPresent, m.TotalSessions)

	report := attendance.BuildReport(m, a)

	assert.Contains(t, report, "Hi 22BQ1A0542")
	assert.Contains(t, report, "Total: 30/36 (83.33%)")
	assert.Contains(t, report, "Today's Attendance:\nMATHS: P")
	assert.Contains(t, report, "You can skip 4 hours and still maintain above 75%.")
	// Short names are dot-padded to the fixed column width, long names kept.
	assert.Contains(t, report, "MATHS... 18/20   90.00%")
	assert.Contains(t, report, "LONGSUBJECT 12/16   75.00%")
}

func TestBuildReportOmitsEmptyTodaySection(t *testing.T) {
	m := sampleModel()
	m.TodayStatuses = nil

	report := attendance.BuildReport(m, attendance.Compute(m.TotalPresent, m.TotalSessions))
	assert.NotContains(t, report, "Today's Attendance:")
}

func TestBuildReportDeterministic(t *testing.T) {
	m := sampleModel()
	a := attendance.Compute(m.TotalPresent, m.TotalSessions)

	assert.Equal(t, attendance.BuildReport(m, a), attendance.BuildReport(m, a))
}

func TestEscapeMarkdownV2(t *testing.T) {
	controls := "_*[]()~`>#+-=|{}.!"

	escaped := attendance.EscapeMarkdownV2(controls)

	// Every control character must be literal-escaped, leaving no bare
	// control characters behind.
	for _, c := range controls {
		assert.Contains(t, escaped, "\\"+string(c))
	}
	stripped := strings.ReplaceAll(escaped, "\\", "")
	assert.Equal(t, controls, stripped)

	assert.Equal(t, "plain text", attendance.EscapeMarkdownV2("plain text"))
}

func TestRendererMemoizes(t *testing.T) {
	r, err := attendance.NewRenderer(4)
	require.NoError(t, err)

	m := sampleModel()
	a := attendance.Compute(m.TotalPresent, m.TotalSessions)

	first := r.Render(m, a)
	second := r.Render(m, a)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Hi 22BQ1A0542")
	assert.NotContains(t, strings.ReplaceAll(first, "\\.", ""), ".", "dots must be escaped")
}
