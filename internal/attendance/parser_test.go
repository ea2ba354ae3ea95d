package attendance_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-2155/VignanEcap/internal/attendance"
	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
)

// registerMarkup mimics the portal's exported register: HTML tables behind
// a spreadsheet extension.
func registerMarkup(headerDates string, rows string) string {
	return fmt.Sprintf(`<html><body><table>
<tr><td class="reportData2"> 22BQ1A0542 : </td></tr>
<tr class="reportHeading2WithBackground">%s</tr>
%s
</table></body></html>`, headerDates, rows)
}

const defaultHeader = `<td>S.No</td><td>Subject</td><td>14/03</td><td>15/03</td><td>Total</td><td>%</td>`

func TestParseExtractsModel(t *testing.T) {
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder">P P</td><td class="cellBorder">A</td><td class="cellBorder">18/20</td><td class="cellBorder">90.00</td></tr>
<tr title="r2"><td class="cellBorder">2</td><td class="cellBorder">PHYSICS</td><td class="cellBorder">A</td><td class="cellBorder">P</td><td class="cellBorder">12/16</td><td class="cellBorder">75.00</td></tr>`

	today := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	model, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), today)
	require.NoError(t, err)

	assert.Equal(t, "22BQ1A0542", model.StudentID)
	assert.Equal(t, 30, model.TotalPresent)
	assert.Equal(t, 36, model.TotalSessions)

	require.Len(t, model.Records, 2)
	assert.Equal(t, attendance.Record{Subject: "MATHS", Present: 18, Total: 20, Percentage: "90.00"}, model.Records[0])
	assert.Equal(t, attendance.Record{Subject: "PHYSICS", Present: 12, Total: 16, Percentage: "75.00"}, model.Records[1])

	// 15/03 is the fourth header cell, so column index 3.
	require.Len(t, model.TodayStatuses, 2)
	assert.Equal(t, attendance.DailyStatus{Subject: "MATHS", Status: attendance.StatusAbsent}, model.TodayStatuses[0])
	assert.Equal(t, attendance.DailyStatus{Subject: "PHYSICS", Status: attendance.StatusPresent}, model.TodayStatuses[1])
}

func TestParseExcludesZeroSessionRows(t *testing.T) {
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder"></td><td class="cellBorder"></td><td class="cellBorder">18/20</td><td class="cellBorder">90.00</td></tr>
<tr title="r2"><td class="cellBorder">2</td><td class="cellBorder">LAB</td><td class="cellBorder"></td><td class="cellBorder"></td><td class="cellBorder">0/0</td><td class="cellBorder">.00</td></tr>`

	model, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 18, model.TotalPresent)
	assert.Equal(t, 20, model.TotalSessions)
	require.Len(t, model.Records, 1)
	assert.Equal(t, "MATHS", model.Records[0].Subject)
}

func TestParseHidesArtifactRowsButCountsThem(t *testing.T) {
	// A ".00" percentage with a non-zero fraction is a rendering artifact:
	// hidden from the subject list, still counted in the totals.
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder"></td><td class="cellBorder"></td><td class="cellBorder">18/20</td><td class="cellBorder">90.00</td></tr>
<tr title="r2"><td class="cellBorder">2</td><td class="cellBorder">SEMINAR</td><td class="cellBorder"></td><td class="cellBorder"></td><td class="cellBorder">2/4</td><td class="cellBorder">.00</td></tr>`

	model, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 20, model.TotalPresent)
	assert.Equal(t, 24, model.TotalSessions)
	require.Len(t, model.Records, 1)
	assert.Equal(t, "MATHS", model.Records[0].Subject)
}

func TestParseSkipsTodayWhenDateMissing(t *testing.T) {
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder">P</td><td class="cellBorder">P</td><td class="cellBorder">18/20</td><td class="cellBorder">90.00</td></tr>`

	// Reference date far from any header label.
	model, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, model.TodayStatuses)
}

func TestParseOmitsAmbiguousTodayMarker(t *testing.T) {
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder"></td><td class="cellBorder">-</td><td class="cellBorder">18/20</td><td class="cellBorder">90.00</td></tr>`

	today := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	model, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), today)
	require.NoError(t, err)
	assert.Empty(t, model.TodayStatuses, "blank or dash markers must be omitted")
}

func TestParseMissingIdentityCell(t *testing.T) {
	markup := `<html><body><table><tr class="reportHeading2WithBackground"><td>14/03</td></tr></table></body></html>`

	_, err := attendance.ParseHTML(markup, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonMalformedReport, apperrors.ReasonOf(err))
}

func TestParseMissingHeaderRow(t *testing.T) {
	markup := `<html><body><table><tr><td class="reportData2">22BQ1A0542:</td></tr></table></body></html>`

	_, err := attendance.ParseHTML(markup, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonMalformedReport, apperrors.ReasonOf(err))
}

func TestParseRejectsInconsistentFraction(t *testing.T) {
	rows := `
<tr title="r1"><td class="cellBorder">1</td><td class="cellBorder">MATHS</td><td class="cellBorder"></td><td class="cellBorder"></td><td class="cellBorder">25/20</td><td class="cellBorder">90.00</td></tr>`

	_, err := attendance.ParseHTML(registerMarkup(defaultHeader, rows), time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.ReasonMalformedReport, apperrors.ReasonOf(err))
}

func TestParseStripsIdentityColons(t *testing.T) {
	markup := registerMarkup(defaultHeader, "")
	model, err := attendance.ParseHTML(markup, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "22BQ1A0542", model.StudentID)
}
