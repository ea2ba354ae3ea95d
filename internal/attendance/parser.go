package attendance

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/vijay-2155/VignanEcap/internal/errors"
)

// Portal markup anchors. The export carries a spreadsheet extension but is
// plain HTML table markup; these selectors are the portal's rendering
// convention and the only wire contract we have with it.
const (
	identityCellSelector = "td.reportData2"
	headerRowSelector    = "tr.reportHeading2WithBackground"
	subjectRowSelector   = "tr[title]"
	detailCellSelector   = "td.cellBorder"
)

// Parse reads the exported register at path and extracts the attendance
// model, using the current date for today-status classification.
func Parse(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewMalformedReportError("failed to open attendance report", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, apperrors.NewMalformedReportError("failed to parse attendance report markup", err)
	}
	return extract(doc, time.Now())
}

// ParseHTML extracts the attendance model from raw markup. The reference
// date drives today-status matching; tests inject it.
func ParseHTML(markup string, today time.Time) (*Model, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, apperrors.NewMalformedReportError("failed to parse attendance report markup", err)
	}
	return extract(doc, today)
}

func extract(doc *goquery.Document, today time.Time) (*Model, error) {
	identity := doc.Find(identityCellSelector).First()
	if identity.Length() == 0 {
		return nil, apperrors.NewMalformedReportError("report identity cell not found", nil).
			WithContext("selector", identityCellSelector)
	}
	studentID := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(identity.Text()), ":", ""))

	header := doc.Find(headerRowSelector).First()
	if header.Length() == 0 {
		return nil, apperrors.NewMalformedReportError("report header row not found", nil).
			WithContext("selector", headerRowSelector)
	}

	// Locate today's DD/MM column. No match simply skips today-status
	// extraction; the register may not include the current date.
	todayLabel := today.Format("02/01")
	todayIndex := -1
	header.Find("td").EachWithBreak(func(i int, cell *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(cell.Text()), todayLabel) {
			todayIndex = i
			return false
		}
		return true
	})

	model := &Model{StudentID: studentID}

	var rowErr error
	doc.Find(subjectRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find(detailCellSelector)
		if cells.Length() < 2 {
			return true
		}

		subject := strings.TrimSpace(cells.Eq(1).Text())
		fraction := strings.TrimSpace(cells.Eq(cells.Length() - 2).Text())
		percentage := strings.TrimSpace(cells.Eq(cells.Length() - 1).Text())

		// No sessions held yet for this subject.
		if fraction == "0/0" {
			return true
		}

		present, total, err := parseFraction(fraction)
		if err != nil {
			rowErr = apperrors.NewMalformedReportError("invalid attendance fraction", err).
				WithContext("subject", subject).
				WithContext("fraction", fraction)
			return false
		}

		model.TotalPresent += present
		model.TotalSessions += total

		if todayIndex >= 0 && todayIndex < cells.Length() {
			marker := strings.TrimSpace(cells.Eq(todayIndex).Text())
			switch {
			case strings.Contains(marker, "P"):
				model.TodayStatuses = append(model.TodayStatuses, DailyStatus{Subject: subject, Status: StatusPresent})
			case strings.Contains(marker, "A"):
				model.TodayStatuses = append(model.TodayStatuses, DailyStatus{Subject: subject, Status: StatusAbsent})
			}
		}

		// ".00" rows are a rendering artifact for zero-weight subjects:
		// counted in the totals, hidden from the subject-wise list.
		if percentage != ".00" {
			model.Records = append(model.Records, Record{
				Subject:    subject,
				Present:    present,
				Total:      total,
				Percentage: percentage,
			})
		}
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return model, nil
}

func parseFraction(fraction string) (present, total int, err error) {
	parts := strings.SplitN(fraction, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected present/total, got %q", fraction)
	}
	present, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	total, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if present < 0 || total < 0 || present > total {
		return 0, 0, fmt.Errorf("inconsistent attendance counts %d/%d", present, total)
	}
	return present, total, nil
}
