package attendance

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// subjectColumnWidth is the minimum width subject names are padded to in
// the subject-wise section.
const subjectColumnWidth = 8

// escapeReplacer escapes every character MarkdownV2 treats as formatting
// control, so portal-derived subject names cannot corrupt rendering.
var escapeReplacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes all MarkdownV2 control characters in s.
func EscapeMarkdownV2(s string) string {
	return escapeReplacer.Replace(s)
}

// BuildReport renders the model and analytics into the plain multi-section
// report text. It is a pure function of its inputs.
func BuildReport(m *Model, a Analytics) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("Hi %s", m.StudentID))
	lines = append(lines, fmt.Sprintf("Total: %d/%d (%.2f%%)\n", m.TotalPresent, m.TotalSessions, a.OverallPercentage))

	if len(m.TodayStatuses) > 0 {
		lines = append(lines, "Today's Attendance:")
		for _, s := range m.TodayStatuses {
			lines = append(lines, fmt.Sprintf("%s: %s", s.Subject, s.Status))
		}
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("You can skip %d hours and still maintain above %d%%.\n", a.SkippableSessions, ComplianceThreshold))

	lines = append(lines, "Subject-wise Attendance:")
	for _, r := range m.Records {
		fraction := fmt.Sprintf("%d/%d", r.Present, r.Total)
		lines = append(lines, fmt.Sprintf("%s %-7s %s%%", padSubject(r.Subject), fraction, r.Percentage))
	}

	return strings.Join(lines, "\n")
}

func padSubject(subject string) string {
	if len(subject) >= subjectColumnWidth {
		return subject
	}
	return subject + strings.Repeat(".", subjectColumnWidth-len(subject))
}

// Renderer turns models into display-safe MarkdownV2 text, memoizing by
// plain report text. Formatting is deterministic, so identical reports can
// be served from the bounded cache.
type Renderer struct {
	cache *lru.Cache[string, string]
}

// NewRenderer creates a renderer with a bounded LRU cache of the given
// capacity.
func NewRenderer(capacity int) (*Renderer, error) {
	cache, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, err
	}
	return &Renderer{cache: cache}, nil
}

// Render produces the escaped report for the model and analytics.
func (r *Renderer) Render(m *Model, a Analytics) string {
	return r.RenderText(BuildReport(m, a))
}

// RenderText escapes an already-built plain report, serving repeats from
// the cache.
func (r *Renderer) RenderText(plain string) string {
	if escaped, ok := r.cache.Get(plain); ok {
		return escaped
	}
	escaped := EscapeMarkdownV2(plain)
	r.cache.Add(plain, escaped)
	return escaped
}
