package attendance

// Fixed policy constants: the compliance threshold students must stay at or
// above, and the lookahead ceiling for simulated future absences.
const (
	ComplianceThreshold = 75
	SkippableCap        = 20
)

// Analytics are the aggregates derived from a parsed attendance model.
type Analytics struct {
	OverallPercentage float64
	SkippableSessions int
}

// Compute derives the overall percentage and the skippable-sessions metric
// from the integer totals. The percentage is computed once from the totals
// rather than from the portal's rounded per-subject percentages.
func Compute(totalPresent, totalSessions int) Analytics {
	var pct float64
	if totalSessions > 0 {
		pct = float64(totalPresent) / float64(totalSessions) * 100
	}
	return Analytics{
		OverallPercentage: pct,
		SkippableSessions: skippable(totalPresent, totalSessions),
	}
}

// skippable is the largest k <= SkippableCap such that counting k more
// sessions as absences keeps attendance at or above the threshold:
// present/(total+k) >= 0.75, solved directly as k <= 4*present/3 - total.
func skippable(present, total int) int {
	if total == 0 {
		return 0
	}
	k := 4*present/3 - total
	if k < 0 {
		return 0
	}
	if k > SkippableCap {
		return SkippableCap
	}
	return k
}
