package profiling

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

type (
	// Analysis is the derived, read-only summary of one observation window.
	// Recomputed on demand from the captured operations; never mutated.
	Analysis struct {
		TotalQueries     int            `json:"total_queries"`
		TotalTimeMs      float64        `json:"total_time_ms"`
		SlowestQueries   []QueryPattern `json:"slowest_queries"`
		NPlusOneDetected bool           `json:"n_plus_one_detected"`
		DuplicateQueries int            `json:"duplicate_queries"`
	}

	// QueryPattern is one group of operations sharing a normalized shape.
	QueryPattern struct {
		// SQL is a preview of the first raw query in the group, truncated
		// for reporting.
		SQL string `json:"sql"`
		// TimeMs is the aggregate elapsed time of all operations in the group.
		TimeMs float64 `json:"time_ms"`
		// Count is the number of operations sharing this shape.
		Count int `json:"count"`
	}
)

// Literal-stripping patterns. Quoted strings and bare integers become
// placeholders so operations differing only in bound values normalize to one
// shape.
var (
	quotedLiteralPattern = regexp.MustCompile(`'[^']*'`)
	bareNumberPattern    = regexp.MustCompile(`\b\d+\b`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// NormalizeQuery strips literal values from a query so structurally identical
// operations group together:
//
//	NormalizeQuery("SELECT * FROM t WHERE id = 42")  → "SELECT * FROM t WHERE id = ?"
//	NormalizeQuery("SELECT * FROM t WHERE id = 7")   → "SELECT * FROM t WHERE id = ?"
func NormalizeQuery(sql string) string {
	sql = quotedLiteralPattern.ReplaceAllString(sql, "'?'")
	sql = bareNumberPattern.ReplaceAllString(sql, "?")
	sql = whitespacePattern.ReplaceAllString(sql, " ")

	return strings.TrimSpace(sql)
}

// Analyze groups the captured operations by normalized shape and classifies
// patterns likely to indicate the N+1 anti-pattern: a group occurring more
// than tuning.NPlusOneThreshold times within one window.
//
// Groups are ranked by descending occurrence count, then descending aggregate
// time, and truncated to tuning.TopQueries for reporting. Analyze is strictly
// an observability layer over the recorded operations.
func Analyze(operations []Operation, tuning *Tuning) Analysis {
	if len(operations) == 0 {
		return Analysis{SlowestQueries: []QueryPattern{}}
	}

	type group struct {
		firstSQL string
		timeMs   float64
		count    int
	}

	groups := make(map[string]*group)
	order := make([]string, 0, len(operations))

	totalTimeMs := 0.0

	for _, op := range operations {
		elapsedMs := float64(op.Duration.Microseconds()) / 1000.0
		totalTimeMs += elapsedMs

		shape := NormalizeQuery(op.SQL)

		g, exists := groups[shape]
		if !exists {
			g = &group{firstSQL: op.SQL}
			groups[shape] = g
			order = append(order, shape)
		}

		g.timeMs += elapsedMs
		g.count++
	}

	nPlusOneDetected := false
	duplicateQueries := 0
	patterns := make([]QueryPattern, 0, len(groups))

	for _, shape := range order {
		g := groups[shape]

		if g.count > tuning.NPlusOneThreshold {
			nPlusOneDetected = true
		}

		if g.count > 1 {
			duplicateQueries++
		}

		patterns = append(patterns, QueryPattern{
			SQL:    truncateQuery(g.firstSQL, tuning.QueryPreviewLength),
			TimeMs: roundMs(g.timeMs),
			Count:  g.count,
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}

		return patterns[i].TimeMs > patterns[j].TimeMs
	})

	if len(patterns) > tuning.TopQueries {
		patterns = patterns[:tuning.TopQueries]
	}

	return Analysis{
		TotalQueries:     len(operations),
		TotalTimeMs:      roundMs(totalTimeMs),
		SlowestQueries:   patterns,
		NPlusOneDetected: nPlusOneDetected,
		DuplicateQueries: duplicateQueries,
	}
}

// truncateQuery bounds a raw query preview for reporting.
func truncateQuery(sql string, maxLen int) string {
	if maxLen <= 0 || len(sql) <= maxLen {
		return sql
	}

	return sql[:maxLen] + "..."
}

// roundMs rounds a millisecond value to 2 decimal places.
func roundMs(ms float64) float64 {
	return math.Round(ms*100) / 100
}
