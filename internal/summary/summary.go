// Package summary derives streaks and digest text from stored entries.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// Streak counts consecutive calendar days with at least one entry,
// walking backward from today (or yesterday, so an unfinished day does
// not break the chain). Days are taken in now's location: the streak is
// a server-local notion, not a per-user one.
func Streak(entryTimes []time.Time, now time.Time) int {
	if len(entryTimes) == 0 {
		return 0
	}

	loc := now.Location()
	var days []time.Time
	seen := map[string]bool{}
	for _, ts := range entryTimes {
		d := midnight(ts.In(loc))
		key := d.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, d)
		}
	}
	// entryTimes arrive newest-first, so days is already descending.

	today := midnight(now)
	yesterday := today.AddDate(0, 0, -1)
	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		// Calendar adjacency, not a fixed 24h gap: midnights around a
		// DST transition are 23h or 25h apart.
		if days[i].AddDate(0, 0, 1).Equal(days[i-1]) {
			streak++
		} else {
			break
		}
	}
	return streak
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatStats renders the on-demand statistics message.
func FormatStats(s *domain.Stats) string {
	if s.Total == 0 {
		return "No statistics yet.\n\nRecord your first observation!"
	}

	var b strings.Builder
	b.WriteString("*Your statistics*\n\n")
	fmt.Fprintf(&b, "Entries: %d\n", s.Total)
	fmt.Fprintf(&b, "Streak: %d days\n", s.Streak)
	if s.AvgIntensity != nil {
		fmt.Fprintf(&b, "Average intensity: %.1f/10\n", *s.AvgIntensity)
	}
	if len(s.TopEmotions) > 0 {
		b.WriteString("\n*Frequent emotions:*\n")
		for i, em := range s.TopEmotions {
			fmt.Fprintf(&b, "%d. %s — %d times\n", i+1, em.Label, em.Count)
		}
	}
	if len(s.TopCategories) > 0 {
		b.WriteString("\n*Frequent categories:*\n")
		for i, c := range s.TopCategories {
			fmt.Fprintf(&b, "%d. %s — %d times\n", i+1, c.Label, c.Count)
		}
	}
	return b.String()
}

// FormatDigest renders the weekly digest message. Callers skip users
// whose weekly total is zero; an empty-week digest is never sent.
func FormatDigest(w *domain.WeeklySummary) string {
	var b strings.Builder
	b.WriteString("*Your week in emotions*\n\n")
	fmt.Fprintf(&b, "Entries: %d\n", w.Total)
	fmt.Fprintf(&b, "Days with entries: %d/7\n\n", w.DaysWithEntries)

	if len(w.TopEmotions) > 0 {
		labels := make([]string, 0, 3)
		for _, e := range w.TopEmotions {
			labels = append(labels, e.Label)
			if len(labels) == 3 {
				break
			}
		}
		fmt.Fprintf(&b, "*Most often:* %s\n", strings.Join(labels, ", "))
	}
	if len(w.TopReasons) > 0 {
		labels := make([]string, 0, 2)
		for _, r := range w.TopReasons {
			labels = append(labels, clip(r.Label, 30))
			if len(labels) == 2 {
				break
			}
		}
		fmt.Fprintf(&b, "*Frequent triggers:* %s\n", strings.Join(labels, ", "))
	}
	if w.PeakTimeOfDay != "" {
		fmt.Fprintf(&b, "*Peak time:* %s\n", w.PeakTimeOfDay)
	}
	if w.AvgIntensity != nil {
		fmt.Fprintf(&b, "*Average intensity:* %.1f/10\n", *w.AvgIntensity)
	}

	b.WriteString("\nTake care of yourself!")
	return b.String()
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
