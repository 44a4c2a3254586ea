package domain

import "time"

// User holds per-chat diary settings. The chat ID doubles as the user
// identifier; Telegram private chats guarantee a 1:1 mapping.
type User struct {
	ID                 int64
	TZOffset           int // whole hours from UTC, roughly -1..12
	CheckStartHour     int // local hour, inclusive
	CheckEndHour       int // local hour, exclusive
	ChecksPerDay       int
	OnboardingComplete bool
	CreatedAt          time.Time // UTC
}

// Entry is a committed diary record. Immutable once written.
type Entry struct {
	ID            string
	UserID        int64
	Category      *string
	Emotion       string
	Intensity     *int // 0..10
	BodySensation *string
	Reason        *string
	Note          *string
	CreatedAt     time.Time // UTC
}

// ScheduledCheck is one pending (or consumed) prompt for a user.
// Sent only ever flips false -> true.
type ScheduledCheck struct {
	ID          string
	UserID      int64
	ScheduledAt time.Time // UTC
	Sent        bool
}

// LabelCount is a frequency pair used by the stats queries.
type LabelCount struct {
	Label string
	Count int
}

// Stats is the on-demand statistics bundle for one user.
type Stats struct {
	Total         int
	Streak        int
	TopEmotions   []LabelCount
	TopCategories []LabelCount
	AvgIntensity  *float64 // nil when no entry has an intensity
}

// WeeklySummary aggregates the trailing seven days of entries.
type WeeklySummary struct {
	Total           int
	DaysWithEntries int
	TopCategories   []LabelCount
	TopEmotions     []LabelCount
	TopReasons      []LabelCount
	PeakTimeOfDay   string // empty when no entries
	AvgIntensity    *float64
}
