package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyWindow   = errors.New("empty window")
	ErrInvalidWindow = errors.New("invalid window")
	ErrInvalidOffset = errors.New("timezone offset out of range")
	ErrInvalidCount  = errors.New("checks per day out of range")
)

const (
	MinTZOffset = -1
	MaxTZOffset = 12

	MinChecksPerDay = 1
	MaxChecksPerDay = 8
)

// ParseHourWindow parses a reminder window like "9-22" or "09 - 21"
// into whole hours. The window must be non-empty and within a single
// day: 0 <= start < end <= 23.
func ParseHourWindow(s string) (startHour, endHour int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, ErrEmptyWindow
	}
	sep := "-"
	if strings.Contains(s, "–") {
		sep = "–"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected format H-H", ErrInvalidWindow)
	}
	startHour, err = parseHour(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	endHour, err = parseHour(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidWindow, err)
	}
	if err := ValidateWindow(startHour, endHour); err != nil {
		return 0, 0, err
	}
	return startHour, endHour, nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	return h, nil
}

// ValidateWindow rejects empty or inverted reminder windows before
// they can reach the schedule generator.
func ValidateWindow(startHour, endHour int) error {
	if startHour < 0 || startHour > 23 || endHour < 0 || endHour > 23 {
		return fmt.Errorf("%w: hours must be 0..23", ErrInvalidWindow)
	}
	if endHour <= startHour {
		return fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	return nil
}

// ValidateTZOffset bounds the whole-hour UTC offset.
func ValidateTZOffset(offset int) error {
	if offset < MinTZOffset || offset > MaxTZOffset {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	return nil
}

// ValidateChecksPerDay bounds the daily prompt count.
func ValidateChecksPerDay(n int) error {
	if n < MinChecksPerDay || n > MaxChecksPerDay {
		return fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	return nil
}

// FormatOffset renders a whole-hour offset as "UTC+3" / "UTC-1".
func FormatOffset(offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("UTC+%d", offset)
	}
	return fmt.Sprintf("UTC%d", offset)
}

// FormatWindow renders an hour window as "9:00-22:00".
func FormatWindow(startHour, endHour int) string {
	return fmt.Sprintf("%d:00-%d:00", startHour, endHour)
}
