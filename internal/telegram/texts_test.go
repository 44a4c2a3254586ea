package telegram

import (
	"strconv"
	"strings"
	"testing"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

func TestTimezoneButtonsCoverAllOffsets(t *testing.T) {
	rows := timezoneButtons(tokenTZ)

	var seen []int
	for _, row := range rows {
		if len(row) > 2 {
			t.Fatalf("row too wide: %d buttons", len(row))
		}
		for _, b := range row {
			raw := strings.TrimPrefix(b.Data, tokenTZ)
			if raw == b.Data {
				t.Fatalf("button %q missing prefix %q", b.Data, tokenTZ)
			}
			o, err := strconv.Atoi(raw)
			if err != nil {
				t.Fatalf("button %q: %v", b.Data, err)
			}
			if domain.ValidateTZOffset(o) != nil {
				t.Errorf("button offers invalid offset %d", o)
			}
			seen = append(seen, o)
		}
	}
	want := domain.MaxTZOffset - domain.MinTZOffset + 1
	if len(seen) != want {
		t.Fatalf("got %d offsets, want %d", len(seen), want)
	}
}

func TestWindowPresetsParse(t *testing.T) {
	for _, row := range windowButtons() {
		for _, b := range row {
			if !strings.HasPrefix(b.Data, tokenWindow) || b.Data == tokenWindowCustom {
				continue
			}
			raw := strings.TrimPrefix(b.Data, tokenWindow)
			start, end, err := domain.ParseHourWindow(raw)
			if err != nil {
				t.Fatalf("preset %q: %v", raw, err)
			}
			if err := domain.ValidateWindow(start, end); err != nil {
				t.Errorf("preset %q invalid: %v", raw, err)
			}
		}
	}
}

func TestSettingsText(t *testing.T) {
	u := &domain.User{TZOffset: 3, CheckStartHour: 9, CheckEndHour: 22, ChecksPerDay: 4}
	got := settingsText(u)
	for _, want := range []string{"UTC+3", "9:00", "22:00", "4"} {
		if !strings.Contains(got, want) {
			t.Errorf("settings text missing %q:\n%s", want, got)
		}
	}
}
