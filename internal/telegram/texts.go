package telegram

import (
	"fmt"
	"strconv"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/dialog"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// Router-level callback tokens. Interview tokens live in the dialog
// package; everything here is menu, settings or ping plumbing.
const (
	tokenCheck        = "check"
	tokenDiary        = "diary"
	tokenDiaryPage    = "diary_page_"
	tokenStats        = "stats"
	tokenSettings     = "settings"
	tokenChangeTZ     = "change_tz"
	tokenChangeFreq   = "change_frequency"
	tokenChangeWindow = "change_window"
	tokenTZ           = "tz_"
	tokenOnboardTZ    = "onbtz_"
	tokenFreq         = "freq_"
	tokenWindow       = "win:"
	tokenWindowCustom = "win:custom"
	tokenDelay        = "delay_15"
	tokenSkipToday    = "skip_today"
	tokenOnboardNext  = "onboarding_continue"
)

const (
	welcomeBackText = "Welcome back! Good to see you.\n\nHow are you right now?"

	introText = "Hi! I'm your emotion diary.\n\n" +
		"Why bother? Research shows that simply naming an emotion (affect labeling) " +
		"lowers its intensity and helps you understand yourself better. Noticing and " +
		"naming what you feel is already a step toward clarity.\n\n" +
		"How it works:\n" +
		"• I'll occasionally ask how you're feeling\n" +
		"• You can answer in your own words or pick from ideas\n" +
		"• Optionally note what triggered it\n" +
		"• Once a week I'll send a gentle summary\n\n" +
		"No judgment, just observation. Only you see your entries."

	menuText = "How can I help?"

	helpText = "*Emotion diary*\n\n" +
		"*Commands:*\n" +
		"/start — begin\n" +
		"/check — record an emotion\n" +
		"/diary — your diary\n" +
		"/stats — statistics\n" +
		"/settings — settings\n\n" +
		"*How it works:*\n" +
		"I send a few gentle prompts a day. Answer in your own words or pick from " +
		"ideas. Every Sunday you get a weekly summary.\n\n" +
		"Naming an emotion already helps you notice it and soften its intensity."

	genericErrText = "Something went wrong. Please try again."
	staleAlertText = "Something went off, let's start over"
)

func menuButton() []dialog.Button {
	return []dialog.Button{{Label: "Menu", Data: dialog.TokenMenu}}
}

func mainMenuButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "How am I right now?", Data: tokenCheck}},
		{{Label: "Diary", Data: tokenDiary}, {Label: "Statistics", Data: tokenStats}},
		{{Label: "Settings", Data: tokenSettings}},
	}
}

func pingButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "Answer", Data: tokenCheck}},
		{{Label: "Remind me in 15 min", Data: tokenDelay}},
		{{Label: "Skip today", Data: tokenSkipToday}},
	}
}

// timezoneButtons lays offsets out two per row, onboarding or settings
// flavor depending on the prefix.
func timezoneButtons(prefix string) [][]dialog.Button {
	var rows [][]dialog.Button
	var row []dialog.Button
	for o := domain.MinTZOffset; o <= domain.MaxTZOffset; o++ {
		row = append(row, dialog.Button{
			Label: domain.FormatOffset(o),
			Data:  prefix + strconv.Itoa(o),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func settingsButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "Change timezone", Data: tokenChangeTZ}},
		{{Label: "Change reminder window", Data: tokenChangeWindow}},
		{{Label: "Change frequency", Data: tokenChangeFreq}},
		menuButton(),
	}
}

func frequencyButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "2 times", Data: tokenFreq + "2"}, {Label: "3 times", Data: tokenFreq + "3"}},
		{{Label: "4 times", Data: tokenFreq + "4"}, {Label: "5 times", Data: tokenFreq + "5"}},
		{{Label: "← Back", Data: tokenSettings}},
	}
}

func windowButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "8:00-22:00", Data: tokenWindow + "8-22"}, {Label: "9:00-21:00", Data: tokenWindow + "9-21"}},
		{{Label: "10:00-20:00", Data: tokenWindow + "10-20"}, {Label: "Custom...", Data: tokenWindowCustom}},
		{{Label: "← Back", Data: tokenSettings}},
	}
}

func afterSettingsButtons() [][]dialog.Button {
	return [][]dialog.Button{
		{{Label: "Settings", Data: tokenSettings}},
		menuButton(),
	}
}

func settingsText(u *domain.User) string {
	return fmt.Sprintf("*Settings*\n\nTimezone: %s\nReminders: %s\nTimes per day: %d\n",
		domain.FormatOffset(u.TZOffset),
		domain.FormatWindow(u.CheckStartHour, u.CheckEndHour),
		u.ChecksPerDay)
}

func onboardingDoneText(offset int) string {
	return fmt.Sprintf("Done! Timezone %s saved.\n\n"+
		"I'll send %d gentle reminders a day between %s. "+
		"You can change this in settings.\n\n"+
		"Want to record how you are right now?",
		domain.FormatOffset(offset), defaultChecksPerDay,
		domain.FormatWindow(defaultStartHour, defaultEndHour))
}
