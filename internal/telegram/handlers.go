package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/dialog"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/summary"
)

// Settings a user starts with; onboarding only asks for the timezone.
const (
	defaultStartHour    = 9
	defaultEndHour      = 22
	defaultChecksPerDay = 4
)

const diaryPageSize = 5

func isInvalidTransition(err error) bool {
	return errors.Is(err, dialog.ErrInvalidTransition)
}

// handleStart greets a returning user or begins onboarding.
func (r *Router) handleStart(ctx context.Context, chatID int64) {
	u, err := r.repo.GetUser(ctx, chatID)
	switch {
	case err == nil && u.OnboardingComplete:
		r.reply(ctx, chatID, 0, dialog.Message{Text: welcomeBackText, Buttons: mainMenuButtons()})
	case err == nil || errors.Is(err, store.ErrNotFound):
		r.reply(ctx, chatID, 0, dialog.Message{
			Text:    introText,
			Buttons: [][]dialog.Button{{{Label: "Continue", Data: tokenOnboardNext}}},
		})
	default:
		r.log.Error("get user failed", zap.Int64("user", chatID), zap.Error(err))
		r.sendText(ctx, chatID, genericErrText)
	}
}

// finishOnboarding creates the account with default settings, the
// picked timezone, and a first day of scheduled checks.
func (r *Router) finishOnboarding(ctx context.Context, chatID int64, messageID int, raw string) {
	offset, err := strconv.Atoi(raw)
	if err != nil || domain.ValidateTZOffset(offset) != nil {
		r.sendText(ctx, chatID, genericErrText)
		return
	}

	u := &domain.User{
		ID:             chatID,
		TZOffset:       offset,
		CheckStartHour: defaultStartHour,
		CheckEndHour:   defaultEndHour,
		ChecksPerDay:   defaultChecksPerDay,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.repo.CreateUser(ctx, u); err != nil {
		r.fail(ctx, chatID, "create user", err)
		return
	}
	// CreateUser is a no-op for an existing row, so pin the offset
	// the user just picked.
	if err := r.repo.UpdateTimezone(ctx, chatID, offset); err != nil {
		r.fail(ctx, chatID, "update timezone", err)
		return
	}
	if err := r.repo.CompleteOnboarding(ctx, chatID); err != nil {
		r.fail(ctx, chatID, "complete onboarding", err)
		return
	}
	if err := r.resupplier.Reschedule(ctx, u); err != nil {
		r.log.Error("reschedule failed", zap.Int64("user", chatID), zap.Error(err))
	}

	r.reply(ctx, chatID, messageID, dialog.Message{
		Text:    onboardingDoneText(offset),
		Buttons: mainMenuButtons(),
	})
}

// showDiary renders one page of entries, newest first, with the
// created-at shown in the user's local time.
func (r *Router) showDiary(ctx context.Context, chatID int64, messageID, page int) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "get user", err)
		return
	}
	total, err := r.repo.CountEntries(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "count entries", err)
		return
	}
	if total == 0 {
		r.reply(ctx, chatID, messageID, dialog.Message{
			Text:    "Your diary is empty so far.\n\nRecord your first observation!",
			Buttons: [][]dialog.Button{{{Label: "Record", Data: tokenCheck}}, menuButton()},
		})
		return
	}

	pages := (total + diaryPageSize - 1) / diaryPageSize
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	entries, err := r.repo.ListEntries(ctx, chatID, diaryPageSize, page*diaryPageSize)
	if err != nil {
		r.fail(ctx, chatID, "list entries", err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Your diary* (page %d of %d)\n\n", page+1, pages)
	for _, e := range entries {
		local := e.CreatedAt.Add(time.Duration(u.TZOffset) * time.Hour)
		fmt.Fprintf(&b, "*%s*", e.Emotion)
		if e.Intensity != nil {
			fmt.Fprintf(&b, " (%d/10)", *e.Intensity)
		}
		fmt.Fprintf(&b, " — %s\n", local.Format("02.01 15:04"))
		if e.Reason != nil && *e.Reason != "" {
			fmt.Fprintf(&b, "   _%s_\n", *e.Reason)
		}
		b.WriteString("\n")
	}

	var nav []dialog.Button
	if page > 0 {
		nav = append(nav, dialog.Button{Label: "←", Data: tokenDiaryPage + strconv.Itoa(page-1)})
	}
	if page < pages-1 {
		nav = append(nav, dialog.Button{Label: "→", Data: tokenDiaryPage + strconv.Itoa(page+1)})
	}
	buttons := [][]dialog.Button{}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}
	buttons = append(buttons, menuButton())

	r.replyMarkdown(ctx, chatID, messageID, b.String(), buttons)
}

func (r *Router) showDiaryPage(ctx context.Context, chatID int64, messageID int, raw string) {
	page, err := strconv.Atoi(raw)
	if err != nil {
		page = 0
	}
	r.showDiary(ctx, chatID, messageID, page)
}

func (r *Router) showStats(ctx context.Context, chatID int64, messageID int) {
	s, err := r.repo.EmotionStats(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "emotion stats", err)
		return
	}
	times, err := r.repo.EntryTimes(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "entry times", err)
		return
	}
	s.Streak = summary.Streak(times, time.Now())
	r.replyMarkdown(ctx, chatID, messageID, summary.FormatStats(s), [][]dialog.Button{menuButton()})
}

func (r *Router) showSettings(ctx context.Context, chatID int64, messageID int) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "get user", err)
		return
	}
	r.replyMarkdown(ctx, chatID, messageID, settingsText(u), settingsButtons())
}

func (r *Router) applyTimezone(ctx context.Context, chatID int64, messageID int, raw string) {
	offset, err := strconv.Atoi(raw)
	if err != nil || domain.ValidateTZOffset(offset) != nil {
		r.sendText(ctx, chatID, genericErrText)
		return
	}
	if err := r.repo.UpdateTimezone(ctx, chatID, offset); err != nil {
		r.fail(ctx, chatID, "update timezone", err)
		return
	}
	r.rescheduleCurrent(ctx, chatID)
	r.reply(ctx, chatID, messageID, dialog.Message{
		Text:    fmt.Sprintf("Timezone changed to %s. Reminders rescheduled.", domain.FormatOffset(offset)),
		Buttons: afterSettingsButtons(),
	})
}

func (r *Router) applyFrequency(ctx context.Context, chatID int64, messageID int, raw string) {
	n, err := strconv.Atoi(raw)
	if err != nil || domain.ValidateChecksPerDay(n) != nil {
		r.sendText(ctx, chatID, genericErrText)
		return
	}
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "get user", err)
		return
	}
	if err := r.repo.UpdateWindow(ctx, chatID, u.CheckStartHour, u.CheckEndHour, n); err != nil {
		r.fail(ctx, chatID, "update window", err)
		return
	}
	r.rescheduleCurrent(ctx, chatID)
	r.reply(ctx, chatID, messageID, dialog.Message{
		Text:    fmt.Sprintf("Done, %d reminders a day. Today's remaining prompts are redrawn.", n),
		Buttons: afterSettingsButtons(),
	})
}

func (r *Router) applyWindowPreset(ctx context.Context, chatID int64, messageID int, raw string) {
	start, end, err := domain.ParseHourWindow(raw)
	if err != nil {
		r.sendText(ctx, chatID, genericErrText)
		return
	}
	r.applyWindow(ctx, chatID, messageID, start, end)
}

// applyWindowInput handles the typed custom window after win:custom.
func (r *Router) applyWindowInput(ctx context.Context, chatID int64, text string) {
	start, end, err := domain.ParseHourWindow(text)
	if err != nil {
		r.sendText(ctx, chatID, "That doesn't look like a window. Example: 9-22")
		return
	}
	r.applyWindow(ctx, chatID, 0, start, end)
}

func (r *Router) applyWindow(ctx context.Context, chatID int64, messageID, start, end int) {
	if err := domain.ValidateWindow(start, end); err != nil {
		r.sendText(ctx, chatID, "That doesn't look like a window. Example: 9-22")
		return
	}
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "get user", err)
		return
	}
	if err := r.repo.UpdateWindow(ctx, chatID, start, end, u.ChecksPerDay); err != nil {
		r.fail(ctx, chatID, "update window", err)
		return
	}
	r.rescheduleCurrent(ctx, chatID)
	r.reply(ctx, chatID, messageID, dialog.Message{
		Text:    fmt.Sprintf("Reminder window set to %s.", domain.FormatWindow(start, end)),
		Buttons: afterSettingsButtons(),
	})
}

// rescheduleCurrent regenerates today's remaining checks from the
// user's settings as freshly stored.
func (r *Router) rescheduleCurrent(ctx context.Context, chatID int64) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.log.Error("get user failed", zap.Int64("user", chatID), zap.Error(err))
		return
	}
	if err := r.resupplier.Reschedule(ctx, u); err != nil {
		r.log.Error("reschedule failed", zap.Int64("user", chatID), zap.Error(err))
	}
}

// delayCheck pushes the nudge fifteen minutes out.
func (r *Router) delayCheck(ctx context.Context, chatID int64, messageID int) {
	if err := r.repo.AddCheck(ctx, chatID, time.Now().UTC().Add(15*time.Minute)); err != nil {
		r.fail(ctx, chatID, "add check", err)
		return
	}
	r.reply(ctx, chatID, messageID, dialog.Message{Text: "Okay, I'll check in again in 15 minutes."})
}

// skipToday consumes every remaining check of the user's local day.
func (r *Router) skipToday(ctx context.Context, chatID int64, messageID int) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.fail(ctx, chatID, "get user", err)
		return
	}
	from, to := domain.LocalDayBounds(time.Now().UTC(), u.TZOffset)
	if err := r.repo.SkipChecksBetween(ctx, chatID, from, to); err != nil {
		r.fail(ctx, chatID, "skip checks", err)
		return
	}
	r.reply(ctx, chatID, messageID, dialog.Message{
		Text:    "Got it, no more reminders today. Tomorrow as usual.",
		Buttons: [][]dialog.Button{menuButton()},
	})
}

func (r *Router) replyMarkdown(ctx context.Context, chatID int64, messageID int, text string, buttons [][]dialog.Button) {
	var err error
	if messageID != 0 {
		err = r.sender.EditMarkdown(ctx, chatID, messageID, text, buttons)
	} else {
		err = r.sender.SendMarkdown(ctx, chatID, text, buttons)
	}
	if err != nil {
		r.log.Error("reply failed", zap.Int64("user", chatID), zap.Error(err))
	}
}

func (r *Router) fail(ctx context.Context, chatID int64, op string, err error) {
	r.log.Error(op+" failed", zap.Int64("user", chatID), zap.Error(err))
	r.sendText(ctx, chatID, genericErrText)
}
