package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/dialog"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/scheduler"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
)

// Pending state keys for settings flows that expect a typed reply.
const pendingWindow = "await_window_text"

// Router translates Telegram updates into engine events and menu
// actions. It owns only the thin adapter state (pending settings
// input); interview state lives in the dialog session store.
type Router struct {
	bot        *tgbotapi.BotAPI
	sender     *Sender
	log        *zap.Logger
	repo       store.Repo
	engine     *dialog.Engine
	resupplier *scheduler.Resupplier

	mu      sync.RWMutex
	pending map[int64]string
}

func NewRouter(bot *tgbotapi.BotAPI, sender *Sender, log *zap.Logger, repo store.Repo, engine *dialog.Engine, resupplier *scheduler.Resupplier) *Router {
	return &Router{
		bot:        bot,
		sender:     sender,
		log:        log,
		repo:       repo,
		engine:     engine,
		resupplier: resupplier,
		pending:    make(map[int64]string),
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pending[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, chatID)
}

// HandleUpdate routes a single update.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/check"):
			if err := r.engine.Start(ctx, chatID, 0); err != nil {
				r.log.Error("start check failed", zap.Int64("user", chatID), zap.Error(err))
			}
		case strings.HasPrefix(text, "/diary"):
			r.showDiary(ctx, chatID, 0, 0)
		case strings.HasPrefix(text, "/stats"):
			r.showStats(ctx, chatID, 0)
		case strings.HasPrefix(text, "/settings"):
			r.showSettings(ctx, chatID, 0)
		case strings.HasPrefix(text, "/help"):
			if err := r.sender.SendMarkdown(ctx, chatID, helpText, mainMenuButtons()); err != nil {
				r.log.Error("send help failed", zap.Int64("user", chatID), zap.Error(err))
			}
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

// handleFreeForm gives the interview first claim on typed text; what it
// declines falls through to pending settings input.
func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	handled, err := r.engine.Handle(ctx, dialog.Event{
		UserID: chatID,
		Action: dialog.Action{Kind: dialog.ActionText, Text: text},
	})
	if handled {
		if err != nil {
			r.log.Warn("interview text failed", zap.Int64("user", chatID), zap.Error(err))
		}
		return
	}

	switch r.getPending(chatID) {
	case pendingWindow:
		r.clearPending(chatID)
		r.applyWindowInput(ctx, chatID, text)
	default:
		// Stray text outside any flow is ignored.
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch {
	case data == tokenCheck:
		r.answerCallback(cb.ID, "")
		if err := r.engine.Start(ctx, chatID, messageID); err != nil {
			r.log.Error("start check failed", zap.Int64("user", chatID), zap.Error(err))
		}

	case data == dialog.TokenMenu:
		r.answerCallback(cb.ID, "")
		r.engine.Cancel(chatID)
		r.clearPending(chatID)
		r.reply(ctx, chatID, messageID, dialog.Message{Text: menuText, Buttons: mainMenuButtons()})

	case data == tokenOnboardNext:
		r.answerCallback(cb.ID, "")
		r.reply(ctx, chatID, messageID, dialog.Message{
			Text:    "Great! To send reminders at a convenient time, tell me your timezone:",
			Buttons: timezoneButtons(tokenOnboardTZ),
		})

	case strings.HasPrefix(data, tokenOnboardTZ):
		r.answerCallback(cb.ID, "")
		r.finishOnboarding(ctx, chatID, messageID, strings.TrimPrefix(data, tokenOnboardTZ))

	case data == tokenDiary:
		r.answerCallback(cb.ID, "")
		r.showDiary(ctx, chatID, messageID, 0)

	case strings.HasPrefix(data, tokenDiaryPage):
		r.answerCallback(cb.ID, "")
		r.showDiaryPage(ctx, chatID, messageID, strings.TrimPrefix(data, tokenDiaryPage))

	case data == tokenStats:
		r.answerCallback(cb.ID, "")
		r.showStats(ctx, chatID, messageID)

	case data == tokenSettings:
		r.answerCallback(cb.ID, "")
		r.showSettings(ctx, chatID, messageID)

	case data == tokenChangeTZ:
		r.answerCallback(cb.ID, "")
		r.reply(ctx, chatID, messageID, dialog.Message{
			Text:    "Pick your timezone:",
			Buttons: timezoneButtons(tokenTZ),
		})

	case strings.HasPrefix(data, tokenTZ):
		r.answerCallback(cb.ID, "")
		r.applyTimezone(ctx, chatID, messageID, strings.TrimPrefix(data, tokenTZ))

	case data == tokenChangeFreq:
		r.answerCallback(cb.ID, "")
		r.reply(ctx, chatID, messageID, dialog.Message{
			Text:    "How many reminders a day?",
			Buttons: frequencyButtons(),
		})

	case strings.HasPrefix(data, tokenFreq):
		r.answerCallback(cb.ID, "")
		r.applyFrequency(ctx, chatID, messageID, strings.TrimPrefix(data, tokenFreq))

	case data == tokenChangeWindow:
		r.answerCallback(cb.ID, "")
		r.reply(ctx, chatID, messageID, dialog.Message{
			Text:    "Pick a reminder window (or Custom):",
			Buttons: windowButtons(),
		})

	case data == tokenWindowCustom:
		r.answerCallback(cb.ID, "")
		r.setPending(chatID, pendingWindow)
		r.sendText(ctx, chatID, "Enter the window as H-H, e.g. 9-22")

	case strings.HasPrefix(data, tokenWindow):
		r.answerCallback(cb.ID, "")
		r.applyWindowPreset(ctx, chatID, messageID, strings.TrimPrefix(data, tokenWindow))

	case data == tokenDelay:
		r.answerCallback(cb.ID, "")
		r.delayCheck(ctx, chatID, messageID)

	case data == tokenSkipToday:
		r.answerCallback(cb.ID, "")
		r.skipToday(ctx, chatID, messageID)

	default:
		r.handleDialogCallback(ctx, cb)
	}
}

// handleDialogCallback forwards interview tokens to the engine. Invalid
// transitions surface as a transient alert over the stale keyboard.
func (r *Router) handleDialogCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, ok := dialog.ParseAction(cb.Data)
	if !ok {
		r.answerCallback(cb.ID, "")
		return
	}
	_, err := r.engine.Handle(ctx, dialog.Event{
		UserID:    cb.Message.Chat.ID,
		MessageID: cb.Message.MessageID,
		Action:    action,
	})
	switch {
	case err == nil:
		r.answerCallback(cb.ID, "")
	case isInvalidTransition(err):
		r.answerAlert(cb.ID, staleAlertText)
	default:
		r.answerCallback(cb.ID, "")
		r.log.Error("interview action failed",
			zap.Int64("user", cb.Message.Chat.ID),
			zap.String("data", cb.Data), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(id, text))
}

func (r *Router) answerAlert(id, text string) {
	_, _ = r.bot.Request(tgbotapi.NewCallbackWithAlert(id, text))
}

func (r *Router) sendText(ctx context.Context, chatID int64, text string) {
	if err := r.sender.Send(ctx, chatID, dialog.Message{Text: text}); err != nil {
		r.log.Error("send failed", zap.Int64("user", chatID), zap.Error(err))
	}
}

// reply edits messageID in place when it is known, otherwise sends new.
func (r *Router) reply(ctx context.Context, chatID int64, messageID int, m dialog.Message) {
	var err error
	if messageID != 0 {
		err = r.sender.Edit(ctx, chatID, messageID, m)
	} else {
		err = r.sender.Send(ctx, chatID, m)
	}
	if err != nil {
		r.log.Error("reply failed", zap.Int64("user", chatID), zap.Error(err))
	}
}
