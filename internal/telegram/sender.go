package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/dialog"
)

// Sender is the rate-limited outbound half of the transport. It
// implements dialog.Channel for the interview and scheduler.Notifier
// for the jobs. Telegram caps bots at roughly 30 messages per second;
// the limiter keeps digest and dispatch fan-out under that.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

func toMarkup(buttons [][]dialog.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, r)
	}
	m := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &m
}

// Send delivers a new message to the chat.
func (s *Sender) Send(ctx context.Context, userID int64, m dialog.Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, m.Text)
	if kb := toMarkup(m.Buttons); kb != nil {
		msg.ReplyMarkup = kb
	}
	_, err := s.bot.Send(msg)
	return err
}

// Edit rewrites an earlier message in place, the way button-driven
// steps of the interview advance without flooding the chat.
func (s *Sender) Edit(ctx context.Context, userID int64, messageID int, m dialog.Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if kb := toMarkup(m.Buttons); kb != nil {
		edit := tgbotapi.NewEditMessageTextAndMarkup(userID, messageID, m.Text, *kb)
		_, err := s.bot.Send(edit)
		return err
	}
	edit := tgbotapi.NewEditMessageText(userID, messageID, m.Text)
	_, err := s.bot.Send(edit)
	return err
}

// SendMarkdown delivers Markdown-formatted text (stats, digests).
func (s *Sender) SendMarkdown(ctx context.Context, userID int64, text string, buttons [][]dialog.Button) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if kb := toMarkup(buttons); kb != nil {
		msg.ReplyMarkup = kb
	}
	_, err := s.bot.Send(msg)
	return err
}

// EditMarkdown is Edit with Markdown formatting enabled.
func (s *Sender) EditMarkdown(ctx context.Context, userID int64, messageID int, text string, buttons [][]dialog.Button) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(userID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if kb := toMarkup(buttons); kb != nil {
		edit.ReplyMarkup = kb
	}
	_, err := s.bot.Send(edit)
	return err
}

// SendCheckIn delivers a scheduled prompt with its answer/delay/skip
// actions. Satisfies scheduler.Notifier.
func (s *Sender) SendCheckIn(ctx context.Context, userID int64) error {
	return s.Send(ctx, userID, dialog.Message{
		Text:    "Hi! How are you right now?",
		Buttons: pingButtons(),
	})
}

// SendDigest delivers the weekly summary. Satisfies scheduler.Notifier.
func (s *Sender) SendDigest(ctx context.Context, userID int64, text string) error {
	return s.SendMarkdown(ctx, userID, text, nil)
}
