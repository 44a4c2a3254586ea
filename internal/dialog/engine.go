package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// EntryWriter is the only storage capability the engine needs.
type EntryWriter interface {
	InsertEntry(ctx context.Context, e *domain.Entry) error
}

// TokenMenu is the cancel-to-main-menu token. The engine attaches it to
// terminal keyboards; the transport handles it (clearing the session)
// because the menu itself is outside the interview.
const TokenMenu = "menu"

// Button is one labeled action offered under a message.
type Button struct {
	Label string
	Data  string
}

// Message is an outbound text payload plus optional action buttons.
type Message struct {
	Text    string
	Buttons [][]Button
}

// Channel is the abstract messaging surface the engine talks through.
type Channel interface {
	Send(ctx context.Context, userID int64, m Message) error
	Edit(ctx context.Context, userID int64, messageID int, m Message) error
}

// Event is one inbound user action, already reduced to the internal
// action enum. MessageID is the message the action originated from
// (zero for typed messages, which cannot be edited in place).
type Event struct {
	UserID    int64
	MessageID int
	Action    Action
}

// Engine runs the interview FSM. All session state lives in the
// injected store; the engine itself is stateless across events.
type Engine struct {
	sessions *SessionStore
	repo     EntryWriter
	ch       Channel
	log      *zap.Logger
	now      func() time.Time
}

func New(sessions *SessionStore, repo EntryWriter, ch Channel, log *zap.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		repo:     repo,
		ch:       ch,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Active reports whether the user has an interview in progress.
func (e *Engine) Active(userID int64) bool {
	s := e.sessions.Get(userID)
	return s != nil && s.State != StateIdle
}

// Start opens (or restarts) the interview for a user, discarding any
// in-flight draft. messageID, when non-zero, is edited in place.
func (e *Engine) Start(ctx context.Context, userID int64, messageID int) error {
	e.sessions.Put(userID, &Session{State: StateFreeInput})
	return e.reply(ctx, userID, messageID, startMessage())
}

// Cancel discards the user's session from any state. Safe to call when
// no session exists.
func (e *Engine) Cancel(userID int64) {
	e.sessions.Clear(userID)
}

// Handle routes one event through the transition table. It reports
// false when the event does not concern the interview (no active
// session and plain text), so the transport can route it elsewhere.
// ErrInvalidTransition is returned for actions the current state does
// not accept; the session is left unchanged.
func (e *Engine) Handle(ctx context.Context, ev Event) (bool, error) {
	sess := e.sessions.Get(ev.UserID)
	if sess == nil || sess.State == StateIdle {
		if ev.Action.Kind == ActionText {
			return false, nil
		}
		// Interview button pressed with no session: stale keyboard.
		return true, ErrInvalidTransition
	}

	h, ok := transitions[sess.State][ev.Action.Kind]
	if !ok {
		return true, ErrInvalidTransition
	}
	return true, h(e, &call{ctx: ctx, ev: ev, sess: sess})
}

// call bundles the per-event context handed to transition handlers.
type call struct {
	ctx  context.Context
	ev   Event
	sess *Session
}

func (e *Engine) reply(ctx context.Context, userID int64, messageID int, m Message) error {
	if messageID != 0 {
		return e.ch.Edit(ctx, userID, messageID, m)
	}
	return e.ch.Send(ctx, userID, m)
}

func (e *Engine) replyCall(c *call, m Message) error {
	return e.reply(c.ctx, c.ev.UserID, c.ev.MessageID, m)
}

// --- Transition handlers ---

func (e *Engine) freeEmotion(c *call) error {
	text := strings.TrimSpace(c.ev.Action.Text)
	if text == "" {
		return ErrInvalidTransition
	}
	// Stored verbatim; free text skips the intensity step because the
	// wording already carries the nuance a 0-10 scale would add.
	c.sess.Draft.Emotion = text
	c.sess.Draft.Category = nil
	c.sess.Draft.Intensity = nil
	c.sess.State = StateBody
	return e.replyCall(c, bodyMessage(fmt.Sprintf("%s — noted.", text)))
}

func (e *Engine) showCategories(c *call) error {
	c.sess.State = StateCategory
	return e.replyCall(c, categoriesMessage())
}

func (e *Engine) backToFreeInput(c *call) error {
	c.sess.State = StateFreeInput
	return e.replyCall(c, startMessage())
}

func (e *Engine) otherEmotion(c *call) error {
	c.sess.State = StateFreeInput
	return e.replyCall(c, Message{Text: "Describe what you feel in your own words:"})
}

func (e *Engine) pickCategory(c *call) error {
	cat, ok := domain.CategoryAt(c.ev.Action.Index)
	if !ok {
		return ErrInvalidTransition
	}
	name := cat.Name
	c.sess.Draft.Category = &name
	c.sess.State = StateEmotion
	return e.replyCall(c, emotionsMessage(cat))
}

func (e *Engine) pickEmotion(c *call) error {
	// Selecting an emotion with no category in the draft means the
	// keyboard outlived its session; surface it, change nothing.
	if c.sess.Draft.Category == nil {
		return ErrInvalidTransition
	}
	emotion, ok := domain.EmotionAt(*c.sess.Draft.Category, c.ev.Action.Index)
	if !ok {
		return ErrInvalidTransition
	}
	c.sess.Draft.Emotion = emotion
	c.sess.Draft.Intensity = nil
	c.sess.State = StateBody
	return e.replyCall(c, bodyMessage(fmt.Sprintf("%s — got it.", emotion)))
}

func (e *Engine) pickIntensity(c *call) error {
	n := c.ev.Action.Index
	if n < 0 || n > 10 {
		return ErrInvalidTransition
	}
	c.sess.Draft.Intensity = &n
	c.sess.State = StateBody
	return e.replyCall(c, bodyMessage(""))
}

func (e *Engine) skipIntensity(c *call) error {
	c.sess.Draft.Intensity = nil
	c.sess.State = StateBody
	return e.replyCall(c, bodyMessage(""))
}

func (e *Engine) pickBody(c *call) error {
	sensation, ok := domain.SensationAt(c.ev.Action.Index)
	if !ok {
		return ErrInvalidTransition
	}
	c.sess.Draft.BodySensation = &sensation
	return e.askReason(c)
}

func (e *Engine) askCustomBody(c *call) error {
	// Stays in the body state; the next typed message is the sensation.
	return e.replyCall(c, Message{Text: "Describe the body sensations in your own words:"})
}

func (e *Engine) customBody(c *call) error {
	text := strings.TrimSpace(c.ev.Action.Text)
	if text == "" {
		return ErrInvalidTransition
	}
	c.sess.Draft.BodySensation = &text
	return e.askReason(c)
}

func (e *Engine) skipBody(c *call) error {
	c.sess.Draft.BodySensation = nil
	return e.askReason(c)
}

func (e *Engine) askReason(c *call) error {
	c.sess.State = StateReason
	return e.replyCall(c, reasonMessage())
}

func (e *Engine) setReason(c *call) error {
	text := strings.TrimSpace(c.ev.Action.Text)
	if text == "" {
		return ErrInvalidTransition
	}
	c.sess.Draft.Reason = &text
	return e.askNoteOrFinish(c)
}

func (e *Engine) skipReason(c *call) error {
	c.sess.Draft.Reason = nil
	return e.askNoteOrFinish(c)
}

func (e *Engine) askNoteOrFinish(c *call) error {
	c.sess.State = StateNote
	return e.replyCall(c, notePromptMessage(c.sess.Draft))
}

func (e *Engine) askNote(c *call) error {
	return e.replyCall(c, Message{Text: "Write your note:"})
}

func (e *Engine) setNote(c *call) error {
	text := strings.TrimSpace(c.ev.Action.Text)
	if text == "" {
		return ErrInvalidTransition
	}
	c.sess.Draft.Note = &text
	return e.commit(c)
}

func (e *Engine) finishWithoutNote(c *call) error {
	c.sess.Draft.Note = nil
	return e.commit(c)
}

// commit persists the draft as an immutable entry, shows the summary
// and returns the user to idle. On a storage failure the session is
// kept so the last action can be retried.
func (e *Engine) commit(c *call) error {
	d := c.sess.Draft
	entry := &domain.Entry{
		UserID:        c.ev.UserID,
		Category:      d.Category,
		Emotion:       d.Emotion,
		Intensity:     d.Intensity,
		BodySensation: d.BodySensation,
		Reason:        d.Reason,
		Note:          d.Note,
		CreatedAt:     e.now(),
	}
	if err := e.repo.InsertEntry(c.ctx, entry); err != nil {
		e.log.Error("save entry failed", zap.Int64("user", c.ev.UserID), zap.Error(err))
		_ = e.replyCall(c, Message{
			Text:    "Could not save your entry. Please try again.",
			Buttons: [][]Button{{{Label: "Menu", Data: TokenMenu}}},
		})
		return fmt.Errorf("save entry: %w", err)
	}

	e.sessions.Clear(c.ev.UserID)
	return e.replyCall(c, summaryMessage(d))
}

// --- Messages & keyboards ---

func startMessage() Message {
	return Message{
		Text: "How are you right now?\n\n" +
			"If you like, type a word or two, or describe it your own way. " +
			"Or tap the button to see some ideas.",
		Buttons: [][]Button{{{Label: "Show emotion ideas", Data: tokenShowIdeas}}},
	}
}

func categoriesMessage() Message {
	var rows [][]Button
	var row []Button
	for i, cat := range domain.Categories {
		row = append(row, Button{
			Label: cat.Emoji + " " + cat.Name,
			Data:  tokenCategory + strconv.Itoa(i),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		[]Button{{Label: "Other...", Data: tokenOtherEmotion}},
		[]Button{{Label: "← Back", Data: tokenBackToInput}},
	)
	return Message{Text: "Pick the category that feels closest:", Buttons: rows}
}

func emotionsMessage(cat domain.Category) Message {
	var rows [][]Button
	var row []Button
	for i, em := range cat.Emotions {
		row = append(row, Button{Label: em, Data: tokenEmotion + strconv.Itoa(i)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		[]Button{{Label: "Other...", Data: tokenOtherEmotion}},
		[]Button{{Label: "← Categories", Data: tokenShowIdeas}},
	)
	return Message{
		Text:    fmt.Sprintf("%s %s\n\nPick what describes it best:", cat.Emoji, cat.Name),
		Buttons: rows,
	}
}

func bodyMessage(prefix string) Message {
	text := "Are there any body sensations you notice?\n(tension, warmth, tightness...)"
	if prefix != "" {
		text = prefix + "\n\n" + text
	}

	var rows [][]Button
	var row []Button
	for i, s := range domain.BodySensations {
		row = append(row, Button{Label: s, Data: tokenBody + strconv.Itoa(i)})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		[]Button{{Label: "Write my own", Data: tokenBodyCustom}},
		[]Button{{Label: "Skip", Data: tokenSkipBody}},
	)
	return Message{Text: text, Buttons: rows}
}

func reasonMessage() Message {
	return Message{
		Text:    "What do you think contributed to this?\n(an event, a thought, a person, a place...)",
		Buttons: [][]Button{{{Label: "Skip", Data: tokenSkipReason}}},
	}
}

func notePromptMessage(d Draft) Message {
	text := "Thank you! Just noticing and naming it is already a step toward clarity.\n\n" +
		"Recorded: " + d.Emotion
	if d.Intensity != nil {
		text += fmt.Sprintf(" (intensity: %d/10)", *d.Intensity)
	}
	text += "\n\nWant to add a note for later?"
	return Message{
		Text: text,
		Buttons: [][]Button{
			{{Label: "Add a note", Data: tokenAddNote}},
			{{Label: "Finish", Data: tokenFinish}},
		},
	}
}

// summaryMessage lists the committed fields one per line in a fixed
// order: emotion, intensity, body sensation, reason, note.
func summaryMessage(d Draft) Message {
	var b strings.Builder
	b.WriteString("Saved!\n\n")
	b.WriteString(d.Emotion)
	if d.Intensity != nil {
		fmt.Fprintf(&b, "\nIntensity: %d/10", *d.Intensity)
	}
	if d.BodySensation != nil {
		fmt.Fprintf(&b, "\nBody: %s", *d.BodySensation)
	}
	if d.Reason != nil {
		fmt.Fprintf(&b, "\nReason: %s", *d.Reason)
	}
	if d.Note != nil {
		fmt.Fprintf(&b, "\nNote: %s", *d.Note)
	}
	b.WriteString("\n\nTake care of yourself.")
	return Message{
		Text:    b.String(),
		Buttons: [][]Button{{{Label: "Menu", Data: TokenMenu}}},
	}
}
