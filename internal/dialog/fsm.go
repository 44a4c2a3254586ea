// Package dialog drives the per-user check-in interview: a finite-state
// machine collecting an emotion label plus optional intensity, body
// sensation, reason and note, committed as one diary entry.
package dialog

import (
	"errors"
	"strconv"
	"strings"
)

// State is the interview position for one user.
type State int

const (
	StateIdle State = iota
	StateFreeInput
	StateCategory
	StateEmotion
	StateIntensity
	StateBody
	StateReason
	StateNote
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFreeInput:
		return "free_input"
	case StateCategory:
		return "category"
	case StateEmotion:
		return "emotion"
	case StateIntensity:
		return "intensity"
	case StateBody:
		return "body"
	case StateReason:
		return "reason"
	case StateNote:
		return "note"
	default:
		return "unknown"
	}
}

// ActionKind is the single internal action enum every inbound event is
// reduced to, whether it arrived as a typed message or a button press.
type ActionKind int

const (
	ActionText ActionKind = iota
	ActionShowIdeas
	ActionBackToInput
	ActionPickCategory
	ActionOtherEmotion
	ActionPickEmotion
	ActionPickIntensity
	ActionSkipIntensity
	ActionPickBody
	ActionCustomBody
	ActionSkipBody
	ActionSkipReason
	ActionAddNote
	ActionFinish
)

// Action carries the kind plus its payload: Index for Pick* kinds,
// Text for free-text input.
type Action struct {
	Kind  ActionKind
	Index int
	Text  string
}

// Callback tokens carried in button payloads. The telegram adapter maps
// raw callback data through ParseAction; nothing outside this package
// interprets the prefixes.
const (
	tokenShowIdeas     = "show_emotions"
	tokenBackToInput   = "back_to_input"
	tokenCategory      = "cat_"
	tokenEmotion       = "em_"
	tokenOtherEmotion  = "other_emotion"
	tokenIntensity     = "intensity_"
	tokenSkipIntensity = "skip_intensity"
	tokenBody          = "body_"
	tokenBodyCustom    = "body_custom"
	tokenSkipBody      = "skip_body"
	tokenSkipReason    = "skip_reason"
	tokenAddNote       = "add_note"
	tokenFinish        = "finish_entry"
)

// ParseAction translates a callback token into an Action. It reports
// false for tokens that do not belong to the interview at all.
func ParseAction(token string) (Action, bool) {
	switch token {
	case tokenShowIdeas:
		return Action{Kind: ActionShowIdeas}, true
	case tokenBackToInput:
		return Action{Kind: ActionBackToInput}, true
	case tokenOtherEmotion:
		return Action{Kind: ActionOtherEmotion}, true
	case tokenSkipIntensity:
		return Action{Kind: ActionSkipIntensity}, true
	case tokenBodyCustom:
		return Action{Kind: ActionCustomBody}, true
	case tokenSkipBody:
		return Action{Kind: ActionSkipBody}, true
	case tokenSkipReason:
		return Action{Kind: ActionSkipReason}, true
	case tokenAddNote:
		return Action{Kind: ActionAddNote}, true
	case tokenFinish:
		return Action{Kind: ActionFinish}, true
	}
	for _, p := range []struct {
		prefix string
		kind   ActionKind
	}{
		{tokenCategory, ActionPickCategory},
		{tokenEmotion, ActionPickEmotion},
		{tokenIntensity, ActionPickIntensity},
		{tokenBody, ActionPickBody},
	} {
		if strings.HasPrefix(token, p.prefix) {
			i, err := strconv.Atoi(strings.TrimPrefix(token, p.prefix))
			if err != nil {
				return Action{}, false
			}
			return Action{Kind: p.kind, Index: i}, true
		}
	}
	return Action{}, false
}

// ErrInvalidTransition marks an action that the current state does not
// accept (stale button, forged token, draft inconsistency). The session
// is left untouched; the transport surfaces a transient notice.
var ErrInvalidTransition = errors.New("invalid conversation transition")

type handlerFunc func(e *Engine, c *call) error

// transitions is the explicit state-transition table. A missing
// (state, action) pair is an invalid transition, never a silent fallthrough.
var transitions = map[State]map[ActionKind]handlerFunc{
	StateFreeInput: {
		ActionText:      (*Engine).freeEmotion,
		ActionShowIdeas: (*Engine).showCategories,
	},
	StateCategory: {
		ActionPickCategory: (*Engine).pickCategory,
		ActionOtherEmotion: (*Engine).otherEmotion,
		ActionBackToInput:  (*Engine).backToFreeInput,
	},
	StateEmotion: {
		ActionPickEmotion:  (*Engine).pickEmotion,
		ActionOtherEmotion: (*Engine).otherEmotion,
		ActionShowIdeas:    (*Engine).showCategories,
	},
	StateIntensity: {
		// Unreachable through the interactive flow (both entry paths
		// jump straight to the body step) but kept wired for direct
		// entry via intensity_N tokens.
		ActionPickIntensity: (*Engine).pickIntensity,
		ActionSkipIntensity: (*Engine).skipIntensity,
	},
	StateBody: {
		ActionPickBody:   (*Engine).pickBody,
		ActionCustomBody: (*Engine).askCustomBody,
		ActionSkipBody:   (*Engine).skipBody,
		ActionText:       (*Engine).customBody,
	},
	StateReason: {
		ActionText:       (*Engine).setReason,
		ActionSkipReason: (*Engine).skipReason,
	},
	StateNote: {
		ActionAddNote: (*Engine).askNote,
		ActionText:    (*Engine).setNote,
		ActionFinish:  (*Engine).finishWithoutNote,
	},
}
