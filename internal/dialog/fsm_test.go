package dialog

import "testing"

// The transition table is the single source of truth for the FSM; this
// test pins down exactly which actions each state accepts, so adding or
// dropping a transition is always a deliberate, visible change.
func TestTransitionTableIsExact(t *testing.T) {
	want := map[State][]ActionKind{
		StateFreeInput: {ActionText, ActionShowIdeas},
		StateCategory:  {ActionPickCategory, ActionOtherEmotion, ActionBackToInput},
		StateEmotion:   {ActionPickEmotion, ActionOtherEmotion, ActionShowIdeas},
		StateIntensity: {ActionPickIntensity, ActionSkipIntensity},
		StateBody:      {ActionPickBody, ActionCustomBody, ActionSkipBody, ActionText},
		StateReason:    {ActionText, ActionSkipReason},
		StateNote:      {ActionAddNote, ActionText, ActionFinish},
	}

	for state, kinds := range want {
		row, ok := transitions[state]
		if !ok {
			t.Errorf("state %v missing from table", state)
			continue
		}
		if len(row) != len(kinds) {
			t.Errorf("state %v: want %d transitions, table has %d", state, len(kinds), len(row))
		}
		for _, k := range kinds {
			if row[k] == nil {
				t.Errorf("state %v: missing transition for action %d", state, k)
			}
		}
	}
	for state := range transitions {
		if _, ok := want[state]; !ok {
			t.Errorf("unexpected state %v in table", state)
		}
	}
	// Idle is deliberately absent: with no session there is nothing to
	// transition, and the engine handles that case before the table.
	if _, ok := transitions[StateIdle]; ok {
		t.Error("idle state must not appear in the transition table")
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		token string
		kind  ActionKind
		index int
		ok    bool
	}{
		{"show_emotions", ActionShowIdeas, 0, true},
		{"back_to_input", ActionBackToInput, 0, true},
		{"cat_3", ActionPickCategory, 3, true},
		{"em_0", ActionPickEmotion, 0, true},
		{"other_emotion", ActionOtherEmotion, 0, true},
		{"intensity_10", ActionPickIntensity, 10, true},
		{"skip_intensity", ActionSkipIntensity, 0, true},
		{"body_7", ActionPickBody, 7, true},
		{"body_custom", ActionCustomBody, 0, true},
		{"skip_body", ActionSkipBody, 0, true},
		{"skip_reason", ActionSkipReason, 0, true},
		{"add_note", ActionAddNote, 0, true},
		{"finish_entry", ActionFinish, 0, true},
		{"menu", 0, 0, false},  // router-level token
		{"cat_x", 0, 0, false}, // malformed index
		{"diary", 0, 0, false}, // not an interview token
		{"", 0, 0, false},
	}
	for _, c := range cases {
		a, ok := ParseAction(c.token)
		if ok != c.ok {
			t.Errorf("%q: want ok=%v, got %v", c.token, c.ok, ok)
			continue
		}
		if ok && (a.Kind != c.kind || a.Index != c.index) {
			t.Errorf("%q: want kind=%d index=%d, got kind=%d index=%d",
				c.token, c.kind, c.index, a.Kind, a.Index)
		}
	}
}
