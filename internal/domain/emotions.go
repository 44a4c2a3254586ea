package domain

// Category is one entry of the fixed emotion catalog shown when the
// user asks for ideas instead of typing freely.
type Category struct {
	Name     string
	Emoji    string
	Emotions []string
}

// Categories is the curated catalog, in display order. Index positions
// are stable because callback tokens carry them.
var Categories = []Category{
	{Name: "Joy", Emoji: "😊", Emotions: []string{
		"Happy", "Grateful", "Inspired", "Proud", "Excited", "Content",
	}},
	{Name: "Calm", Emoji: "😌", Emotions: []string{
		"Peaceful", "Relaxed", "Safe", "Balanced", "Accepting", "Warm",
	}},
	{Name: "Sadness", Emoji: "😢", Emotions: []string{
		"Sad", "Lonely", "Disappointed", "Hurt", "Nostalgic", "Empty",
	}},
	{Name: "Anger", Emoji: "😠", Emotions: []string{
		"Irritated", "Frustrated", "Resentful", "Furious", "Annoyed", "Bitter",
	}},
	{Name: "Fear", Emoji: "😨", Emotions: []string{
		"Scared", "Insecure", "Vulnerable", "Helpless", "Panicked", "Startled",
	}},
	{Name: "Anxiety", Emoji: "😰", Emotions: []string{
		"Worried", "Tense", "Restless", "Overwhelmed", "Nervous", "On edge",
	}},
	{Name: "Tiredness", Emoji: "😴", Emotions: []string{
		"Exhausted", "Drained", "Sleepy", "Burned out", "Apathetic", "Numb",
	}},
	{Name: "Surprise", Emoji: "😲", Emotions: []string{
		"Amazed", "Confused", "Curious", "Shocked", "Intrigued", "Puzzled",
	}},
}

// BodySensations is the quick-pick list offered on the body step.
var BodySensations = []string{
	"Tension", "Warmth",
	"Tightness in chest", "Heaviness",
	"Lightness", "Knot in stomach",
	"Racing heart", "Trembling",
}

// CategoryAt returns the catalog entry at index i, or false when the
// index is outside the catalog (stale or forged callback token).
func CategoryAt(i int) (Category, bool) {
	if i < 0 || i >= len(Categories) {
		return Category{}, false
	}
	return Categories[i], true
}

// EmotionAt resolves an emotion index within a named category.
func EmotionAt(category string, i int) (string, bool) {
	for _, c := range Categories {
		if c.Name != category {
			continue
		}
		if i < 0 || i >= len(c.Emotions) {
			return "", false
		}
		return c.Emotions[i], true
	}
	return "", false
}

// SensationAt returns the body sensation at index i.
func SensationAt(i int) (string, bool) {
	if i < 0 || i >= len(BodySensations) {
		return "", false
	}
	return BodySensations[i], true
}
