package catalog

// Emotion names a per-book emotion intensity column.
type Emotion string

const (
	Joy      Emotion = "joy"
	Surprise Emotion = "surprise"
	Anger    Emotion = "anger"
	Fear     Emotion = "fear"
	Sadness  Emotion = "sadness"
	Disgust  Emotion = "disgust"
)

// All is the selector value meaning "no filter" for categories and tones.
const All = "All"

// Emotions lists every emotion column in catalog order.
var Emotions = []Emotion{Joy, Surprise, Anger, Fear, Sadness, Disgust}

// Tones lists the user-facing tones in display order.
var Tones = []string{"Happy", "Surprising", "Angry", "Suspenseful", "Sad", "Disturbing"}

var toneEmotions = map[string]Emotion{
	"Happy":       Joy,
	"Surprising":  Surprise,
	"Angry":       Anger,
	"Suspenseful": Fear,
	"Sad":         Sadness,
	"Disturbing":  Disgust,
}

// EmotionForTone maps a tone label to its emotion column.
func EmotionForTone(tone string) (Emotion, bool) {
	e, ok := toneEmotions[tone]
	return e, ok
}
