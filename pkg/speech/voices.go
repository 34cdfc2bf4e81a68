package speech

import (
	"strings"
)

// Voice describes one synthesizer voice.
type Voice struct {
	// ID is the backend voice identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Locale is a BCP 47 tag such as "en-US" or "pt-BR".
	Locale string `json:"locale"`
}

// PickVoice selects a voice for the given locale using a deterministic
// preference order: exact locale match first, then a voice sharing the
// primary language subtag, then the first available voice. Returns nil
// when no voices are available; callers then speak with the language tag
// alone.
func PickVoice(voices []Voice, locale string) *Voice {
	if len(voices) == 0 {
		return nil
	}

	for i := range voices {
		if strings.EqualFold(voices[i].Locale, locale) {
			return &voices[i]
		}
	}

	lang := primarySubtag(locale)
	for i := range voices {
		if primarySubtag(voices[i].Locale) == lang {
			return &voices[i]
		}
	}

	return &voices[0]
}

func primarySubtag(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}
