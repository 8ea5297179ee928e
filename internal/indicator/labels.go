package indicator

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// labels are the fixed texts of the status display.
type labels struct {
	listening string
	speaking  string
	heard     string // formatted with the transcript
	errorText string
}

var (
	labelLanguages = []language.Tag{language.English, language.Spanish, language.French, language.German}
	labelMatcher   = language.NewMatcher(labelLanguages)

	labelsByLanguage = map[language.Tag]labels{
		language.English: {
			listening: "Voice: Listening…",
			speaking:  "Voice:",
			heard:     "You said: %s",
			errorText: "Speech recognition error",
		},
		language.Spanish: {
			listening: "Voz: Escuchando…",
			speaking:  "Voz:",
			heard:     "Dijiste: %s",
			errorText: "Error de reconocimiento de voz",
		},
		language.French: {
			listening: "Voix : écoute…",
			speaking:  "Voix :",
			heard:     "Vous avez dit : %s",
			errorText: "Erreur de reconnaissance vocale",
		},
		language.German: {
			listening: "Sprache: Hört zu…",
			speaking:  "Sprache:",
			heard:     "Sie sagten: %s",
			errorText: "Fehler bei der Spracherkennung",
		},
	}
)

// labelsFromEnv picks labels for the first locale set in LC_ALL, LC_MESSAGES or LANG.
func labelsFromEnv() labels {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			return labelsFor(raw)
		}
	}
	return labelsByLanguage[language.English]
}

// labelsFor matches a POSIX locale such as "de_DE.UTF-8". Unknown or
// unparsable locales get English.
func labelsFor(locale string) labels {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return labelsByLanguage[language.English]
	}
	_, index, confidence := labelMatcher.Match(tag)
	if confidence == language.No {
		return labelsByLanguage[language.English]
	}
	return labelsByLanguage[labelLanguages[index]]
}
