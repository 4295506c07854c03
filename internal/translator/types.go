package translator

import (
	"context"

	"github.com/MimeLyc/subtitle-bot/internal/subtitle"
	"github.com/MimeLyc/subtitle-bot/internal/termmap"
)

// Completer is the chat backend used for translation. *llm.Client satisfies it.
type Completer interface {
	SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error)
}

// Glossary returns the term map for a target language. *termmap.Directory
// satisfies it.
type Glossary interface {
	Lookup(targetLanguage string) (termmap.TermMap, error)
}

// Translator translates a transcript into a target language.
type Translator interface {
	Translate(ctx context.Context, cues []subtitle.Cue, targetLanguage string) ([]subtitle.Cue, error)
}

const (
	systemPrompt = "You are a professional translator."

	startSentinel = "<start>"
	endSentinel   = "<end>"

	// Unicode RIGHT-TO-LEFT EMBEDDING / POP DIRECTIONAL FORMATTING
	rtlStart = "\u202b"
	rtlEnd   = "\u202c"
)

// rtlLanguages holds lower-cased names of right-to-left target languages.
var rtlLanguages = map[string]bool{
	"hebrew": true,
}
