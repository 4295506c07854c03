package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MimeLyc/subtitle-bot/internal/llm"
	"github.com/MimeLyc/subtitle-bot/internal/subtitle"
	"github.com/MimeLyc/subtitle-bot/internal/termmap"
	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

var ErrEmptyTranslation = errors.New("translation produced no subtitle cues")

// TranscriptTranslator sends a whole transcript in one request and maps the
// answer back onto the original cues.
type TranscriptTranslator struct {
	completer Completer
	glossary  Glossary
}

// Option configures a TranscriptTranslator.
type Option func(*TranscriptTranslator)

// WithGlossary pins the translation of names and terms found in the
// transcript to the glossary for the target language.
func WithGlossary(g Glossary) Option {
	return func(t *TranscriptTranslator) {
		t.glossary = g
	}
}

func NewTranscriptTranslator(completer Completer, opts ...Option) *TranscriptTranslator {
	t := &TranscriptTranslator{completer: completer}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate returns translated cues with the index and timing of the input.
func (t *TranscriptTranslator) Translate(
	ctx context.Context,
	cues []subtitle.Cue,
	targetLanguage string,
) ([]subtitle.Cue, error) {
	if len(cues) == 0 {
		return nil, fmt.Errorf("no cues to translate")
	}

	source := subtitle.LanguageName(subtitle.DetectLanguage(cues))
	prompt := buildPrompt(subtitle.Format(cues), source, targetLanguage, t.glossaryTerms(cues, targetLanguage))

	response, err := t.completer.SimpleChat(ctx, prompt, systemPrompt)
	if err != nil {
		if !errors.Is(err, llm.ErrTruncated) || strings.TrimSpace(response) == "" {
			return nil, fmt.Errorf("translation request failed: %w", err)
		}
		log.Warn("Translation to %s hit the token limit, using the partial response", targetLanguage)
	}

	translated, err := subtitle.ParseString(ExtractSentinel(response))
	if err != nil {
		log.Warn("Translated subtitles are malformed after %d cues, keeping those: %v", len(translated), err)
	}
	if len(translated) == 0 {
		return nil, ErrEmptyTranslation
	}

	if len(translated) == len(cues) {
		for i := range translated {
			translated[i].Index = cues[i].Index
			translated[i].Start = cues[i].Start
			translated[i].End = cues[i].End
		}
	} else {
		log.Warn("Translated cue count %d differs from source %d, keeping backend timing", len(translated), len(cues))
	}

	if IsRTL(targetLanguage) {
		for i := range translated {
			for j, line := range translated[i].Lines {
				translated[i].Lines[j] = wrapLine(line)
			}
		}
	}

	return translated, nil
}

func (t *TranscriptTranslator) glossaryTerms(cues []subtitle.Cue, targetLanguage string) []string {
	if t.glossary == nil {
		return nil
	}
	tm, err := t.glossary.Lookup(targetLanguage)
	if err != nil {
		log.Warn("Glossary for %s unavailable: %v", targetLanguage, err)
		return nil
	}
	if len(tm) == 0 {
		return nil
	}

	texts := make([]string, 0, len(cues))
	for _, cue := range cues {
		texts = append(texts, cue.Lines...)
	}
	terms := termmap.Match(tm, texts).Lines()
	if len(terms) > 0 {
		log.Debug("Pinning %d glossary terms for %s", len(terms), targetLanguage)
	}
	return terms
}

func buildPrompt(srt, sourceLanguage, targetLanguage string, terms []string) string {
	var prompt strings.Builder

	if sourceLanguage != "" && !strings.EqualFold(sourceLanguage, targetLanguage) {
		fmt.Fprintf(&prompt, "Translate the following subtitles from %s to %s.\n", sourceLanguage, targetLanguage)
	} else {
		fmt.Fprintf(&prompt, "Translate the following subtitles to %s.\n", targetLanguage)
	}
	prompt.WriteString("Keep every index number and timestamp line exactly as it is. Translate only the text lines.\n")
	prompt.WriteString("Return the complete translated subtitles in the same SRT format, enclosed between " +
		startSentinel + " and " + endSentinel + ".\n")
	if len(terms) > 0 {
		prompt.WriteString("When a source term below appears, you MUST use the mapped target term exactly:\n")
		for _, term := range terms {
			prompt.WriteString(term + "\n")
		}
	}
	prompt.WriteString("\n")
	prompt.WriteString(srt)

	return prompt.String()
}

// ExtractSentinel returns the trimmed text after the first <start>, cut at
// the next <end> when there is one. Without <start> the raw response is
// returned.
func ExtractSentinel(response string) string {
	start := strings.Index(response, startSentinel)
	if start < 0 {
		return response
	}
	rest := response[start+len(startSentinel):]
	if end := strings.Index(rest, endSentinel); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// IsRTL reports whether language is written right-to-left.
func IsRTL(language string) bool {
	return rtlLanguages[strings.ToLower(strings.TrimSpace(language))]
}

// WrapRTL wraps every text line of SRT text in RTL embedding marks. Index and
// timing lines pass through unchanged, as do lines that are already wrapped.
func WrapRTL(srt string) string {
	lines := strings.Split(srt, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || subtitle.IsIndexLine(trimmed) || subtitle.IsTimingLine(trimmed) {
		return line
	}
	if strings.HasPrefix(line, rtlStart) && strings.HasSuffix(line, rtlEnd) {
		return line
	}
	return rtlStart + line + rtlEnd
}
