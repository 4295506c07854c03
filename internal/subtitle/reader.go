package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SRT time format: 00:02:16,612 --> 00:02:19,376
var timingPattern = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})`)

// ParseString parses SRT text.
func ParseString(s string) ([]Cue, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads SRT blocks. Lines before a numeric index are skipped, a blank
// line ends the current cue. On a malformed timing line the cues read so far
// are returned together with the error.
func Parse(r io.Reader) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := Cue{}
	state := "index" // possible values: "index", "time", "text"
	first := true

	for scanner.Scan() {
		raw := scanner.Text()
		if first {
			raw = strings.TrimPrefix(raw, "\ufeff")
			first = false
		}
		line := strings.TrimSpace(raw)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // skip non-index lines
			}
			current = Cue{Index: index}
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := ParseTiming(line)
			if err != nil {
				return cues, fmt.Errorf("cue %d: %w", current.Index, err)
			}
			current.Start = start
			current.End = end
			state = "text"

		case "text":
			if line == "" {
				cues = append(cues, current)
				current = Cue{}
				state = "index"
				continue
			}
			current.Lines = append(current.Lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle: %w", err)
	}

	// last block without trailing blank line
	if state == "text" {
		cues = append(cues, current)
	}

	return cues, nil
}

// ParseTiming parses an SRT timing line into start and end offsets.
func ParseTiming(s string) (time.Duration, time.Duration, error) {
	matches := timingPattern.FindStringSubmatch(s)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}

	parse := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		sec, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(sec)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	return parse(matches[1], matches[2], matches[3], matches[4]),
		parse(matches[5], matches[6], matches[7], matches[8]),
		nil
}

// IsIndexLine reports whether a line is a bare cue number.
func IsIndexLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsTimingLine reports whether a line is a timestamp range.
func IsTimingLine(line string) bool {
	return strings.Contains(line, "-->")
}

// DetectLanguage guesses the dominant language of the cue text.
func DetectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, cue := range cues {
		text := cue.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		langMap[whatlanggo.DetectLang(text).Iso6391()]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if lang == "" {
			continue
		}
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}

// LanguageName returns the English display name of tag, or "" for und.
func LanguageName(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	return display.English.Languages().Name(tag)
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
