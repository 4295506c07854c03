package media

import (
	"context"
	"fmt"
	"strings"
)

// Transcoder is the external transcoding service used by the pipeline.
type Transcoder interface {
	// ExtractAudio writes a compressed mono audio track of input to output.
	ExtractAudio(ctx context.Context, input, output string) error
	// BurnSubtitles renders input with the subtitle file burned in.
	BurnSubtitles(ctx context.Context, input, subtitles, output string) error
	// HasVideoStream reports whether input carries a real video stream.
	HasVideoStream(ctx context.Context, input string) (bool, error)
}

func NewTranscoder() Transcoder {
	return NewFfmpeg()
}

// CaptionStyle is the ASS style applied when burning captions.
// Colours use the ASS &HAABBGGRR notation.
type CaptionStyle struct {
	FontSize      int
	PrimaryColour string
	OutlineColour string
	BackColour    string
	BorderStyle   int
	Outline       int
	MarginV       int
}

// DefaultCaptionStyle is the only caption preset: white text, semi-transparent
// blue outline over a semi-transparent black box, lifted off the bottom edge.
var DefaultCaptionStyle = CaptionStyle{
	FontSize:      28,
	PrimaryColour: "&H00FFFFFF",
	OutlineColour: "&H80FF0000",
	BackColour:    "&H80000000",
	BorderStyle:   1,
	Outline:       2,
	MarginV:       40,
}

// ForceStyle renders the style as an ffmpeg subtitles force_style value.
func (s CaptionStyle) ForceStyle() string {
	parts := []string{
		fmt.Sprintf("FontSize=%d", s.FontSize),
		"PrimaryColour=" + s.PrimaryColour,
		"OutlineColour=" + s.OutlineColour,
		"BackColour=" + s.BackColour,
		fmt.Sprintf("BorderStyle=%d", s.BorderStyle),
		fmt.Sprintf("Outline=%d", s.Outline),
		fmt.Sprintf("MarginV=%d", s.MarginV),
	}
	return strings.Join(parts, ",")
}
