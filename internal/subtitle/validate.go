package subtitle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"
)

var ErrNoCues = errors.New("subtitle contains no cues")

// Validate checks that text is well-formed SRT with at least one cue.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNoCues
	}
	subs, err := astisub.ReadFromSRT(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("malformed srt: %w", err)
	}
	if subs == nil || len(subs.Items) == 0 {
		return ErrNoCues
	}
	return nil
}
