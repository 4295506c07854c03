package subtitle

import "time"

// Cue is a single subtitle entry.
type Cue struct {
	Index int           // 1-based position as written in the file
	Start time.Duration // start time
	End   time.Duration // end time
	Lines []string      // one or more text lines
}

// Text joins the cue lines with newlines.
func (c Cue) Text() string {
	return joinLines(c.Lines)
}
