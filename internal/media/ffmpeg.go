package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

const stderrTailBytes = 2048

type ffmpeg struct {
	ffmpegCmd  string
	ffprobeCmd string
	style      CaptionStyle
}

func NewFfmpeg() ffmpeg {
	return ffmpeg{
		ffmpegCmd:  "ffmpeg",
		ffprobeCmd: "ffprobe",
		style:      DefaultCaptionStyle,
	}
}

// ExtractAudio drops the video track and encodes mono 16kHz mp3
func (ff ffmpeg) ExtractAudio(ctx context.Context, input, output string) error {
	if err := ff.run(ctx, ff.ffmpegCmd, ff.extractAudioArgs(input, output)); err != nil {
		return fmt.Errorf("extract audio from %s: %w", filepath.Base(input), err)
	}
	return nil
}

// BurnSubtitles renders subtitles into the video frames, copying the audio.
func (ff ffmpeg) BurnSubtitles(ctx context.Context, input, subtitles, output string) error {
	if err := ff.run(ctx, ff.ffmpegCmd, ff.burnSubtitlesArgs(input, subtitles, output)); err != nil {
		return fmt.Errorf("burn subtitles into %s: %w", filepath.Base(input), err)
	}
	return nil
}

func (ff ffmpeg) HasVideoStream(ctx context.Context, input string) (bool, error) {
	cmdPath, err := exec.LookPath(ff.ffprobeCmd)
	if err != nil {
		return false, err
	}
	cmd := exec.CommandContext(ctx, cmdPath, ff.probeVideoArgs(input)...)

	output, err := cmd.Output()
	if err != nil {
		log.Error("Failed to run ffprobe: %v", err)
		return false, err
	}

	var probeResult struct {
		Streams []struct {
			CodecType   string `json:"codec_type"`
			Disposition struct {
				AttachedPic int `json:"attached_pic"`
			} `json:"disposition"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probeResult); err != nil {
		log.Error("Failed to parse ffprobe output: %v", err)
		return false, err
	}

	for _, stream := range probeResult.Streams {
		// cover art in audio files shows up as a single-frame video stream
		if stream.CodecType == "video" && stream.Disposition.AttachedPic == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (ff ffmpeg) run(ctx context.Context, name string, args []string) error {
	cmdPath, err := exec.LookPath(name)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stderr = &stderr

	log.Debug("Running %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		if len(tail) > stderrTailBytes {
			tail = tail[len(tail)-stderrTailBytes:]
		}
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(tail))
	}
	return nil
}

func (ffmpeg) extractAudioArgs(input, output string) []string {
	return []string{
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "32k",
		"-f", "mp3",
		output,
	}
}

func (ff ffmpeg) burnSubtitlesArgs(input, subtitles, output string) []string {
	filter := fmt.Sprintf("subtitles=filename='%s':charenc=UTF-8:force_style='%s'",
		escapeFilterValue(subtitles), ff.style.ForceStyle())
	return []string{
		"-y",
		"-i", input,
		"-vf", filter,
		"-c:a", "copy",
		output,
	}
}

func (ffmpeg) probeVideoArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "v",
		path,
	}
}

// escapeFilterValue escapes a path for use inside a quoted filtergraph option.
func escapeFilterValue(s string) string {
	s = filepath.ToSlash(s)
	r := strings.NewReplacer(`\`, `\\`, `'`, `'\''`, `:`, `\:`)
	return r.Replace(s)
}
