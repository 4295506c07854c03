package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-bot/internal/service"
)

type stubRunner struct {
	got *service.MediaJob
	err error
}

func (s *stubRunner) Run(_ context.Context, job *service.MediaJob) error {
	s.got = job
	job.Artifacts = []service.Artifact{
		{Kind: service.ArtifactTranscript, Name: "talk_original.srt", Delivered: true},
		{Kind: service.ArtifactTranslation, Name: "talk_translated_Hebrew.srt", Delivered: false},
	}
	return s.err
}

func TestRunLocal_BuildsJobAndPrintsArtifacts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.MP4")
	require.NoError(t, os.WriteFile(input, bytes.Repeat([]byte("x"), 2048), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "talk_original.srt"), []byte("1\n"), 0o644))

	runner := &stubRunner{}
	var out bytes.Buffer
	require.NoError(t, runLocal(context.Background(), runner, input, "Spanish", dir, &out))

	require.NotNil(t, runner.got)
	assert.Equal(t, input, runner.got.Attachment.FileID)
	assert.Equal(t, "talk.MP4", runner.got.Attachment.FileName)
	assert.Equal(t, int64(2048), runner.got.Attachment.Size)
	assert.Equal(t, "Spanish", runner.got.Language)

	table := out.String()
	assert.Contains(t, table, "talk_original.srt")
	assert.Contains(t, table, "2 B")
	assert.Contains(t, table, "talk_translated_Hebrew.srt")
	assert.Contains(t, table, "no")
}

func TestRunLocal_PrintsTableOnFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "memo.ogg")
	require.NoError(t, os.WriteFile(input, []byte("ogg"), 0o644))

	runner := &stubRunner{err: errors.New("transcription failed")}
	var out bytes.Buffer
	err := runLocal(context.Background(), runner, input, "", dir, &out)
	require.ErrorContains(t, err, "transcription failed")
	assert.Contains(t, out.String(), "Artifact")
}

func TestRunLocal_RejectsDirectory(t *testing.T) {
	err := runLocal(context.Background(), &stubRunner{}, t.TempDir(), "", "", &bytes.Buffer{})
	require.ErrorContains(t, err, "is a directory")
}

func TestLocalMessenger(t *testing.T) {
	src := t.TempDir()
	outDir := t.TempDir()
	input := filepath.Join(src, "in.wav")
	require.NoError(t, os.WriteFile(input, []byte("wave"), 0o644))

	var progress strings.Builder
	m := newLocalMessenger(outDir, &progress)
	ctx := context.Background()

	dest := filepath.Join(src, "source.wav")
	n, err := m.Download(ctx, input, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, m.SendDocument(ctx, 0, dest))
	data, err := os.ReadFile(filepath.Join(outDir, "source.wav"))
	require.NoError(t, err)
	assert.Equal(t, "wave", string(data))
	assert.Equal(t, []string{filepath.Join(outDir, "source.wav")}, m.delivered)

	require.NoError(t, m.SendText(ctx, 0, "Downloading your media..."))
	assert.Equal(t, "Downloading your media...\n", progress.String())

	_, err = m.Download(ctx, filepath.Join(src, "missing"), dest)
	require.Error(t, err)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "3")
	assert.Empty(t, renderTable(nil, nil, nil))
}
