package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
)

const transcriptSRT = `1
00:00:00,000 --> 00:00:02,000
Good morning everyone.

2
00:00:02,000 --> 00:00:04,500
Welcome to the show.
`

const hebrewReply = `Here you go:
<start>
1
00:00:00,000 --> 00:00:02,000
בוקר טוב לכולם.

2
00:00:02,000 --> 00:00:04,500
ברוכים הבאים לתוכנית.
<end>`

const spanishReply = `<start>
1
00:00:00,000 --> 00:00:02,000
Buenos días a todos.

2
00:00:02,000 --> 00:00:04,500
Bienvenidos al programa.
<end>`

type sentFile struct {
	Name    string
	Content string
}

type fakeMessenger struct {
	mu          sync.Mutex
	payload     []byte
	downloadErr error
	docErr      error
	videoErr    error
	downloads   int
	documents   []sentFile
	videos      []sentFile
}

func (m *fakeMessenger) Download(_ context.Context, _ string, dest string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	payload := m.payload
	if payload == nil {
		payload = []byte("media-bytes")
	}
	if err := os.WriteFile(dest, payload, 0o644); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, _ int64, path string) error {
	return m.record(&m.documents, path, m.docErr)
}

func (m *fakeMessenger) SendVideo(_ context.Context, _ int64, path string) error {
	return m.record(&m.videos, path, m.videoErr)
}

func (m *fakeMessenger) record(into *[]sentFile, path string, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return readErr
	}
	*into = append(*into, sentFile{Name: filepath.Base(path), Content: string(content)})
	return nil
}

type fakeTranscoder struct {
	mu         sync.Mutex
	hasVideo   bool
	probeErr   error
	extractErr error
	burnErr    error
	extracts   int
	burns      int
	burnSubs   string
	probes     int
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, _, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracts++
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(output, []byte("mp3"), 0o644)
}

func (f *fakeTranscoder) BurnSubtitles(_ context.Context, _, subtitles, output string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burns++
	f.burnSubs = filepath.Base(subtitles)
	if f.burnErr != nil {
		return f.burnErr
	}
	return os.WriteFile(output, []byte("mp4"), 0o644)
}

func (f *fakeTranscoder) HasVideoStream(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.hasVideo, f.probeErr
}

func (f *fakeTranscoder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.extracts + f.burns + f.probes
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	paths []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, audioPath)
	if f.err != nil {
		return "", f.err
	}
	if f.text == "" {
		return transcriptSRT, nil
	}
	return f.text, nil
}

func (f *fakeTranscriber) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

// fakeCompleter answers with a canned translation for the requested language.
type fakeCompleter struct {
	mu    sync.Mutex
	err   error
	panic bool
	calls int
}

func (f *fakeCompleter) SimpleChat(_ context.Context, prompt string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panic {
		panic("backend exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, "to Spanish") {
		return spanishReply, nil
	}
	return hebrewReply, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, _ int64, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

type capturingQueue struct {
	mu   sync.Mutex
	jobs []*jobs.Job
	seen map[string]*jobs.Job
}

func (q *capturingQueue) Enqueue(req jobs.EnqueueRequest) (*jobs.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen == nil {
		q.seen = make(map[string]*jobs.Job)
	}
	if existing, ok := q.seen[req.DedupeKey]; ok {
		return existing, false
	}
	job := &jobs.Job{
		ID:        "job-" + req.DedupeKey,
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    jobs.StatusPending,
	}
	q.seen[req.DedupeKey] = job
	q.jobs = append(q.jobs, job)
	return job, true
}

func (q *capturingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

var errBackend = errors.New("backend unavailable")
