package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// localMessenger stands in for the chat transport when running the pipeline
// on a file from disk. File ids are local paths and delivered artifacts are
// copied into outDir.
type localMessenger struct {
	outDir string
	out    io.Writer

	mu        sync.Mutex
	delivered []string
}

func newLocalMessenger(outDir string, out io.Writer) *localMessenger {
	return &localMessenger{outDir: outDir, out: out}
}

func (m *localMessenger) Download(_ context.Context, fileID, dest string) (int64, error) {
	return copyFile(fileID, dest)
}

func (m *localMessenger) SendDocument(_ context.Context, _ int64, path string) error {
	return m.deliver(path)
}

func (m *localMessenger) SendVideo(_ context.Context, _ int64, path string) error {
	return m.deliver(path)
}

// SendText prints progress messages.
func (m *localMessenger) SendText(_ context.Context, _ int64, text string) error {
	_, err := fmt.Fprintln(m.out, text)
	return err
}

func (m *localMessenger) deliver(path string) error {
	dest := filepath.Join(m.outDir, filepath.Base(path))
	if _, err := copyFile(path, dest); err != nil {
		return err
	}
	m.mu.Lock()
	m.delivered = append(m.delivered, dest)
	m.mu.Unlock()
	return nil
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}
