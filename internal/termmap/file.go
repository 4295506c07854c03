package termmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/MimeLyc/subtitle-bot/pkg/file"
)

// Filename returns the term map filename for a target language name,
// e.g. "Brazilian Portuguese" -> "term_map.brazilian_portuguese.json".
func Filename(targetLanguage string) string {
	return "term_map." + strings.ToLower(file.SafeName(targetLanguage)) + ".json"
}

// Load reads a term map from a JSON object of source -> target strings.
func Load(path string) (TermMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tm TermMap
	if err := json.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("invalid term map %s: %w", path, err)
	}

	return tm, nil
}

// Directory serves per-language term maps from one directory.
type Directory struct {
	dir string
}

func NewDirectory(dir string) *Directory {
	return &Directory{dir: dir}
}

// Lookup loads the term map for targetLanguage. A missing file is not an
// error and yields nil.
func (d *Directory) Lookup(targetLanguage string) (TermMap, error) {
	if d == nil || d.dir == "" || strings.TrimSpace(targetLanguage) == "" {
		return nil, nil
	}
	tm, err := Load(filepath.Join(d.dir, Filename(targetLanguage)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return tm, err
}
