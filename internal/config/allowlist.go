package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/MimeLyc/subtitle-bot/pkg/log"
)

// LoadAllowList reads one numeric user id per line. Blank lines, comments
// starting with '#' and non-numeric lines are skipped. A missing file yields
// an empty list.
func LoadAllowList(path string) ([]int64, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Allow-list file %s not found, no users are exempt from the quota", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open allow-list: %w", err)
	}
	defer f.Close()

	var ids []int64
	seen := make(map[int64]struct{})
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil || id <= 0 {
			log.Warn("Skipping allow-list line %d: %q is not a user id", lineNo, line)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}
	log.Info("Loaded %d allow-listed users from %s", len(ids), path)
	return ids, nil
}
