package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/justsum66/cheersin-gateway/pkg/logger"
)

// snippet is one line of the knowledge seed file.
type snippet struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// SeedFromFile loads knowledge snippets into the store from an NDJSON file,
// one object per line with id, content and source fields. A missing file is
// not an error; the store simply starts empty. Malformed lines are skipped
// and logged. Returns the number of snippets indexed.
func SeedFromFile(ctx context.Context, store *VectorStore, path string, log *logger.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	count := 0
	lineNo := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var s snippet
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			log.Warn("skipping malformed knowledge snippet",
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		if s.Content == "" {
			continue
		}
		if s.ID == "" {
			s.ID = fmt.Sprintf("seed-%d", lineNo)
		}

		if err := store.Upsert(ctx, s.ID, s.Content, s.Source); err != nil {
			return count, fmt.Errorf("index snippet %q: %w", s.ID, err)
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("read seed file: %w", err)
	}
	return count, nil
}
