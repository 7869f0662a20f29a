// Package puzzle implements the file-backed daily puzzle queue.
package puzzle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/quiz"
)

// document is the on-disk shape. Items stay raw so that whatever is not
// popped is written back untouched.
type document struct {
	Quiz []json.RawMessage `json:"quiz"`
}

// Queue is a FIFO of quiz items stored in a JSON file of the form
// {"quiz":[...]}. Pops rewrite the file atomically.
type Queue struct {
	path string
	log  *logger.Logger

	// mu serializes pops within the process.
	mu sync.Mutex
}

// NewQueue returns a queue over the file at path. The file need not exist.
func NewQueue(path string, log *logger.Logger) *Queue {
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{path: path, log: log.With("component", "puzzle", "file", path)}
}

// Path returns the backing file path.
func (q *Queue) Path() string { return q.path }

// PopFront removes and returns the first usable item. It returns false when
// the file is missing, empty or malformed, or when no usable item is left.
// Invalid head items are consumed and dropped so the queue cannot wedge.
func (q *Queue) PopFront(ctx context.Context) (quiz.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	doc, ok := q.load()
	if !ok {
		return quiz.Item{}, false
	}

	consumed := 0
	var (
		item  quiz.Item
		found bool
	)
	for consumed < len(doc.Quiz) {
		if err := ctx.Err(); err != nil {
			q.log.Warn("puzzle pop canceled", "error", err)
			break
		}
		raw := doc.Quiz[consumed]
		consumed++

		var candidate quiz.Item
		if err := json.Unmarshal(raw, &candidate); err != nil {
			q.log.Warn("dropping undecodable puzzle", "error", err)
			continue
		}
		kept, rejected := quiz.Normalize([]quiz.Item{candidate}, quiz.DailyDefaultExplanation)
		if len(kept) == 0 {
			q.log.Warn("dropping invalid puzzle", "reason", rejected[0].Error())
			continue
		}
		item, found = kept[0], true
		break
	}

	if consumed == 0 {
		return quiz.Item{}, false
	}
	doc.Quiz = doc.Quiz[consumed:]
	if err := q.write(doc); err != nil {
		// Nothing is handed out unless the removal is durable.
		q.log.Error("rewrite puzzle file", "error", err)
		return quiz.Item{}, false
	}
	if found {
		q.log.Info("puzzle popped", "remaining", len(doc.Quiz))
	}
	return item, found
}

// Len reports how many items remain in the file, valid or not.
func (q *Queue) Len(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ctx.Err() != nil {
		return 0
	}
	doc, ok := q.load()
	if !ok {
		return 0
	}
	return len(doc.Quiz)
}

func (q *Queue) load() (document, bool) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		q.log.Warn("puzzle file not found")
		return document{}, false
	}
	if err != nil {
		q.log.Error("read puzzle file", "error", err)
		return document{}, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		q.log.Warn("puzzle file is empty")
		return document{}, false
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		q.log.Error("decode puzzle file", "error", err)
		return document{}, false
	}
	if len(doc.Quiz) == 0 {
		q.log.Warn("no puzzles left")
		return document{}, false
	}
	return doc, true
}

// write replaces the file via a synced temp file in the same directory and
// a rename, so a crash leaves either the old or the new content.
func (q *Queue) write(doc document) error {
	if doc.Quiz == nil {
		doc.Quiz = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode puzzles: %w", err)
	}
	data = append(data, '\n')

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(q.path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(q.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(q.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, q.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
