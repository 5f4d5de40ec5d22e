package decisionlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boshu2/agentgate/internal/worker"
)

// maxLineSize bounds a single JSONL line.
const maxLineSize = 1 << 20

// Store appends to and reads one JSONL file.
type Store struct {
	path   string
	now    func() time.Time
	newID  func() string
	logger *zap.Logger

	mu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the time source used for records without a timestamp.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDs sets the ID generator used for records without an ID.
func WithIDs(newID func() string) StoreOption {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a Store for path. The file is created on first append.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Append fills in ID and Timestamp when empty, truncates the preview, and
// writes r as one line. It returns the record as written.
func (s *Store) Append(r Record) (Record, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	r.PromptPreview = Preview(r.PromptPreview)

	data, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return r, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return r, fmt.Errorf("open decision log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return r, fmt.Errorf("append decision log: %w", err)
	}
	if err := f.Close(); err != nil {
		return r, fmt.Errorf("close decision log: %w", err)
	}
	return r, nil
}

// ReadAll reads a snapshot of every record in the file. A missing file is
// empty. Malformed lines are skipped and logged.
func (s *Store) ReadAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	var records []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			s.logger.Warn("skipping malformed decision log line",
				zap.String("path", s.path), zap.Int("line", line), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("read decision log %s: %w", s.path, err)
	}
	return records, nil
}

// ReadFiles reads several logs concurrently and returns one batch of records
// per path, in path order. Per-file errors are joined; a file that failed
// part way keeps the records read before the error.
func ReadFiles(ctx context.Context, paths []string, opts ...StoreOption) ([][]Record, error) {
	pool := worker.NewPool[string, []Record](len(paths))
	results := pool.Process(ctx, paths, func(_ context.Context, path string) ([]Record, error) {
		return NewStore(path, opts...).ReadAll()
	})

	_, err := worker.Collect(results)
	batches := make([][]Record, len(paths))
	for _, r := range results {
		batches[r.Index] = r.Value
	}
	return batches, err
}
