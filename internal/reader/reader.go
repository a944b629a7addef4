package reader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cclens/cclens/internal/model"
)

// ErrSourceUnavailable marks a log root that does not exist or cannot be
// opened. Callers treat it differently from a root with no usage in it.
var ErrSourceUnavailable = errors.New("usage log source unavailable")

const maxLineSize = 1024 * 1024

// Cursor records, per file path, the byte offset after the last fully read
// line. Feeding it back into ReadSince resumes where the previous read
// stopped.
type Cursor map[string]int64

// Clone returns an independent copy of the cursor.
func (c Cursor) Clone() Cursor {
	out := make(Cursor, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Stats counts what a read pass saw. Malformed lines are skipped, never
// fatal.
type Stats struct {
	Files     int
	Lines     int
	Malformed int
	Skipped   int
}

func (s *Stats) add(other Stats) {
	s.Files += other.Files
	s.Lines += other.Lines
	s.Malformed += other.Malformed
	s.Skipped += other.Skipped
}

// Reader streams usage events out of one or more project log roots.
type Reader struct {
	roots []string
}

// New builds a reader over the given log root directories.
func New(roots ...string) *Reader {
	return &Reader{roots: roots}
}

// Files walks the roots and returns every *.jsonl path, sorted. A missing
// root yields ErrSourceUnavailable.
func (r *Reader) Files() ([]string, error) {
	var files []string
	for _, root := range r.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, root)
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtree, keep walking
			}
			if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadAll reads every file from the beginning.
func (r *Reader) ReadAll(ctx context.Context) ([]model.UsageEvent, Cursor, Stats, error) {
	return r.ReadSince(ctx, nil)
}

// ReadSince reads each file from its cursor offset, returning new events and
// the advanced cursor. Files that shrank below their recorded offset are
// treated as rotated and re-read from zero. The input cursor is not mutated.
func (r *Reader) ReadSince(ctx context.Context, cur Cursor) ([]model.UsageEvent, Cursor, Stats, error) {
	files, err := r.Files()
	if err != nil {
		return nil, nil, Stats{}, err
	}

	next := cur.Clone()
	var events []model.UsageEvent
	var stats Stats
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, Stats{}, err
		}
		offset := next[path]
		evs, newOffset, fileStats, err := readFile(path, offset)
		if err != nil {
			// File vanished between walk and open; skip it.
			if errors.Is(err, fs.ErrNotExist) {
				delete(next, path)
				continue
			}
			return nil, nil, Stats{}, fmt.Errorf("reading %s: %w", path, err)
		}
		events = append(events, evs...)
		next[path] = newOffset
		stats.add(fileStats)
	}
	return events, next, stats, nil
}

func readFile(path string, offset int64) ([]model.UsageEvent, int64, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, Stats{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, Stats{}, err
	}
	if info.Size() < offset {
		offset = 0 // truncated or rotated
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, 0, Stats{}, err
		}
	}

	projectPath := filepath.Base(filepath.Dir(path))
	br := bufio.NewReaderSize(f, 64*1024)

	var events []model.UsageEvent
	stats := Stats{Files: 1}
	pos := offset
	for {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, 0, Stats{}, err
		}
		complete := len(line) > 0 && line[len(line)-1] == '\n'
		if !complete {
			// Partial tail line, leave it for the next pass.
			break
		}
		pos += int64(len(line))
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if len(trimmed) > maxLineSize {
			stats.Malformed++
			continue
		}
		stats.Lines++
		ev, ok, perr := normalize(trimmed, projectPath)
		if perr != nil {
			stats.Malformed++
			continue
		}
		if !ok {
			stats.Skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, pos, stats, nil
}
