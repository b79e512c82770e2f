// Package console holds the terminal client's state: the evidence queue,
// the current session and the rendering of results.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bryanwahyu/forensiq/internal/client"
)

// PendingFile is a queued piece of evidence. Name and Size identify it.
type PendingFile = client.File

// LocalFile queues a file from disk under its base name.
func LocalFile(path string) (PendingFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return PendingFile{}, err
	}
	if info.IsDir() {
		return PendingFile{}, fmt.Errorf("%s is a directory", path)
	}
	return PendingFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Queue keeps pending files in insertion order.
type Queue struct {
	files []PendingFile
}

// Add appends the files not already queued and reports how many were added
// and skipped as duplicates.
func (q *Queue) Add(files ...PendingFile) (added, skipped int) {
	for _, f := range files {
		if q.contains(f) {
			skipped++
			continue
		}
		q.files = append(q.files, f)
		added++
	}
	return added, skipped
}

func (q *Queue) contains(f PendingFile) bool {
	for _, p := range q.files {
		if p.Name == f.Name && p.Size == f.Size {
			return true
		}
	}
	return false
}

// Remove drops the i-th file.
func (q *Queue) Remove(i int) error {
	if i < 0 || i >= len(q.files) {
		return fmt.Errorf("no queued file at index %d", i)
	}
	q.files = append(q.files[:i], q.files[i+1:]...)
	return nil
}

func (q *Queue) Len() int { return len(q.files) }

// Files returns a copy of the queue.
func (q *Queue) Files() []PendingFile {
	return append([]PendingFile(nil), q.files...)
}

// CountLabel renders the queue size, e.g. "1 file" or "3 files".
func (q *Queue) CountLabel() string {
	if len(q.files) == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", len(q.files))
}

func (q *Queue) Clear() { q.files = nil }
