package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bryanwahyu/forensiq/internal/client"
)

// ErrEmptyQueue is returned when submitting without queued files.
var ErrEmptyQueue = errors.New("No files selected for analysis")

type View string

const (
	ViewWelcome View = "welcome"
	ViewResults View = "results"
)

type Tab string

const (
	TabReport   Tab = "report"
	TabTimeline Tab = "timeline"
)

// ParseTab accepts "report" and "timeline".
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case TabReport, TabTimeline:
		return Tab(s), nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(kind NoticeKind, msg string)
}

// WriterNotifier prints notifications as "[kind] msg" lines.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Notify(kind NoticeKind, msg string) {
	fmt.Fprintf(n.W, "[%s] %s\n", kind, msg)
}

// Submitter sends queued evidence for analysis.
type Submitter interface {
	Analyze(ctx context.Context, files []client.File) (*client.Result, error)
}

// Session is the state of one interactive analysis: the queue, the current
// view and tab, the timeline filter and the last result.
type Session struct {
	submitter Submitter
	notifier  Notifier
	now       func() time.Time

	mu          sync.Mutex
	queue       Queue
	view        View
	tab         Tab
	filter      string
	loading     bool
	result      *client.Result
	completedAt time.Time
}

func NewSession(sub Submitter, n Notifier) *Session {
	return &Session{
		submitter: sub,
		notifier:  n,
		now:       time.Now,
		view:      ViewWelcome,
		tab:       TabReport,
		filter:    FilterAll,
	}
}

// AddFiles queues files and notifies when any were new.
func (s *Session) AddFiles(files ...PendingFile) (added, skipped int) {
	s.mu.Lock()
	added, skipped = s.queue.Add(files...)
	s.mu.Unlock()
	if added > 0 {
		s.notifier.Notify(NoticeSuccess, "Files added successfully")
	}
	return added, skipped
}

// RemoveFile drops the i-th queued file.
func (s *Session) RemoveFile(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Remove(i)
}

// Files returns a snapshot of the queue.
func (s *Session) Files() []PendingFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Files()
}

func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// CountLabel renders the queue size, e.g. "3 files".
func (s *Session) CountLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CountLabel()
}

// CanSubmit is false while the queue is empty or a request is in flight.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len() > 0 && !s.loading
}

// Submit sends the queue. On success the result is stored and the session
// switches to the results view; on failure the view is left as it was.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.queue.Len() == 0 {
		s.mu.Unlock()
		s.notifier.Notify(NoticeError, ErrEmptyQueue.Error())
		return ErrEmptyQueue
	}
	if s.loading {
		s.mu.Unlock()
		return client.ErrBusy
	}
	s.loading = true
	files := s.queue.Files()
	s.mu.Unlock()

	res, err := s.submitter.Analyze(ctx, files)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.notifier.Notify(NoticeError, errorMessage(err))
		return err
	}
	s.result = res
	s.completedAt = s.now()
	s.view = ViewResults
	s.mu.Unlock()

	s.notifier.Notify(NoticeSuccess, "Analysis completed successfully")
	return nil
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err.Error() == "" {
		return client.DefaultErrorMessage
	}
	return err.Error()
}

// Reset empties the queue, drops the result and returns to the welcome view.
func (s *Session) Reset() {
	s.mu.Lock()
	s.queue.Clear()
	s.result = nil
	s.completedAt = time.Time{}
	s.view = ViewWelcome
	s.tab = TabReport
	s.filter = FilterAll
	s.mu.Unlock()
	s.notifier.Notify(NoticeInfo, "Ready for new analysis")
}

func (s *Session) SetTab(t Tab) {
	s.mu.Lock()
	s.tab = t
	s.mu.Unlock()
}

// SetFilter changes the timeline filter; empty means all.
func (s *Session) SetFilter(f string) {
	if f == "" {
		f = FilterAll
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

func (s *Session) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Result returns the last successful result and when it completed.
func (s *Session) Result() (*client.Result, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.completedAt
}
